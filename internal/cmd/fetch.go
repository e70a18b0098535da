package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	lazyload "github.com/abihf/lazy-loader"
	"github.com/abihf/lazy-loader/internal/config"
	"github.com/abihf/lazy-loader/internal/logging"
	"github.com/abihf/lazy-loader/query"
)

// errSomeFailed is returned by fetch when at least one endpoint errored.
var errSomeFailed = errors.New("some endpoints failed to load")

func newFetchCommand(v *viper.Viper, opts *rootOptions) *cobra.Command {
	var focusEvery time.Duration

	cmd := &cobra.Command{
		Use:   "fetch [name...]",
		Short: "Load the configured endpoints by priority",
		Long: `Fetch requests every configured endpoint (or the named ones) through
priority gates and prints each result as soon as it settles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, opts.configFile, opts.envFile)
			if err != nil {
				return err
			}
			f := &fetcher{
				out:        cmd.OutOrStdout(),
				log:        logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format),
				cfg:        cfg,
				focusEvery: focusEvery,
			}
			return f.run(cmd.Context(), args)
		},
	}
	cmd.Flags().DurationVar(&focusEvery, "focus-every", 0, "refetch stale focus-enabled endpoints at this interval while waiting")
	cmd.Flags().Duration("timeout", 0, "overall timeout (overrides the timeout setting)")
	_ = v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
	return cmd
}

type fetcher struct {
	out        io.Writer
	log        *slog.Logger
	cfg        *config.Config
	focusEvery time.Duration
	httpClient *http.Client
	// clientOptions are appended to the query client options.
	clientOptions []query.Option
}

func (f *fetcher) run(ctx context.Context, names []string) error {
	endpoints, err := f.cfg.Select(names)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return errors.New("no endpoints configured")
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	driver, err := query.NewARCDriver(f.cfg.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	options := append([]query.Option{
		query.WithDriver(driver),
		query.WithLogger(f.log),
		query.WithContext(ctx),
	}, f.clientOptions...)
	client := query.NewClient(options...)
	defer client.Close()

	httpClient := f.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	priorities := make([]lazyload.Priority, len(endpoints))
	descriptors := make([]lazyload.Descriptor[any], len(endpoints))
	for i, e := range endpoints {
		// Validate already checked it.
		priorities[i], _ = e.ParsedPriority()
		descriptors[i] = lazyload.Descriptor[any]{
			Key:      query.Key{"endpoint", e.Name},
			Fn:       httpFetcher(httpClient, e.URL(f.cfg.BaseURL)),
			Priority: priorities[i],
			Delay:    e.Delay,
		}
	}

	changed := make(chan struct{}, 1)
	unsubscribe := client.Subscribe(func(query.Key) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var focus <-chan time.Time
	if f.focusEvery > 0 {
		ticker := time.NewTicker(f.focusEvery)
		defer ticker.Stop()
		focus = ticker.C
	}

	start := time.Now()
	p := lazyload.NewProgressive(lazyload.New(client, lazyload.WithLogger(f.log)), descriptors)
	defer p.Close()

	printed := make([]bool, len(endpoints))
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for endpoints: %w", err)
		}

		results := p.Results()
		for i, r := range results {
			if !printed[i] && r.IsSettled() {
				printed[i] = true
				renderResult(f.out, endpoints[i], priorities[i], r, time.Since(start))
			}
		}

		st := lazyload.Aggregate(results)
		if st.AllSettled {
			renderStatus(f.out, st, results)
			if st.AnyErrored {
				return errSomeFailed
			}
			return nil
		}

		select {
		case <-changed:
		case <-focus:
			client.Focus()
		case <-ctx.Done():
			return fmt.Errorf("waiting for endpoints: %w", ctx.Err())
		}
	}
}

// httpFetcher GETs url and decodes the JSON body.
func httpFetcher(client *http.Client, url string) query.Fetcher[any] {
	return func(ctx context.Context) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
		}

		var body any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", url, err)
		}
		return body, nil
	}
}
