package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abihf/lazy-loader/internal/config"
	"github.com/abihf/lazy-loader/internal/logging"
	"github.com/abihf/lazy-loader/query"
)

// executeCommand runs the root command with args and returns its stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/resumo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total":1520.5}`)
	})
	mux.HandleFunc("/api/graficos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[1,2,3]`)
	})
	mux.HandleFunc("/api/quebrado", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/lento", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	content := fmt.Sprintf(`
base_url: %s/api
timeout: 5s
endpoints:
  - name: graficos
    path: /graficos
    priority: low
  - name: resumo
    path: /resumo
    priority: high
`, baseURL)
	path := filepath.Join(t.TempDir(), "lazyload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "lazyload", root.Use)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "fetch")
	assert.Contains(t, names, "tiers")
}

func TestTiersCommand(t *testing.T) {
	out, err := executeCommand(t, "tiers")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TIER")
	assert.Contains(t, lines[1], "high")
	assert.Contains(t, lines[1], "1m0s")
	assert.Contains(t, lines[1], "true")
	assert.Contains(t, lines[2], "medium")
	assert.Contains(t, lines[2], "100ms")
	assert.Contains(t, lines[3], "low")
	assert.Contains(t, lines[3], "300ms")
	assert.Contains(t, lines[3], "5m0s")
}

func TestFetchCommand(t *testing.T) {
	srv := newAPI(t)
	path := writeConfig(t, srv.URL)

	out, err := executeCommand(t, "fetch", "-c", path, "--env-file", "")
	require.NoError(t, err)

	assert.Contains(t, out, `{"total":1520.5}`)
	assert.Contains(t, out, "[1,2,3]")
	assert.Contains(t, out, "2 loaded, 0 failed")
	assert.Less(t, strings.Index(out, "resumo"), strings.Index(out, "graficos"), "high priority settles first")
}

func TestFetchCommandSelectsNames(t *testing.T) {
	srv := newAPI(t)
	path := writeConfig(t, srv.URL)

	out, err := executeCommand(t, "fetch", "-c", path, "--env-file", "", "resumo")
	require.NoError(t, err)
	assert.NotContains(t, out, "graficos")
	assert.Contains(t, out, "1 loaded, 0 failed")

	_, err = executeCommand(t, "fetch", "-c", path, "--env-file", "", "carteira")
	assert.ErrorContains(t, err, `unknown endpoint "carteira"`)
}

func TestFetchCommandTimeoutFlag(t *testing.T) {
	srv := newAPI(t)
	content := fmt.Sprintf("base_url: %s/api\nendpoints:\n  - name: lento\n    path: /lento\n    priority: high\n", srv.URL)
	path := filepath.Join(t.TempDir(), "lazyload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	start := time.Now()
	_, err := executeCommand(t, "fetch", "-c", path, "--env-file", "", "--timeout", "50ms")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func newTestFetcher(out io.Writer, cfg *config.Config) *fetcher {
	return &fetcher{
		out:           out,
		log:           logging.Nop(),
		cfg:           cfg,
		clientOptions: []query.Option{query.WithRetryDelay(func(int, error) time.Duration { return 0 })},
	}
}

func TestFetchReportsFailures(t *testing.T) {
	srv := newAPI(t)
	var out bytes.Buffer
	f := newTestFetcher(&out, &config.Config{
		BaseURL:   srv.URL + "/api",
		Timeout:   5 * time.Second,
		CacheSize: 16,
		Endpoints: []config.EndpointConfig{
			{Name: "resumo", Path: "/resumo", Priority: "high"},
			{Name: "quebrado", Path: "/quebrado"},
		},
	})

	err := f.run(context.Background(), nil)
	assert.ErrorIs(t, err, errSomeFailed)
	assert.Contains(t, out.String(), "500 Internal Server Error")
	assert.Contains(t, out.String(), "1 loaded, 1 failed")
}

func TestFetchTimeout(t *testing.T) {
	srv := newAPI(t)
	f := newTestFetcher(io.Discard, &config.Config{
		BaseURL:   srv.URL + "/api",
		Timeout:   100 * time.Millisecond,
		CacheSize: 16,
		Endpoints: []config.EndpointConfig{{Name: "lento", Path: "/lento", Priority: "high"}},
	})

	err := f.run(context.Background(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchNoEndpoints(t *testing.T) {
	f := newTestFetcher(io.Discard, &config.Config{Timeout: time.Second, CacheSize: 1})
	assert.EqualError(t, f.run(context.Background(), nil), "no endpoints configured")
}

func TestHTTPFetcherRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, "<html>")
	}))
	defer srv.Close()

	_, err := httpFetcher(srv.Client(), srv.URL)(context.Background())
	assert.ErrorContains(t, err, "failed to decode")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, `{"a":1}`, preview(map[string]any{"a": 1}))

	long := preview(strings.Repeat("x", 100))
	assert.Equal(t, maxPreview+1, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "…"))
}
