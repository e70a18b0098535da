package query

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Fetcher loads the value of a query
type Fetcher[T any] func(ctx context.Context) (T, error)

// RetryDelayFunc returns how long to wait before the next attempt after the
// given (zero based) failed attempt.
type RetryDelayFunc func(attempt int, err error) time.Duration

// DefaultCacheSize is the number of entries kept by the default ARC driver.
const DefaultCacheSize = 1024

type config struct {
	driver     CacheDriver
	clock      clockwork.Clock
	log        *slog.Logger
	ctx        context.Context
	retryDelay RetryDelayFunc
}

type Option func(cfg *config)

// WithDriver sets the storage for cache entries.
func WithDriver(driver CacheDriver) Option {
	return func(cfg *config) {
		cfg.driver = driver
	}
}

// WithInMemoryCache stores entries in an unbounded map.
func WithInMemoryCache() Option {
	return func(cfg *config) {
		cfg.driver = InMemoryCache()
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(cfg *config) {
		cfg.log = log
	}
}

// WithContext sets the parent context of every fetch. Cancelling it has the
// same effect as closing the client.
func WithContext(ctx context.Context) Option {
	return func(cfg *config) {
		cfg.ctx = ctx
	}
}

func WithRetryDelay(fn RetryDelayFunc) Option {
	return func(cfg *config) {
		cfg.retryDelay = fn
	}
}

// DefaultRetryDelay doubles from one second and stops growing at 30 seconds.
func DefaultRetryDelay(attempt int, _ error) time.Duration {
	if attempt >= 5 {
		return 30 * time.Second
	}
	d := time.Second << attempt
	return min(d, 30*time.Second)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
