package lazyload

import (
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

type config struct {
	clock clockwork.Clock
	log   *slog.Logger
}

type Option func(cfg *config)

// WithClock sets the clock gates are scheduled on.
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

func newConfig(options []Option) *config {
	cfg := &config{
		clock: clockwork.NewRealClock(),
	}
	for _, o := range options {
		o(cfg)
	}
	if cfg.log == nil {
		cfg.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}
