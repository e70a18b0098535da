package lazyload

import (
	"log/slog"
	"sync"
	"time"

	"github.com/abihf/lazy-loader/query"
)

// QueryOptions configures a LazyQuery. The zero value is an enabled query of
// medium priority without extra delay.
type QueryOptions struct {
	Disabled bool
	Priority Priority
	// Delay is added to the delay of the priority.
	Delay time.Duration
}

// observation is the part of *query.Observer a LazyQuery uses.
type observation[T any] interface {
	SetOptions(opts query.Options)
	SetFetcher(fn query.Fetcher[T])
	Result() query.Result[T]
	Refetch()
	Close()
}

type observeFunc[T any] func(key query.Key, opts query.Options) observation[T]

// LazyQuery is a query that only becomes enabled once its gate opened. Its
// cache policy follows its priority.
type LazyQuery[T any] struct {
	key  query.Key
	log  *slog.Logger
	gate *Gate

	// applyMu orders the calls into the observer. It is never held together
	// with mu, so cache listeners may read the query.
	applyMu sync.Mutex
	mu      sync.Mutex
	obs     observation[T]
	opts    QueryOptions
	opened  bool
	closed  bool
}

// Query creates a LazyQuery for key. The caller must Close it.
func Query[T any](l *Loader, key query.Key, fn query.Fetcher[T], opts QueryOptions) *LazyQuery[T] {
	return newLazyQuery(l, key, opts, observerOf(l.client, fn))
}

func observerOf[T any](c *query.Client, fn query.Fetcher[T]) observeFunc[T] {
	return func(key query.Key, opts query.Options) observation[T] {
		return query.Observe(c, key, fn, opts)
	}
}

func newLazyQuery[T any](l *Loader, key query.Key, opts QueryOptions, observe observeFunc[T]) *LazyQuery[T] {
	q := &LazyQuery[T]{
		key:  key,
		log:  l.log.With("key", key.String()),
		opts: opts,
	}
	q.obs = observe(key, q.queryOptionsLocked())
	q.gate = NewGate(l.clock, !opts.Disabled, opts.Priority, opts.Delay, q.activate)
	q.log.Debug("lazy query created", "priority", opts.Priority.String(), "delay", q.gate.Delay())
	return q
}

func (q *LazyQuery[T]) queryOptionsLocked() query.Options {
	return q.opts.Priority.Policy().Options(!q.opts.Disabled && q.opened)
}

// activate runs once, when the gate opens.
func (q *LazyQuery[T]) activate() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.opened = true
	q.mu.Unlock()

	q.log.Debug("lazy query activated")
	q.sync()
}

// sync pushes the current options to the observer.
func (q *LazyQuery[T]) sync() {
	q.applyMu.Lock()
	defer q.applyMu.Unlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	obs, opts := q.obs, q.queryOptionsLocked()
	q.mu.Unlock()

	obs.SetOptions(opts)
}

// Update applies new options. A changed priority or delay restarts the wait of
// a gate that has not opened yet.
func (q *LazyQuery[T]) Update(opts QueryOptions) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.opts = opts
	q.mu.Unlock()

	q.gate.Update(!opts.Disabled, opts.Priority, opts.Delay)
	q.sync()
}

// rebind moves the query to another key, keeping its gate.
func (q *LazyQuery[T]) rebind(key query.Key, observe observeFunc[T]) {
	q.applyMu.Lock()
	defer q.applyMu.Unlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	opts := q.queryOptionsLocked()
	q.mu.Unlock()

	obs := observe(key, opts)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		obs.Close()
		return
	}
	prev := q.obs
	q.key = key
	q.obs = obs
	q.mu.Unlock()

	prev.Close()
}

// setFetcher replaces the fetch function used by later fetches.
func (q *LazyQuery[T]) setFetcher(fn query.Fetcher[T]) {
	q.mu.Lock()
	obs := q.obs
	q.mu.Unlock()
	obs.SetFetcher(fn)
}

// Key returns the key the query observes.
func (q *LazyQuery[T]) Key() query.Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// Result returns the observer's result as is.
func (q *LazyQuery[T]) Result() query.Result[T] {
	q.mu.Lock()
	obs := q.obs
	q.mu.Unlock()
	return obs.Result()
}

// Opened reports whether the activation delay has elapsed.
func (q *LazyQuery[T]) Opened() bool {
	return q.gate.Opened()
}

// Refetch fetches the query now, bypassing the gate.
func (q *LazyQuery[T]) Refetch() {
	q.mu.Lock()
	obs := q.obs
	q.mu.Unlock()
	obs.Refetch()
}

// Close stops the gate and detaches from the cache.
func (q *LazyQuery[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	obs := q.obs
	q.mu.Unlock()

	q.gate.Close()
	obs.Close()
}
