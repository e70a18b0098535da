package query

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Options controls how an observer uses its query.
type Options struct {
	// Enabled allows automatic fetches. A disabled observer still reads the
	// shared entry and can be refetched by hand.
	Enabled bool
	// StaleTime is how long data counts as fresh after a successful fetch.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failed fetch.
	Retry int
	// RefetchOnWindowFocus opts the query in to Client.Focus.
	RefetchOnWindowFocus bool
}

// Observer watches one key of a Client.
type Observer[T any] struct {
	id     xid.ID
	client *Client
	entry  *entry

	mutex  sync.RWMutex
	fn     Fetcher[T]
	opts   Options
	closed bool
}

// Observe attaches an observer for key. When opts.Enabled is set and the entry
// has no fresh data, a fetch is started right away.
func Observe[T any](c *Client, key Key, fn Fetcher[T], opts Options) *Observer[T] {
	o := &Observer[T]{
		id:     xid.New(),
		client: c,
		entry:  c.entry(key),
		fn:     fn,
		opts:   opts,
	}
	c.attach(o)
	c.log.Debug("observer attached", "observer", o.id.String(), "key", key.String(), "enabled", opts.Enabled)

	if opts.Enabled && o.entry.shouldFetch(opts.StaleTime, c.clock.Now()) {
		c.fetch(o.entry, o.fetchFunc(), opts.Retry)
	}
	return o
}

// SetOptions replaces the options. Turning Enabled on applies the same fetch
// rule as Observe.
func (o *Observer[T]) SetOptions(opts Options) {
	o.mutex.Lock()
	if o.closed {
		o.mutex.Unlock()
		return
	}
	prev := o.opts
	o.opts = opts
	o.mutex.Unlock()

	if opts.Enabled && !prev.Enabled {
		o.client.log.Debug("observer enabled", "observer", o.id.String(), "key", o.entry.key.String())
		if o.entry.shouldFetch(opts.StaleTime, o.client.clock.Now()) {
			o.client.fetch(o.entry, o.fetchFunc(), opts.Retry)
		}
	}
}

// SetFetcher replaces the fetch function. A fetch already running keeps the
// function it started with.
func (o *Observer[T]) SetFetcher(fn Fetcher[T]) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.fn = fn
}

// Result returns the current state of the query. Data of another type stored
// under the same key reads as the zero value.
func (o *Observer[T]) Result() Result[T] {
	opts := o.options()
	s := o.entry.snapshot(opts.StaleTime, o.client.clock.Now())

	r := Result[T]{
		Err:          s.err,
		Status:       s.status,
		FailureCount: s.failureCount,
		UpdatedAt:    s.updatedAt,
		IsFetching:   s.fetching,
		IsStale:      s.stale,
	}
	if v, ok := s.data.(T); ok {
		r.Data = v
	}
	return r
}

// Refetch fetches the query even if it is disabled or fresh.
func (o *Observer[T]) Refetch() {
	o.refetch()
}

// Close detaches the observer. A fetch already running is not cancelled.
func (o *Observer[T]) Close() {
	o.mutex.Lock()
	if o.closed {
		o.mutex.Unlock()
		return
	}
	o.closed = true
	o.mutex.Unlock()

	o.client.detach(o)
	o.client.log.Debug("observer detached", "observer", o.id.String(), "key", o.entry.key.String())
}

func (o *Observer[T]) observedEntry() *entry {
	return o.entry
}

func (o *Observer[T]) options() Options {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.opts
}

func (o *Observer[T]) refetch() {
	o.mutex.RLock()
	closed, retry := o.closed, o.opts.Retry
	o.mutex.RUnlock()
	if closed {
		return
	}
	o.client.fetch(o.entry, o.fetchFunc(), retry)
}

func (o *Observer[T]) fetchFunc() fetchFunc {
	o.mutex.RLock()
	fn := o.fn
	o.mutex.RUnlock()
	return func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		return v, err
	}
}
