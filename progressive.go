package lazyload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abihf/lazy-loader/query"
)

// ErrDescriptorCountChanged is returned by Progressive.Update when the number
// of descriptors differs from the one the Progressive was created with.
var ErrDescriptorCountChanged = errors.New("lazyload: descriptor count changed")

// Descriptor describes one member of a Progressive.
type Descriptor[T any] struct {
	Key      query.Key
	Fn       query.Fetcher[T]
	Priority Priority
	Delay    time.Duration
}

// Status summarizes a set of results.
type Status struct {
	AnyLoading bool
	AnyErrored bool
	// AllSettled is true when every result is a success or an error. It is
	// true for an empty set.
	AllSettled bool
}

// Aggregate folds results into a Status.
func Aggregate[T any](results []query.Result[T]) Status {
	st := Status{AllSettled: true}
	for _, r := range results {
		st.AnyLoading = st.AnyLoading || r.IsLoading()
		st.AnyErrored = st.AnyErrored || r.IsError()
		st.AllSettled = st.AllSettled && r.IsSettled()
	}
	return st
}

// Progressive runs one LazyQuery per descriptor, each with its own gate, so
// that higher priority data is requested first.
//
// The number and order of descriptors is fixed for the lifetime of a
// Progressive. Update rejects a list of a different length.
type Progressive[T any] struct {
	loader  *Loader
	queries []*LazyQuery[T]
}

// NewProgressive starts a LazyQuery for every descriptor, in order. The caller
// must Close it.
func NewProgressive[T any](l *Loader, descriptors []Descriptor[T]) *Progressive[T] {
	p := &Progressive[T]{
		loader:  l,
		queries: make([]*LazyQuery[T], 0, len(descriptors)),
	}
	for _, d := range descriptors {
		p.queries = append(p.queries, Query(l, d.Key, d.Fn, d.options()))
	}
	return p
}

func (d Descriptor[T]) options() QueryOptions {
	return QueryOptions{Priority: d.Priority, Delay: d.Delay}
}

// Len returns the number of members.
func (p *Progressive[T]) Len() int {
	return len(p.queries)
}

// Results returns the result of every member, in descriptor order.
func (p *Progressive[T]) Results() []query.Result[T] {
	results := make([]query.Result[T], len(p.queries))
	for i, q := range p.queries {
		results[i] = q.Result()
	}
	return results
}

// Status aggregates the current results.
func (p *Progressive[T]) Status() Status {
	return Aggregate(p.Results())
}

// Update applies new descriptors position by position. A member whose key
// changed moves to the new key and keeps its gate. Otherwise the new fetch
// function is used from the next fetch on.
func (p *Progressive[T]) Update(descriptors []Descriptor[T]) error {
	if len(descriptors) != len(p.queries) {
		return fmt.Errorf("%w: have %d, got %d", ErrDescriptorCountChanged, len(p.queries), len(descriptors))
	}
	for i, d := range descriptors {
		q := p.queries[i]
		if !slices.Equal(q.Key(), d.Key) {
			q.rebind(d.Key, observerOf(p.loader.client, d.Fn))
		} else {
			q.setFetcher(d.Fn)
		}
		q.Update(d.options())
	}
	return nil
}

// Wait blocks until every member settled or ctx is done. It returns the last
// status seen.
func (p *Progressive[T]) Wait(ctx context.Context) (Status, error) {
	changed := make(chan struct{}, 1)
	unsubscribe := p.loader.client.Subscribe(func(query.Key) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		st := p.Status()
		if st.AllSettled {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return p.Status(), ctx.Err()
		}
	}
}

// Close closes every member.
func (p *Progressive[T]) Close() {
	for _, q := range p.queries {
		q.Close()
	}
}
