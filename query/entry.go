package query

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is the shared state of one key.
type entry struct {
	key Key

	mutex        sync.RWMutex
	data         any
	err          error
	status       Status
	updatedAt    time.Time
	failureCount int
	invalidated  bool
	// invalidations counts invalidate calls so a fetch can tell whether it
	// was invalidated while running.
	invalidations uint64

	isFetching int32
}

func newEntry(key Key) *entry {
	return &entry{key: key}
}

func (e *entry) fetching() bool {
	return atomic.LoadInt32(&e.isFetching) == 1
}

// isStale reports whether the data is older than staleTime or was
// invalidated. An entry without data is always stale.
func (e *entry) isStale(staleTime time.Duration, now time.Time) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.staleLocked(staleTime, now)
}

func (e *entry) staleLocked(staleTime time.Duration, now time.Time) bool {
	if e.invalidated || e.updatedAt.IsZero() {
		return true
	}
	return now.Sub(e.updatedAt) >= staleTime
}

// shouldFetch is the rule applied when an observer mounts or gets enabled.
func (e *entry) shouldFetch(staleTime time.Duration, now time.Time) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.status != StatusSuccess || e.staleLocked(staleTime, now)
}

// beginFetch resets the failure count of a new fetch and returns the
// invalidation mark to pass to succeedFetch.
func (e *entry) beginFetch() uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.failureCount = 0
	return e.invalidations
}

// succeed stores value as fresh data.
func (e *entry) succeed(value any, now time.Time) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.storeLocked(value, now)
	e.invalidated = false
}

// succeedFetch stores the value of a fetch started at mark. The entry stays
// invalidated if it was invalidated after the fetch started.
func (e *entry) succeedFetch(value any, now time.Time, mark uint64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.storeLocked(value, now)
	if e.invalidations == mark {
		e.invalidated = false
	}
}

func (e *entry) storeLocked(value any, now time.Time) {
	e.data = value
	e.err = nil
	e.status = StatusSuccess
	e.updatedAt = now
	e.failureCount = 0
}

func (e *entry) failAttempt() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.failureCount++
}

// fail settles the entry as errored. Data from a previous success is kept.
func (e *entry) fail(err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.err = err
	e.status = StatusError
}

func (e *entry) invalidate() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.invalidated = true
	e.invalidations++
}

type snapshot struct {
	data         any
	err          error
	status       Status
	updatedAt    time.Time
	failureCount int
	fetching     bool
	stale        bool
}

func (e *entry) snapshot(staleTime time.Duration, now time.Time) snapshot {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return snapshot{
		data:         e.data,
		err:          e.err,
		status:       e.status,
		updatedAt:    e.updatedAt,
		failureCount: e.failureCount,
		fetching:     e.fetching(),
		stale:        e.staleLocked(staleTime, now),
	}
}
