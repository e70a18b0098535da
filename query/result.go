package query

import "time"

// Status is the settled state of a cache entry.
type Status int

const (
	// StatusPending means the entry has neither data nor an error yet. A
	// disabled query that was never fetched stays pending.
	StatusPending Status = iota
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Result is a snapshot of a query as seen by one observer.
type Result[T any] struct {
	Data         T
	Err          error
	Status       Status
	FailureCount int
	// UpdatedAt is the time of the last successful fetch.
	UpdatedAt  time.Time
	IsFetching bool
	IsStale    bool
}

// IsLoading reports whether the query has not settled yet, whether or not a
// fetch is running.
func (r Result[T]) IsLoading() bool {
	return r.Status == StatusPending
}

func (r Result[T]) IsError() bool {
	return r.Status == StatusError
}

func (r Result[T]) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// IsSettled reports whether the query reached success or error.
func (r Result[T]) IsSettled() bool {
	return r.IsSuccess() || r.IsError()
}
