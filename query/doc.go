// Package query is a keyed query cache. Observers attach to a key with a
// fetch function and options (enabled, stale time, retry count, refetch on
// focus). Observers of the same key share one entry, and at most one fetch per
// key runs at a time.
//
// The client never blocks its callers: fetches run in their own goroutine and
// observers read snapshots through Result.
package query
