package query

import (
	"context"
	"time"
)

// FetchFunc loads the data for key.
type FetchFunc[T any] func(ctx context.Context, key Key) (T, error)

// Query is the page-side view of one read query. It is owned by a single
// goroutine; the fetch itself may run elsewhere and report back through Apply.
type Query[T any] struct {
	Key       Key
	IsLoading bool
	IsError   bool
	Err       error
	Data      T
	HasData   bool
	UpdatedAt time.Time

	fetch FetchFunc[T]
}

// New creates a query for key.
func New[T any](key Key, fetch FetchFunc[T]) *Query[T] {
	return &Query[T]{Key: key, fetch: fetch}
}

// SetKey points the query at a new key. Data of the previous key is dropped;
// cached data for the new key is shown instead when ok is set.
func (q *Query[T]) SetKey(key Key, cached T, ok bool) {
	if key == q.Key {
		return
	}
	var zero T
	q.Key = key
	q.IsLoading = false
	q.IsError = false
	q.Err = nil
	q.Data = zero
	q.HasData = false
	if ok {
		q.Data = cached
		q.HasData = true
	}
}

// Begin marks a fetch as started.
func (q *Query[T]) Begin() {
	q.IsLoading = true
}

// Apply records the outcome of a fetch for key. Results for a key other than
// the current one are ignored and Apply reports false. On error the previous
// data is kept.
func (q *Query[T]) Apply(key Key, data T, err error, at time.Time) bool {
	if key != q.Key {
		return false
	}
	q.IsLoading = false
	if err != nil {
		q.IsError = true
		q.Err = err
		return true
	}
	q.IsError = false
	q.Err = nil
	q.Data = data
	q.HasData = true
	q.UpdatedAt = at
	return true
}

// Refetch runs the fetch synchronously and applies its result.
func (q *Query[T]) Refetch(ctx context.Context) error {
	if q.fetch == nil {
		return nil
	}
	key := q.Key
	q.Begin()
	data, err := q.fetch(ctx, key)
	q.Apply(key, data, err, time.Now())
	return err
}

// Message is the user-facing error text, empty when the last fetch succeeded.
func (q *Query[T]) Message() string {
	if !q.IsError || q.Err == nil {
		return ""
	}
	return q.Err.Error()
}
