package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidResultType is reported when a cached value does not match the
// type requested by Query or Peek.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// FetchFn loads a value from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Snapshot is the untyped state of one cache entry.
type Snapshot struct {
	Key       Key
	Value     any
	HasValue  bool
	Loading   bool
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

// Invalidator marks cached entries stale. Invalidation never removes the
// last known value; it only forces the next read to refetch.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...Key)
	InvalidatePrefix(ctx context.Context, prefix Key)
	InvalidateAll(ctx context.Context)
}

// QueryService is the shared, process-wide read cache.
//
// Fetch serves the fresh value for key, or calls fetch when the entry is
// missing or invalidated. Concurrent fetches of the same key share one call.
// A failed fetch keeps the last known value in the returned snapshot.
type QueryService interface {
	Invalidator
	Fetch(ctx context.Context, key Key, fetch FetchFn[any]) Snapshot
	Snapshot(key Key) Snapshot
}

// Result is the typed view of a cached read.
type Result[T any] struct {
	Data      T
	HasData   bool
	IsLoading bool
	IsError   bool
	Err       error
	IsStale   bool
	UpdatedAt time.Time
}

// Query reads key through the cache. It never returns an error to the
// caller directly; failures are reported through Result.IsError.
func Query[T any](ctx context.Context, service QueryService, key Key, fetch FetchFn[T]) Result[T] {
	snap := service.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return resultFrom[T](snap)
}

// Peek returns the current state of key without fetching.
func Peek[T any](service QueryService, key Key) Result[T] {
	return resultFrom[T](service.Snapshot(key))
}

func resultFrom[T any](snap Snapshot) Result[T] {
	res := Result[T]{
		IsLoading: snap.Loading,
		Err:       snap.Err,
		IsError:   snap.Err != nil,
		IsStale:   snap.Stale,
		UpdatedAt: snap.UpdatedAt,
	}
	if !snap.HasValue || snap.Value == nil {
		return res
	}

	data, ok := snap.Value.(T)
	if !ok {
		res.Err = ErrInvalidResultType
		res.IsError = true
		return res
	}
	res.Data = data
	res.HasData = true
	return res
}
