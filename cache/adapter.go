package cache

import (
	"context"

	"github.com/goliatone/kronos-sync/internal/cacheinfra"
)

// queryAdapter translates between Key tuples and the segment slices used by
// the internal sturdyc service.
type queryAdapter struct {
	svc *cacheinfra.SturdycService
}

var _ QueryService = (*queryAdapter)(nil)

func (a *queryAdapter) Fetch(ctx context.Context, key Key, fetch FetchFn[any]) Snapshot {
	return fromInternal(a.svc.Fetch(ctx, key, fetch))
}

func (a *queryAdapter) Snapshot(key Key) Snapshot {
	return fromInternal(a.svc.Snapshot(key))
}

func (a *queryAdapter) Invalidate(ctx context.Context, keys ...Key) {
	segments := make([][]string, len(keys))
	for i, k := range keys {
		segments[i] = k
	}
	a.svc.Invalidate(ctx, segments...)
}

func (a *queryAdapter) InvalidatePrefix(ctx context.Context, prefix Key) {
	a.svc.InvalidatePrefix(ctx, prefix)
}

func (a *queryAdapter) InvalidateAll(ctx context.Context) {
	a.svc.InvalidateAll(ctx)
}

func fromInternal(s cacheinfra.Snapshot) Snapshot {
	return Snapshot{
		Key:       Key(s.Segments),
		Value:     s.Value,
		HasValue:  s.HasValue,
		Loading:   s.Loading,
		Err:       s.Err,
		Stale:     s.Stale,
		UpdatedAt: s.UpdatedAt,
	}
}
