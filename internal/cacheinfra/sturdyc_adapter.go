package cacheinfra

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// maxSupersededRetries bounds how often a read restarts because an
// invalidation landed while its fetch was in flight.
const maxSupersededRetries = 3

// errSuperseded keeps sturdyc from storing a value fetched before an invalidation.
var errSuperseded = errors.New("cacheinfra: fetch superseded by invalidation")

// failedFetch stands in for the value of a failed fetch.
type failedFetch struct{}

// Snapshot is the state of one key as seen by a reader.
type Snapshot struct {
	Segments  []string
	Value     any
	HasValue  bool
	Loading   bool
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

// keyState tracks what sturdyc does not: the last known good value, the
// last error, the invalidation generation and in-flight readers.
type keyState struct {
	mu          sync.Mutex
	segments    []string
	value       any
	hasValue    bool
	updatedAt   time.Time
	err         error
	invalidated bool
	generation  uint64
	inflight    int
}

func (st *keyState) snapshotLocked(now time.Time, staleTime time.Duration) Snapshot {
	stale := st.invalidated
	if st.hasValue && now.Sub(st.updatedAt) >= staleTime {
		stale = true
	}
	return Snapshot{
		Segments:  st.segments,
		Value:     st.value,
		HasValue:  st.hasValue,
		Loading:   st.inflight > 0,
		Err:       st.err,
		Stale:     stale,
		UpdatedAt: st.updatedAt,
	}
}

// SturdycService is the query cache. sturdyc owns the fresh entries (TTL,
// background refresh once StaleTime has passed, in-flight coalescing);
// invalidation deletes the fresh entry but keeps the last known value.
type SturdycService struct {
	client    *sturdyc.Client[any]
	states    *xsync.MapOf[string, *keyState]
	staleTime time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewSturdycService creates a new sturdyc cache service adapter.
// It validates the configuration and initializes a sturdyc client with the provided settings.
func NewSturdycService(cfg Config, logger *slog.Logger) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{
		client:    client,
		states:    xsync.NewMapOf[string, *keyState](),
		staleTime: cfg.StaleTime,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "query_cache")),
	}, nil
}

func hasPrefix(segments, prefix []string) bool {
	if len(prefix) > len(segments) {
		return false
	}
	for i := range prefix {
		if segments[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (s *SturdycService) state(segments []string) *keyState {
	st, _ := s.states.LoadOrCompute(JoinKey(segments), func() *keyState {
		return &keyState{segments: append([]string(nil), segments...)}
	})
	return st
}

// Fetch returns the fresh value for the key, calling fetch on a miss.
// Errors never escape as a return value: they are reported in the snapshot
// next to the last known value.
func (s *SturdycService) Fetch(ctx context.Context, segments []string, fetch func(context.Context) (any, error)) Snapshot {
	key := JoinKey(segments)
	st := s.state(segments)

	st.mu.Lock()
	st.inflight++
	st.mu.Unlock()

	var (
		value any
		err   error
	)
	for attempt := 0; attempt < maxSupersededRetries; attempt++ {
		value, err = s.fetchOnce(ctx, key, st, fetch)
		if !errors.Is(err, errSuperseded) {
			break
		}
		s.logger.Debug("read superseded by invalidation, refetching", slog.String("key", key))
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.inflight--
	if err != nil {
		st.err = err
		fetchErrorsTotal.Inc()
		s.logger.Warn("query fetch failed", slog.String("key", key), slog.Any("error", err))
		return st.snapshotLocked(s.now(), s.staleTime)
	}

	st.err = nil
	snap := st.snapshotLocked(s.now(), s.staleTime)
	snap.Value = value
	snap.HasValue = true
	return snap
}

func (s *SturdycService) fetchOnce(ctx context.Context, key string, st *keyState, fetch func(context.Context) (any, error)) (any, error) {
	st.mu.Lock()
	generation := st.generation
	st.mu.Unlock()

	var fetched atomic.Bool
	value, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		fetched.Store(true)
		v, err := fetch(ctx)
		if err == nil && !s.remember(st, generation, v) {
			err = errSuperseded
		}
		if err != nil {
			// sturdyc replaces err with ErrInvalidType when the value is a nil any.
			return failedFetch{}, err
		}
		return v, nil
	})
	if err != nil {
		value = nil
	}

	if fetched.Load() {
		missesTotal.Inc()
		s.logger.Debug("query cache miss", slog.String("key", key))
	} else if err == nil {
		hitsTotal.Inc()
	}
	return value, err
}

// remember stores v as the last known value unless the key was invalidated
// after the fetch started.
func (s *SturdycService) remember(st *keyState, generation uint64, v any) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.generation != generation {
		return false
	}
	st.value = v
	st.hasValue = true
	st.updatedAt = s.now()
	st.err = nil
	st.invalidated = false
	return true
}

// Snapshot reports the current state of the key without fetching.
func (s *SturdycService) Snapshot(segments []string) Snapshot {
	st, ok := s.states.Load(JoinKey(segments))
	if !ok {
		return Snapshot{Segments: segments}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshotLocked(s.now(), s.staleTime)
}

func (s *SturdycService) invalidate(key string, st *keyState) {
	s.client.Delete(key)
	st.mu.Lock()
	st.generation++
	st.invalidated = true
	st.mu.Unlock()
}

// Invalidate marks the given keys stale.
func (s *SturdycService) Invalidate(ctx context.Context, keys ...[]string) {
	for _, segments := range keys {
		key := JoinKey(segments)
		if st, ok := s.states.Load(key); ok {
			s.invalidate(key, st)
		} else {
			s.client.Delete(key)
		}
		invalidationsTotal.WithLabelValues("key").Inc()
		s.logger.Debug("invalidated key", slog.String("key", key))
	}
}

// InvalidatePrefix marks every key whose leading segments equal prefix stale.
func (s *SturdycService) InvalidatePrefix(ctx context.Context, prefix []string) {
	count := 0
	s.states.Range(func(key string, st *keyState) bool {
		if hasPrefix(st.segments, prefix) {
			s.invalidate(key, st)
			count++
		}
		return true
	})
	invalidationsTotal.WithLabelValues("prefix").Inc()
	s.logger.Debug("invalidated prefix",
		slog.String("prefix", JoinKey(prefix)),
		slog.Int("keys", count),
	)
}

// InvalidateAll marks every key stale.
func (s *SturdycService) InvalidateAll(ctx context.Context) {
	s.states.Range(func(key string, st *keyState) bool {
		s.invalidate(key, st)
		return true
	})
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	invalidationsTotal.WithLabelValues("all").Inc()
	s.logger.Debug("invalidated all keys")
}
