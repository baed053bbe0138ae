package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockQueryService stores values per key and records calls.
type mockQueryService struct {
	mu      sync.Mutex
	calls   []string
	storage map[string]Snapshot
}

func newMockQueryService() *mockQueryService {
	return &mockQueryService{storage: make(map[string]Snapshot)}
}

func (m *mockQueryService) Fetch(ctx context.Context, key Key, fetch FetchFn[any]) Snapshot {
	m.mu.Lock()
	m.calls = append(m.calls, "Fetch:"+key.String())
	snap, ok := m.storage[key.String()]
	m.mu.Unlock()
	if ok && !snap.Stale {
		return snap
	}

	v, err := fetch(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		snap.Key = key
		snap.Err = err
		m.storage[key.String()] = snap
		return snap
	}
	snap = Snapshot{Key: key, Value: v, HasValue: true, UpdatedAt: time.Now()}
	m.storage[key.String()] = snap
	return snap
}

func (m *mockQueryService) Snapshot(key Key) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage[key.String()]
}

func (m *mockQueryService) Invalidate(ctx context.Context, keys ...Key) {}

func (m *mockQueryService) InvalidatePrefix(ctx context.Context, prefix Key) {}

func (m *mockQueryService) InvalidateAll(ctx context.Context) {}

func TestQuery_ValidResult(t *testing.T) {
	svc := newMockQueryService()

	res := Query(context.Background(), svc, LeavesKey(2025), func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})

	if res.IsError {
		t.Fatalf("expected no error but got: %v", res.Err)
	}
	if !res.HasData || len(res.Data) != 2 {
		t.Errorf("expected 2 records, got %+v", res)
	}
}

func TestQuery_ErrorPreservesLastKnownValue(t *testing.T) {
	svc := newMockQueryService()
	key := LeavesKey(2025)
	svc.storage[key.String()] = Snapshot{Key: key, Value: 7, HasValue: true, Stale: true}

	boom := errors.New("boom")
	res := Query(context.Background(), svc, key, func(ctx context.Context) (int, error) {
		return 0, boom
	})

	if !res.IsError || !errors.Is(res.Err, boom) {
		t.Errorf("expected boom error, got %v", res.Err)
	}
	if !res.HasData || res.Data != 7 {
		t.Errorf("expected last known value 7, got %+v", res)
	}
}

func TestQuery_TypeAssertionFailure(t *testing.T) {
	svc := newMockQueryService()
	key := BalancesKey(2025)
	svc.storage[key.String()] = Snapshot{Key: key, Value: "wrong-type", HasValue: true}

	res := Query(context.Background(), svc, key, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if !errors.Is(res.Err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", res.Err)
	}
	if res.Data != 0 {
		t.Errorf("expected zero value (0) but got: %v", res.Data)
	}
}

func TestQuery_NilInterfaceResult(t *testing.T) {
	type SomeInterface interface {
		DoSomething() string
	}
	svc := newMockQueryService()

	res := Query(context.Background(), svc, Prefix("x"), func(ctx context.Context) (SomeInterface, error) {
		return nil, nil
	})

	if res.IsError {
		t.Errorf("expected no error but got: %v", res.Err)
	}
	if res.Data != nil {
		t.Errorf("expected nil result but got: %v", res.Data)
	}
}

func TestPeek_DoesNotFetch(t *testing.T) {
	svc := newMockQueryService()
	key := HolidaysKey(2025)

	res := Peek[[]int](svc, key)
	if res.HasData || res.IsError {
		t.Errorf("expected empty result, got %+v", res)
	}

	svc.storage[key.String()] = Snapshot{Key: key, Value: []int{1}, HasValue: true, Loading: true}
	res = Peek[[]int](svc, key)
	if !res.HasData || !res.IsLoading {
		t.Errorf("expected data with loading flag, got %+v", res)
	}
	if len(svc.calls) != 0 {
		t.Errorf("expected no fetch calls, got %v", svc.calls)
	}
}

func TestNewQueryService(t *testing.T) {
	svc, err := NewQueryService(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewQueryService() failed: %v", err)
	}

	calls := 0
	for i := 0; i < 2; i++ {
		res := Query(context.Background(), svc, ClosuresKey(2025), func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		if res.Data != "ok" {
			t.Errorf("expected ok, got %+v", res)
		}
	}
	if calls != 1 {
		t.Errorf("expected second read to be served from cache, got %d calls", calls)
	}

	svc.Invalidate(context.Background(), ClosuresKey(2025))
	if !Peek[string](svc, ClosuresKey(2025)).IsStale {
		t.Error("expected invalidated key to be stale")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}

	cfg.StaleTime = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero StaleTime")
	}
}

func TestQueryService_ScopesWithSeparatorStayApart(t *testing.T) {
	svc, err := NewQueryService(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewQueryService() failed: %v", err)
	}
	ctx := context.Background()

	Query(ctx, svc, KeyFor(DomainUsers, "team::7"), func(ctx context.Context) (string, error) {
		return "A", nil
	})
	res := Query(ctx, svc, KeyFor(DomainUsers, "team", 7), func(ctx context.Context) (string, error) {
		return "B", nil
	})

	if res.Data != "B" {
		t.Errorf("expected the second scope to fetch its own value, got %q", res.Data)
	}
}
