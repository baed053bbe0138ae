package di

import (
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/kronos-sync/internal/config"
	"github.com/goliatone/kronos-sync/internal/logging"
	"github.com/goliatone/kronos-sync/notify"
	"github.com/goliatone/kronos-sync/realtime"
)

func testConfig(apiURL string) config.Config {
	return config.Config{
		APIURL:        apiURL,
		HTTPTimeout:   5 * time.Second,
		ReadRetries:   2,
		StaleTime:     5 * time.Minute,
		CacheTTL:      30 * time.Minute,
		CacheCapacity: 100,
		LogFormat:     "text",
	}
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig("http://localhost:8000")

	container, err := NewContainer(cfg, WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.QueryCache() == nil || container.API() == nil || container.Calendars() == nil {
		t.Fatal("Container should initialize every component")
	}
	if container.Subscriptions() == nil || container.Bus() == nil || container.Bridge() == nil {
		t.Fatal("Container should initialize every component")
	}
	if container.Config().CacheCapacity != cfg.CacheCapacity {
		t.Errorf("Expected capacity %d, got %d", cfg.CacheCapacity, container.Config().CacheCapacity)
	}
}

func TestNewContainer_InvalidCacheConfig(t *testing.T) {
	cfg := testConfig("http://localhost:8000")
	cfg.CacheCapacity = 0

	if _, err := NewContainer(cfg); err == nil {
		t.Error("NewContainer() should fail with an invalid cache config")
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	t.Setenv("KRONOS_API_URL", "http://calendar.internal:8000")

	container, err := NewContainerWithDefaults(WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	if container.Config().APIURL != "http://calendar.internal:8000" {
		t.Errorf("unexpected api url %q", container.Config().APIURL)
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainer(testConfig("http://localhost:8000"), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	if container.QueryCache() != container.QueryCache() {
		t.Error("QueryCache() should return the same instance")
	}
	if container.Calendars() != container.Calendars() {
		t.Error("Calendars() should return the same instance")
	}
}

func TestContainer_StartAndClose(t *testing.T) {
	rec := notify.NewRecorder()
	container, err := NewContainer(testConfig("http://localhost:8000"),
		WithLogger(logging.Discard()),
		WithNotifier(rec),
	)
	if err != nil {
		t.Fatal(err)
	}
	if container.Notifier() != rec {
		t.Error("expected the injected notifier")
	}

	if err := container.Start(); err != nil {
		t.Fatal(err)
	}
	if container.Bridge().State() != realtime.Attached {
		t.Fatal("expected the bridge to be attached after Start")
	}

	container.Close()
	if container.Bridge().State() != realtime.Detached {
		t.Fatal("expected the bridge to be detached after Close")
	}
	if n, r := container.Bus().Listeners(); n != 0 || r != 0 {
		t.Errorf("listeners leaked: %d, %d", n, r)
	}
}

func TestNewContainer_InjectedHTTPClientUntouched(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}

	if _, err := NewContainer(testConfig("http://localhost:8000"), WithHTTPClient(hc), WithLogger(logging.Discard())); err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if hc.Timeout != time.Minute {
		t.Errorf("Expected injected client timeout to stay 1m, got %v", hc.Timeout)
	}
}
