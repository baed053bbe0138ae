package di

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/goliatone/kronos-sync/cache"
	"github.com/goliatone/kronos-sync/calendarapi"
	"github.com/goliatone/kronos-sync/calendars"
	"github.com/goliatone/kronos-sync/internal/config"
	"github.com/goliatone/kronos-sync/notify"
	"github.com/goliatone/kronos-sync/realtime"
	"github.com/goliatone/kronos-sync/subscriptions"
)

// Container wires the sync layer: one query cache shared by every hook, the
// calendar API client, the realtime bus and its bridge.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	queryCache    cache.QueryService
	api           *calendarapi.Client
	notifier      notify.Notifier
	calendars     *calendars.SystemCalendars
	subscriptions *subscriptions.Accessor
	bus           *realtime.Bus
	bridge        *realtime.Bridge
}

// Option customizes a Container.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	notifier   notify.Notifier
	httpClient *http.Client
	routes     realtime.Routes
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNotifier replaces the slog backed notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithHTTPClient replaces the HTTP client of the calendar API.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRoutes replaces the realtime routing table.
func WithRoutes(routes realtime.Routes) Option {
	return func(o *options) { o.routes = routes }
}

// NewContainer builds every component from cfg. The bridge starts detached;
// call Start to attach it to the bus.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.notifier == nil {
		o.notifier = notify.NewLogNotifier(o.logger)
	}

	queryCache, err := cache.NewQueryService(cfg.CacheConfig(), o.logger)
	if err != nil {
		return nil, err
	}

	api := calendarapi.New(cfg.APIURL,
		calendarapi.WithHTTPClient(o.httpClient),
		calendarapi.WithTimeout(cfg.HTTPTimeout),
		calendarapi.WithToken(cfg.APIToken),
		calendarapi.WithReadRetries(cfg.ReadRetries, 200*time.Millisecond),
		calendarapi.WithLogger(o.logger),
	)

	bus := realtime.NewBus()

	return &Container{
		config:        cfg,
		logger:        o.logger,
		queryCache:    queryCache,
		api:           api,
		notifier:      o.notifier,
		calendars:     calendars.New(api, queryCache, o.notifier, calendars.WithLogger(o.logger)),
		subscriptions: subscriptions.New(api, o.notifier, subscriptions.WithLogger(o.logger)),
		bus:           bus,
		bridge:        realtime.NewBridge(queryCache, o.routes, o.logger),
	}, nil
}

// NewContainerWithDefaults loads the configuration from the environment.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(*cfg, opts...)
}

// Start attaches the realtime bridge to the bus.
func (c *Container) Start() error {
	return c.bridge.Attach(c.bus)
}

// Close detaches the realtime bridge.
func (c *Container) Close() {
	c.bridge.Detach()
}

// QueryCache returns the process wide query cache.
func (c *Container) QueryCache() cache.QueryService {
	return c.queryCache
}

// API returns the calendar service client.
func (c *Container) API() *calendarapi.Client {
	return c.api
}

// Notifier returns the notifier shared by the hooks.
func (c *Container) Notifier() notify.Notifier {
	return c.notifier
}

// Calendars returns the system calendars hook.
func (c *Container) Calendars() *calendars.SystemCalendars {
	return c.calendars
}

// Subscriptions returns the subscription link accessor.
func (c *Container) Subscriptions() *subscriptions.Accessor {
	return c.subscriptions
}

// Bus returns the realtime bus.
func (c *Container) Bus() *realtime.Bus {
	return c.bus
}

// Bridge returns the realtime bridge.
func (c *Container) Bridge() *realtime.Bridge {
	return c.bridge
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}
