// Package extension provides a Forge extension entry point for granary.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/granary"
	"github.com/xraph/granary/api"
	"github.com/xraph/granary/cache"
	"github.com/xraph/granary/plugin"
	"github.com/xraph/granary/plugin/metrics"
	"github.com/xraph/granary/store"
	"github.com/xraph/granary/store/memory"
	"github.com/xraph/granary/store/mongo"
	"github.com/xraph/granary/store/postgres"
	"github.com/xraph/granary/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "granary"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-tenant permission resolution with roles, groups and deny overrides"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts granary as a Forge extension.
type Extension struct {
	config     Config
	eng        *granary.Engine
	apiHandler *api.API
	logger     *slog.Logger
	store      store.Store
	engineOpts []granary.Option
	plugins    []plugin.Plugin
	registry   *prometheus.Registry
	metrics    *metrics.Plugin
}

// New creates a granary Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying granary engine.
func (e *Extension) Engine() *granary.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Metrics returns the metrics plugin, or nil when metrics are disabled.
func (e *Extension) Metrics() *metrics.Plugin { return e.metrics }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*granary.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("granary: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	s, err := e.resolveStore(fapp)
	if err != nil {
		return err
	}

	opts := make([]granary.Option, 0, len(e.engineOpts)+len(e.plugins)+5)
	opts = append(opts,
		granary.WithLogger(logger),
		granary.WithStore(s),
		granary.WithConfig(granary.Config{
			MaxRoleDepth:         e.config.MaxRoleDepth,
			MaxConcurrentFetches: e.config.MaxConcurrentFetches,
			DisableCache:         e.config.DisableCache,
		}),
	)
	if !e.config.DisableCache {
		opts = append(opts, granary.WithCache(cache.NewMemory(
			cache.WithTTL(e.config.CacheTTL),
			cache.WithMaxSize(e.config.CacheSize),
		)))
	}

	// User-provided options may override any of the above.
	opts = append(opts, e.engineOpts...)

	if e.config.EnableMetrics {
		if e.registry == nil {
			e.registry = prometheus.NewRegistry()
		}
		e.metrics = metrics.New(e.registry)
		opts = append(opts, granary.WithPlugin(e.metrics))
	}
	for _, x := range e.plugins {
		opts = append(opts, granary.WithPlugin(x))
	}

	eng, err := granary.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("granary: create engine: %w", err)
	}
	e.eng = eng

	e.apiHandler = api.New(eng, fapp.Router())

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("granary: register routes: %w", err)
		}
	}

	logger.Info("granary extension registered",
		"driver", e.driverName(),
		"cache", !e.config.DisableCache,
		"metrics", e.config.EnableMetrics,
	)
	return nil
}

// resolveStore picks the store: explicit option first, then one registered
// in the container, then one built from Config.Driver.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		e.store = s
		return s, nil
	}

	switch e.config.Driver {
	case "", DriverMemory:
		e.store = memory.New()
		return e.store, nil
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return nil, fmt.Errorf("granary: unknown store driver %q", e.config.Driver)
	}

	db, err := forge.Inject[*grove.DB](fapp.Container())
	if err != nil {
		return nil, fmt.Errorf("granary: resolve grove database for %s: %w", e.config.Driver, err)
	}
	switch e.config.Driver {
	case DriverPostgres:
		e.store = postgres.New(db)
	case DriverSQLite:
		e.store = sqlite.New(db)
	case DriverMongo:
		e.store = mongo.New(db)
	}
	return e.store, nil
}

func (e *Extension) driverName() string {
	if e.config.Driver == "" {
		return DriverMemory
	}
	return e.config.Driver
}

// Start runs migrations if enabled and starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("granary: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if s := e.eng.Store(); s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("granary: migration failed: %w", err)
			}
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("granary: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("granary: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all granary API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
