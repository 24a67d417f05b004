package extension

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/granary"
	"github.com/xraph/granary/plugin"
	"github.com/xraph/granary/store"
)

// ExtOption configures the granary Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend, overriding Config.Driver.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...granary.Option) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithMetricsRegistry enables the metrics plugin on the given registry.
func WithMetricsRegistry(r *prometheus.Registry) ExtOption {
	return func(e *Extension) {
		e.config.EnableMetrics = true
		e.registry = r
	}
}
