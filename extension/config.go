package extension

import "time"

// Store drivers understood by the extension.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the granary extension configuration.
// Fields can be set programmatically via ExtOption functions or loaded from
// YAML configuration files (under the "granary" key).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxRoleDepth bounds the role parent walk.
	MaxRoleDepth int `json:"max_role_depth" mapstructure:"max_role_depth" yaml:"max_role_depth"`

	// MaxConcurrentFetches bounds parallel store calls within one resolution.
	MaxConcurrentFetches int `json:"max_concurrent_fetches" mapstructure:"max_concurrent_fetches" yaml:"max_concurrent_fetches"`

	// Driver selects the store when none is supplied with WithStore.
	// For postgres, sqlite and mongo the extension resolves a *grove.DB
	// from the DI container and wraps it with the matching store.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// CacheTTL is how long a resolved permission set stays cached.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// CacheSize caps the number of cached permission sets.
	CacheSize int `json:"cache_size" mapstructure:"cache_size" yaml:"cache_size"`

	// DisableCache turns off resolved-set caching.
	DisableCache bool `json:"disable_cache" mapstructure:"disable_cache" yaml:"disable_cache"`

	// EnableMetrics registers the Prometheus metrics plugin.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRoleDepth:         20,
		MaxConcurrentFetches: 8,
		Driver:               DriverMemory,
		CacheTTL:             5 * time.Minute,
		CacheSize:            10_000,
	}
}
