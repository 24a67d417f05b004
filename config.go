package granary

// Config holds configuration for the granary engine.
type Config struct {
	// MaxRoleDepth bounds the role parent walk. Defaults to 20.
	MaxRoleDepth int `json:"max_role_depth,omitempty"`

	// MaxConcurrentFetches bounds parallel store calls within one
	// resolution. Defaults to 8.
	MaxConcurrentFetches int `json:"max_concurrent_fetches,omitempty"`

	// DisableCache bypasses the configured cache for reads and writes.
	DisableCache bool `json:"disable_cache,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRoleDepth:         20,
		MaxConcurrentFetches: 8,
	}
}

func (c Config) maxRoleDepth() int {
	if c.MaxRoleDepth <= 0 {
		return 20
	}
	return c.MaxRoleDepth
}

func (c Config) maxConcurrentFetches() int {
	if c.MaxConcurrentFetches <= 0 {
		return 8
	}
	return c.MaxConcurrentFetches
}
