package redis

// DefaultNamespace prefixes every registry key
const DefaultNamespace = "parksync"

// Config holds Redis connection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Namespace separates the registries of parks sharing one Redis
	Namespace string

	PoolSize     int
	MinIdleConns int
}

// DefaultConfig returns the settings used when only a URL is given
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		Namespace:    DefaultNamespace,
		PoolSize:     4,
		MinIdleConns: 1,
	}
}

func (c Config) namespace() string {
	if c.Namespace == "" {
		return DefaultNamespace
	}
	return c.Namespace
}
