package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcoot/parksync/internal/factory"
	redisstorage "github.com/mcoot/parksync/internal/storage/redis"
)

// Config holds CLI configuration
type Config struct {
	LogLevel  string
	LogFormat string
	Output    string

	StorageType string
	DataDir     string
	KeyDir      string
	LogDir      string
	RedisURL    string
	RedisNS     string
}

// DefaultConfig returns a Config with defaults taken from PARKSYNC_*
// environment variables
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    getEnvOrDefault("PARKSYNC_LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("PARKSYNC_LOG_FORMAT", "text"),
		Output:      "text",
		StorageType: getEnvOrDefault("PARKSYNC_STORAGE", factory.StorageTypeFile),
		DataDir:     getEnvOrDefault("PARKSYNC_DATA_DIR", defaultDir("registry")),
		KeyDir:      getEnvOrDefault("PARKSYNC_KEY_DIR", defaultDir("keys")),
		LogDir:      os.Getenv("PARKSYNC_LOG_DIR"),
		RedisURL:    os.Getenv("PARKSYNC_REDIS_URL"),
		RedisNS:     getEnvOrDefault("PARKSYNC_REDIS_NAMESPACE", redisstorage.DefaultNamespace),
	}
}

// NewLogger builds the process logger
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q: must be 'json' or 'text'", c.LogFormat)
}

// FactoryConfig describes the backends for factory.New
func (c *Config) FactoryConfig(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		StorageType: c.StorageType,
		DataDir:     c.DataDir,
		KeyDir:      c.KeyDir,
		Logger:      logger,
	}
	if c.RedisURL != "" {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.Namespace = c.RedisNS
		fc.RedisConfig = &redisCfg
	}
	return fc
}

func defaultDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".parksync", name)
	}
	return filepath.Join(home, ".parksync", name)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
