// Package factory wires the persistence and discovery backends a session
// runs with.
package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/parksync/internal/dependencies/clock"
	"github.com/mcoot/parksync/internal/dependencies/random"
	"github.com/mcoot/parksync/internal/services/advertise"
	"github.com/mcoot/parksync/internal/services/keys"
	"github.com/mcoot/parksync/internal/session"
	"github.com/mcoot/parksync/internal/storage"
	"github.com/mcoot/parksync/internal/storage/file"
	"github.com/mcoot/parksync/internal/storage/memory"
	redisstorage "github.com/mcoot/parksync/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeFile   = "file"
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// DefaultDataDir is used by the file backend when DataDir is empty
const DefaultDataDir = "registry"

// ErrInvalidStorageType is returned for an unknown StorageType
var ErrInvalidStorageType = errors.New("invalid storage type: must be 'file', 'memory' or 'redis'")

// App contains the wired backends
type App struct {
	Storage    storage.Storage
	Advertiser advertise.Advertiser
	Keys       *keys.Store

	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// StorageType selects the group/known-user backend. Defaults to "file".
	StorageType string
	// DataDir holds groups.json and users.json for the file backend
	DataDir string
	// KeyDir holds player keypairs
	KeyDir string
	// RedisConfig is required for the redis backend and for advertising
	RedisConfig *redisstorage.Config
	// Advertise publishes the server listing to Redis
	Advertise    bool
	AdvertiseTTL time.Duration
	// Logger is optional; nil discards
	Logger *slog.Logger
}

// New creates the backends described by cfg
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	app := &App{
		Advertiser: advertise.Nop{},
		Keys:       keys.NewStore(cfg.KeyDir),
		Clock:      clock.New(),
		Random:     random.New(),
		Logger:     logger,
	}

	var redisStore *redisstorage.Storage
	needRedis := cfg.StorageType == StorageTypeRedis || cfg.Advertise
	if needRedis {
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required for redis storage or advertising")
		}
		var err error
		redisStore, err = redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		app.closers = append(app.closers, redisStore)
	}

	switch cfg.StorageType {
	case "", StorageTypeFile:
		dir := cfg.DataDir
		if dir == "" {
			dir = DefaultDataDir
		}
		store, err := file.New(dir)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Storage = store
	case StorageTypeMemory:
		app.Storage = memory.New()
	case StorageTypeRedis:
		app.Storage = redisStore
	default:
		app.Close()
		return nil, fmt.Errorf("%w: %q", ErrInvalidStorageType, cfg.StorageType)
	}

	if cfg.Advertise {
		app.Advertiser = advertise.NewRedis(redisStore.Client(), cfg.AdvertiseTTL)
	}

	logger.Debug("backends ready",
		slog.String("storage", cfg.StorageType),
		slog.Bool("advertise", cfg.Advertise),
	)
	return app, nil
}

// SessionDeps returns the collaborators for session.New
func (a *App) SessionDeps(notifier session.Notifier) session.Deps {
	return session.Deps{
		Storage:    a.Storage,
		Keys:       a.Keys,
		Advertiser: a.Advertiser,
		Notifier:   notifier,
		Clock:      a.Clock,
		Random:     a.Random,
		Logger:     a.Logger,
	}
}

// Close releases backend connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
