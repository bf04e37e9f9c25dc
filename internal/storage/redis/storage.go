package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewClient opens and verifies a Redis connection
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client returns the underlying connection so other components can share it
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Group registry operations

func (s *Storage) SaveGroups(ctx context.Context, groups *model.GroupList) error {
	data, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, groupsKey(s.cfg.namespace()), data, 0).Err()
}

func (s *Storage) GetGroups(ctx context.Context) (*model.GroupList, error) {
	data, err := s.client.Get(ctx, groupsKey(s.cfg.namespace())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGroupsNotFound
		}
		return nil, err
	}

	var groups model.GroupList
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}
	return &groups, nil
}

// Known user operations

func (s *Storage) SaveKnownUser(ctx context.Context, user *model.KnownUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, knownUsersKey(s.cfg.namespace()), user.Hash, data).Err()
}

func (s *Storage) GetKnownUser(ctx context.Context, hash string) (*model.KnownUser, error) {
	data, err := s.client.HGet(ctx, knownUsersKey(s.cfg.namespace()), hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrKnownUserNotFound
		}
		return nil, err
	}

	var user model.KnownUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) ListKnownUsers(ctx context.Context) ([]*model.KnownUser, error) {
	entries, err := s.client.HGetAll(ctx, knownUsersKey(s.cfg.namespace())).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*model.KnownUser, 0, len(entries))
	for _, data := range entries {
		var user model.KnownUser
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Hash < users[j].Hash })
	return users, nil
}

func (s *Storage) DeleteKnownUser(ctx context.Context, hash string) error {
	return s.client.HDel(ctx, knownUsersKey(s.cfg.namespace()), hash).Err()
}
