// Package advertise publishes a listing record for a running server so
// external tooling can discover it.
package advertise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a listing survives without a refresh
const DefaultTTL = 60 * time.Second

// Listing describes one server
type Listing struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Version          string    `json:"version"`
	Address          string    `json:"address"`
	Players          int       `json:"players"`
	MaxPlayers       int       `json:"maxPlayers"`
	RequiresPassword bool      `json:"requiresPassword"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Advertiser publishes and withdraws listings
type Advertiser interface {
	Publish(ctx context.Context, l Listing) error
	Withdraw(ctx context.Context, id string) error
}

// Nop discards listings
type Nop struct{}

func (Nop) Publish(context.Context, Listing) error { return nil }
func (Nop) Withdraw(context.Context, string) error { return nil }

const keyPrefix = "parksync:servers"

func listingKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}

// Redis stores each listing under its own key with a TTL
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Ensure Redis implements Advertiser
var _ Advertiser = (*Redis)(nil)

// NewRedis creates an advertiser on an existing client
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Publish writes or refreshes a listing
func (a *Redis) Publish(ctx context.Context, l Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, listingKey(l.ID), data, a.ttl).Err()
}

// Withdraw removes a listing
func (a *Redis) Withdraw(ctx context.Context, id string) error {
	return a.client.Del(ctx, listingKey(id)).Err()
}

// List returns every live listing ordered by id
func (a *Redis) List(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	iter := a.client.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := a.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var l Listing
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings, nil
}
