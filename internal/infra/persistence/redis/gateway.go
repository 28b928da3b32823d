// Package redis persists room snapshots as JSON strings in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"roomcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistenceGateway = (*Gateway)(nil)

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "roomcore:snapshot:"

// Client is the subset of the go-redis API the gateway uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Close() error
}

// Options configures a Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Gateway stores one string value per snapshot key.
type Gateway struct {
	client Client
	prefix string
}

// New wraps an existing client.
func New(client Client, prefix string) *Gateway {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Gateway{client: client, prefix: prefix}
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, opts Options) (*Gateway, error) {
	addr := opts.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, opts.Prefix), nil
}

func (g *Gateway) key(key string) string { return g.prefix + key }

// Save writes the snapshot without expiry.
func (g *Gateway) Save(ctx context.Context, key string, state domain.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := g.client.Set(ctx, g.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Load reads the snapshot; a missing key is not an error.
func (g *Gateway) Load(ctx context.Context, key string) (domain.RoomState, bool, error) {
	data, err := g.client.Get(ctx, g.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.RoomState{}, false, nil
	}
	if err != nil {
		return domain.RoomState{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var state domain.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.RoomState{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return state, true, nil
}

// Delete removes the snapshot.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (g *Gateway) Close() error { return g.client.Close() }
