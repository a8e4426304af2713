// Package cache stores rendered chart payloads keyed by chart request id.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a cached chart stays valid.
const DefaultTTL = 10 * time.Minute

// DefaultPrefix namespaces cache keys.
const DefaultPrefix = "fuel-price-lab:chart:"

// ChartCache stores chart payloads.
type ChartCache interface {
	// Get returns the payload stored under id. ok is false on a miss.
	Get(ctx context.Context, id string) (payload []byte, ok bool, err error)
	Set(ctx context.Context, id string, payload []byte) error
	Close() error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error { return nil }
func (Noop) Close() error { return nil }

// Redis implements ChartCache on Redis strings with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures Redis.
type Option func(*Redis)

// WithTTL sets the entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(r *Redis) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(p string) Option {
	return func(r *Redis) {
		r.prefix = p
	}
}

// NewRedis creates a cache on addr (host:port).
func NewRedis(addr string, opts ...Option) *Redis {
	return newRedis(redis.NewClient(&redis.Options{Addr: addr}), opts)
}

// NewRedisWithURL creates a cache from a redis:// URL.
func NewRedisWithURL(url string, opts ...Option) (*Redis, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedis(redis.NewClient(o), opts), nil
}

func newRedis(client *redis.Client, opts []Option) *Redis {
	r := &Redis{client: client, prefix: DefaultPrefix, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get implements ChartCache.
func (r *Redis) Get(ctx context.Context, id string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return b, true, nil
}

// Set implements ChartCache.
func (r *Redis) Set(ctx context.Context, id string, payload []byte) error {
	if err := r.client.Set(ctx, r.prefix+id, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var (
	_ ChartCache = Noop{}
	_ ChartCache = (*Redis)(nil)
)
