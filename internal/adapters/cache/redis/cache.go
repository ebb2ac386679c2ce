package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

// Cache stores tool responses in redis so repeated runs over the same
// dataset skip identical NCBI lookups.
type Cache struct {
	client *redis.Client
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
}

var _ ports.ToolCache = (*Cache)(nil)

type Option func(*Cache)

// WithPrefix namespaces every key, e.g. per experiment.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

func NewCache(client *redis.Client, opts ...Option) *Cache {
	cache := &Cache{client: client}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Open parses a redis:// URL and checks the server is reachable.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Cache, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewCache(client, opts...), nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, fmt.Errorf("get cached tool response: %w", err)
	}
	c.hits.Add(1)
	return value, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set cached tool response: %w", err)
	}
	return nil
}

type Stats struct {
	Hits   int64
	Misses int64
}

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *Cache) Close() error {
	return c.client.Close()
}
