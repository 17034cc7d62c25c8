package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores search responses by parameter cache key.
// A miss is (nil, false, nil); errors are reported but callers treat them as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	Set(ctx context.Context, key string, resp *Response) error
	// Name labels the cache in metrics
	Name() string
}

// LRUCache is an in-process cache bounded in size and entry age
type LRUCache struct {
	lru *expirable.LRU[string, *Response]
}

// NewLRUCache creates an in-process cache of at most size entries living ttl
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		lru: expirable.NewLRU[string, *Response](size, nil, ttl),
	}
}

// Get implements Cache
func (c *LRUCache) Get(_ context.Context, key string) (*Response, bool, error) {
	resp, ok := c.lru.Get(key)
	return resp, ok, nil
}

// Set implements Cache
func (c *LRUCache) Set(_ context.Context, key string, resp *Response) error {
	c.lru.Add(key, resp)
	return nil
}

// Name implements Cache
func (c *LRUCache) Name() string { return "memory" }

// Len returns the number of live entries
func (c *LRUCache) Len() int { return c.lru.Len() }

// RedisCache shares responses between instances through Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis backed cache. Keys are namespaced with prefix.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + "search:" + key
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, key string) (*Response, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, true, nil
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, key string, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Name implements Cache
func (c *RedisCache) Name() string { return "redis" }

// TieredCache checks a local cache before a shared one and refills the local
// cache on a shared hit
type TieredCache struct {
	l1 Cache
	l2 Cache
}

// NewTieredCache combines a local and a shared cache
func NewTieredCache(l1, l2 Cache) *TieredCache {
	return &TieredCache{l1: l1, l2: l2}
}

// Get implements Cache. An L1 error falls through to L2.
func (c *TieredCache) Get(ctx context.Context, key string) (*Response, bool, error) {
	if resp, ok, err := c.l1.Get(ctx, key); err == nil && ok {
		return resp, true, nil
	}

	resp, ok, err := c.l2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	_ = c.l1.Set(ctx, key, resp)
	return resp, true, nil
}

// Set implements Cache. Both tiers are written even if one fails.
func (c *TieredCache) Set(ctx context.Context, key string, resp *Response) error {
	return errors.Join(c.l1.Set(ctx, key, resp), c.l2.Set(ctx, key, resp))
}

// Name implements Cache
func (c *TieredCache) Name() string { return "tiered" }
