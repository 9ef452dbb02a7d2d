package service

import (
	"context"
	"errors"
	"time"

	"quiz_bank_backend/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ExplanationCache 解析的热缓存层，未命中或出错时返回 false
type ExplanationCache interface {
	Layer() string
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// NewExplanationCache 按配置选择内存或 redis；redis 不可用时退回内存
func NewExplanationCache(cfg config.AICacheConfig, rdb *redis.Client) ExplanationCache {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if cfg.Type == "redis" && rdb != nil {
		return NewRedisExplanationCache(rdb, ttl)
	}
	return NewMemoryExplanationCache(ttl, cfg.MaxEntries)
}

// MemoryExplanationCache 进程内 LRU 缓存，条目在 ttl 后过期；maxEntries 为 0 时不限容量
type MemoryExplanationCache struct {
	lru *expirable.LRU[string, string]
}

func NewMemoryExplanationCache(ttl time.Duration, maxEntries int) *MemoryExplanationCache {
	return &MemoryExplanationCache{lru: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

func (c *MemoryExplanationCache) Layer() string { return "memory" }

func (c *MemoryExplanationCache) Get(_ context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *MemoryExplanationCache) Set(_ context.Context, key, value string) {
	c.lru.Add(key, value)
}

func (c *MemoryExplanationCache) Len() int {
	return c.lru.Len()
}

// RedisExplanationCache 多实例部署时共享的缓存层
type RedisExplanationCache struct {
	Redis  *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisExplanationCache(rdb *redis.Client, ttl time.Duration) *RedisExplanationCache {
	return &RedisExplanationCache{Redis: rdb, TTL: ttl, Prefix: "quiz_bank:ai:"}
}

func (c *RedisExplanationCache) Layer() string { return "redis" }

func (c *RedisExplanationCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.Redis.Get(ctx, c.Prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logCacheError("get", key, err)
		}
		return "", false
	}
	return val, true
}

func (c *RedisExplanationCache) Set(ctx context.Context, key, value string) {
	if err := c.Redis.Set(ctx, c.Prefix+key, value, c.TTL).Err(); err != nil {
		logCacheError("set", key, err)
	}
}
