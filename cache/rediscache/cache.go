// Package rediscache 提供 go-redis 支撑的跨进程读穿缓存
//
// 与进程内 cache.Cache 的差异：值要经过编解码落到 Redis，
// 编解码函数由调用方提供（通常基于聚合的持久化快照）。
// 缓存故障只降级为未命中，绝不阻断主路径。
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dddkit/logging"
)

// Cache 基于 Redis 的键值缓存
type Cache[K comparable, V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	encode func(V) ([]byte, error)
	decode func([]byte) (V, error)
	logger logging.Logger
}

// Config Redis 缓存配置
type Config struct {
	// Addr Redis 地址，形如 "localhost:6379"
	Addr     string
	Password string
	DB       int

	// Prefix 键前缀，用于隔离不同聚合类型
	Prefix string

	// TTL 条目过期时间，0 表示不过期
	TTL time.Duration
}

// New 创建 Redis 缓存
func New[K comparable, V any](
	cfg Config,
	encode func(V) ([]byte, error),
	decode func([]byte) (V, error),
) *Cache[K, V] {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient[K, V](client, cfg.Prefix, cfg.TTL, encode, decode)
}

// NewWithClient 用已有客户端创建 Redis 缓存（便于连接复用与测试）
func NewWithClient[K comparable, V any](
	client *redis.Client,
	prefix string,
	ttl time.Duration,
	encode func(V) ([]byte, error),
	decode func([]byte) (V, error),
) *Cache[K, V] {
	return &Cache[K, V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		encode: encode,
		decode: decode,
		logger: logging.GetLogger().WithFields(logging.String("cache", prefix)),
	}
}

func (c *Cache[K, V]) key(k K) string {
	return fmt.Sprintf("%s:%v", c.prefix, k)
}

// Get 读取缓存，故障与解码失败都按未命中处理
func (c *Cache[K, V]) Get(ctx context.Context, k K) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.key(k)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn(ctx, "redis 读取失败", logging.Error(err))
		}
		return zero, false
	}
	value, err := c.decode(raw)
	if err != nil {
		c.logger.Warn(ctx, "缓存值解码失败，按未命中处理", logging.Error(err))
		_ = c.client.Del(ctx, c.key(k)).Err()
		return zero, false
	}
	return value, true
}

// Set 写入缓存，失败只记日志
func (c *Cache[K, V]) Set(ctx context.Context, k K, v V) {
	raw, err := c.encode(v)
	if err != nil {
		c.logger.Warn(ctx, "缓存值编码失败，跳过写入", logging.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(k), raw, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "redis 写入失败", logging.Error(err))
	}
}

// Delete 删除缓存条目
func (c *Cache[K, V]) Delete(ctx context.Context, k K) {
	if err := c.client.Del(ctx, c.key(k)).Err(); err != nil {
		c.logger.Warn(ctx, "redis 删除失败", logging.Error(err))
	}
}

// Close 关闭底层客户端
func (c *Cache[K, V]) Close() error {
	return c.client.Close()
}
