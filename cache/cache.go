// Package cache 提供进程内的泛型 LRU+TTL 缓存
//
// 读穿仓储装饰器（data/cached）用它按聚合标识缓存装载结果；
// 容量上限触发 LRU 驱逐，TTL 基于最近访问时间。
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Cache 泛型缓存，按键缓存聚合快照等任意值
//
// 缓存只持有调用方交给它的值；隔离（clone）由调用方负责，
// 例如 data/cached 在存取两侧都做副本。
//
// 使用示例：
//
//	issueCache := cache.New[string, *issues.Issue](cache.Config{
//	    Name:    "issues",
//	    MaxSize: 1024,
//	    TTL:     5 * time.Minute,
//	})
//
//	issueCache.Set(issue.GetID(), issue)
//	if cached, found := issueCache.Get(id); found {
//	    // 命中：跳过存储装载
//	}
type Cache[K comparable, V any] struct {
	name   string
	config Config

	items map[K]*cacheEntry[K, V]

	// lruList 最近使用的在前，尾部是驱逐候选
	lruList *list.List

	mu    sync.RWMutex
	stats CacheStats
}

// cacheEntry 缓存条目；lruElement 指向其在 LRU 链表中的位置
type cacheEntry[K comparable, V any] struct {
	key        K
	value      V
	createdAt  time.Time
	accessedAt time.Time
	lruElement *list.Element
}

// Config 缓存配置
type Config struct {
	// Name 缓存名称（用于日志和统计）
	Name string

	// MaxSize 最大缓存条目数，0 表示无限制（不推荐）
	MaxSize int

	// TTL 缓存过期时间，基于访问时间
	// 0 表示永不过期
	TTL time.Duration

	// EnableStats 是否启用统计（默认启用）
	EnableStats bool

	// OnEvict 驱逐回调（可选）
	// 使用 any 以支持不同的键值类型
	OnEvict func(key, value any)
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits      int64 // 缓存命中次数
	Misses    int64 // 缓存未命中次数
	Evictions int64 // LRU 驱逐次数
	Expires   int64 // TTL 过期次数
	Size      int   // 当前条目数
}

// New 创建缓存
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Name == "" {
		config.Name = "unnamed"
	}

	return &Cache[K, V]{
		name:    config.Name,
		config:  config,
		items:   make(map[K]*cacheEntry[K, V]),
		lruList: list.New(),
	}
}

// Get 获取缓存值；found 为 false 表示未找到或已过期
func (c *Cache[K, V]) Get(key K) (value V, found bool) {
	// Get 会更新访问时间、LRU 位置与统计，必须持写锁
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return value, false
	}

	if c.isExpired(entry) {
		c.removeEntryUnsafe(entry)
		c.stats.Misses++
		c.stats.Expires++
		return value, false
	}

	entry.accessedAt = time.Now()
	c.lruList.MoveToFront(entry.lruElement)
	c.stats.Hits++

	return entry.value, true
}

// Set 写入或更新缓存值
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if entry, exists := c.items[key]; exists {
		entry.value = value
		entry.accessedAt = now
		c.lruList.MoveToFront(entry.lruElement)
		return
	}

	// 容量已满时先驱逐最久未使用的条目
	if c.config.MaxSize > 0 && len(c.items) >= c.config.MaxSize {
		c.evictOldestUnsafe()
	}

	entry := &cacheEntry[K, V]{
		key:        key,
		value:      value,
		createdAt:  now,
		accessedAt: now,
	}

	entry.lruElement = c.lruList.PushFront(entry)
	c.items[key] = entry
	c.stats.Size = len(c.items)
}

// Delete 删除缓存条目，返回条目是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		return false
	}

	c.removeEntryUnsafe(entry)
	return true
}

// Clear 清空缓存，逐条触发驱逐回调
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.OnEvict != nil {
		for _, entry := range c.items {
			c.config.OnEvict(entry.key, entry.value)
		}
	}

	c.items = make(map[K]*cacheEntry[K, V])
	c.lruList = list.New()
	c.stats.Size = 0
}

// CleanExpired 清理过期条目，返回清理数量（可由后台任务周期调用）
func (c *Cache[K, V]) CleanExpired() int {
	if c.config.TTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cleaned := 0
	now := time.Now()

	for _, entry := range c.items {
		if now.Sub(entry.accessedAt) >= c.config.TTL {
			c.removeEntryUnsafe(entry)
			cleaned++
		}
	}

	c.stats.Expires += int64(cleaned)
	c.stats.Size = len(c.items)

	return cleaned
}

// Stats 返回统计信息副本
func (c *Cache[K, V]) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = len(c.items)
	return stats
}

// Size 返回当前条目数
func (c *Cache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// HitRate 返回命中率（0 到 1）
func (c *Cache[K, V]) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(total)
}

// isExpired 调用方必须持锁
func (c *Cache[K, V]) isExpired(entry *cacheEntry[K, V]) bool {
	if c.config.TTL <= 0 {
		return false
	}
	return time.Since(entry.accessedAt) >= c.config.TTL
}

// evictOldestUnsafe 驱逐链表尾部最久未使用的条目；调用方必须持锁
func (c *Cache[K, V]) evictOldestUnsafe() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}

	entry := oldest.Value.(*cacheEntry[K, V])
	c.removeEntryUnsafe(entry)
	c.stats.Evictions++
}

// removeEntryUnsafe 删除条目并触发驱逐回调；调用方必须持锁
func (c *Cache[K, V]) removeEntryUnsafe(entry *cacheEntry[K, V]) {
	if c.config.OnEvict != nil {
		c.config.OnEvict(entry.key, entry.value)
	}
	if entry.lruElement != nil {
		c.lruList.Remove(entry.lruElement)
	}
	delete(c.items, entry.key)
	c.stats.Size = len(c.items)
}

// String 返回统计摘要，便于日志输出
func (c *Cache[K, V]) String() string {
	stats := c.Stats()
	return fmt.Sprintf("Cache[%s]: size=%d/%d, hits=%d, misses=%d, hit_rate=%.2f%%, evictions=%d, expires=%d",
		c.name,
		stats.Size,
		c.config.MaxSize,
		stats.Hits,
		stats.Misses,
		c.HitRate()*100,
		stats.Evictions,
		stats.Expires,
	)
}
