package cached

import (
	"context"

	"dddkit/cache"
)

// Local 进程内缓存适配器，把 cache.Cache 接到装饰器的 ICache 表面
type Local[ID comparable, T any] struct {
	inner *cache.Cache[ID, T]
}

// NewLocal 用进程内 LRU+TTL 缓存创建适配器
func NewLocal[ID comparable, T any](cfg cache.Config) *Local[ID, T] {
	return &Local[ID, T]{inner: cache.New[ID, T](cfg)}
}

func (l *Local[ID, T]) Get(_ context.Context, id ID) (T, bool) {
	return l.inner.Get(id)
}

func (l *Local[ID, T]) Set(_ context.Context, id ID, value T) {
	l.inner.Set(id, value)
}

func (l *Local[ID, T]) Delete(_ context.Context, id ID) {
	l.inner.Delete(id)
}

// Stats 暴露底层缓存统计
func (l *Local[ID, T]) Stats() cache.CacheStats {
	return l.inner.Stats()
}
