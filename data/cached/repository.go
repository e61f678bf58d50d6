// Package cached 提供读穿缓存的仓储装饰器
//
// 只缓存完整装载的 GetByID 路径；规约查询与计数总是直达内层仓储。
// 活动作用域内读取一律绕过缓存，保证 read-your-writes 不被陈旧条目破坏；
// 暂存写操作在提交成功后失效对应条目。
package cached

import (
	"context"

	"dddkit/domain/entity"
	"dddkit/domain/repository"
	spec "dddkit/domain/specification"
	"dddkit/domain/uow"
)

// ICache 装饰器依赖的缓存表面
// 进程内实现见 Local，跨进程实现见 cache/rediscache。
type ICache[ID comparable, T any] interface {
	Get(ctx context.Context, id ID) (T, bool)
	Set(ctx context.Context, id ID, value T)
	Delete(ctx context.Context, id ID)
}

// Repository 读穿缓存装饰器，实现 repository.IRepository
type Repository[T entity.IAggregate[ID], ID comparable] struct {
	inner repository.IRepository[T, ID]
	cache ICache[ID, T]
	clone func(T) T
}

// NewRepository 创建装饰器
// clone 用于返回缓存值的副本，防止调用方改写缓存内容。
func NewRepository[T entity.IAggregate[ID], ID comparable](
	inner repository.IRepository[T, ID],
	c ICache[ID, T],
	clone func(T) T,
) *Repository[T, ID] {
	return &Repository[T, ID]{inner: inner, cache: c, clone: clone}
}

// GetByID 实现 repository.IRepository
func (r *Repository[T, ID]) GetByID(ctx context.Context, id ID, opts ...repository.LoadOption) (T, error) {
	options := repository.ResolveLoadOptions(opts)

	// 作用域内读取必须观察暂存变更，绕过缓存
	// 浅装载结果不完整，不参与缓存
	if uow.Current(ctx) != nil || !options.IncludeDetails {
		return r.inner.GetByID(ctx, id, opts...)
	}

	if cached, ok := r.cache.Get(ctx, id); ok {
		return r.clone(cached), nil
	}

	loaded, err := r.inner.GetByID(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	r.cache.Set(ctx, id, r.clone(loaded))
	return loaded, nil
}

// Query 实现 repository.IRepository，直达内层
func (r *Repository[T, ID]) Query(ctx context.Context, s spec.ISpecification[T]) ([]T, error) {
	return r.inner.Query(ctx, s)
}

// Count 实现 repository.IRepository，直达内层
func (r *Repository[T, ID]) Count(ctx context.Context, s spec.ISpecification[T]) (int64, error) {
	return r.inner.Count(ctx, s)
}

// Add 实现 repository.IRepository
func (r *Repository[T, ID]) Add(ctx context.Context, e T) error {
	if err := r.inner.Add(ctx, e); err != nil {
		return err
	}
	r.invalidateOnCommit(ctx, e.GetID())
	return nil
}

// Update 实现 repository.IRepository
func (r *Repository[T, ID]) Update(ctx context.Context, e T) error {
	if err := r.inner.Update(ctx, e); err != nil {
		return err
	}
	r.invalidateOnCommit(ctx, e.GetID())
	return nil
}

// Delete 实现 repository.IRepository
func (r *Repository[T, ID]) Delete(ctx context.Context, id ID) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidateOnCommit(ctx, id)
	return nil
}

// invalidateOnCommit 提交成功后失效条目
// 暂存成功意味着必有活动作用域；失效发生在落盘之后，陈旧窗口最小。
func (r *Repository[T, ID]) invalidateOnCommit(ctx context.Context, id ID) {
	u := uow.Current(ctx)
	if u == nil {
		return
	}
	u.AfterCommit(func(ctx context.Context) {
		r.cache.Delete(ctx, id)
	})
}
