// Package repository 定义聚合根仓储抽象
//
// 仓储是按键访问的集合抽象，只为聚合根类型存在：子实体没有仓储，
// 只能随所属聚合整体装载与保存。任何对聚合及其子实体的修改，
// 只有经过仓储暂存并由工作单元提交后才会到达后备存储。
package repository

import (
	"context"

	"dddkit/domain/entity"
	spec "dddkit/domain/specification"
)

// LoadOptions 装载选项
type LoadOptions struct {
	// IncludeDetails 为 true 时（默认），返回前完整装载所有子实体集合，
	// 保证后续不变式检查观察到完整状态（"作为单一单元装载"）。
	//
	// 为 false 是显式的部分/只读装载退出口：返回的聚合不保证
	// 子实体集合已填充，也不叠加当前作用域对子实体的暂存修改；
	// 各仓储实现需在文档中说明其行为。
	IncludeDetails bool
}

// LoadOption 装载选项修改器
type LoadOption func(*LoadOptions)

// WithoutDetails 跳过子实体集合装载（部分/只读访问的显式退出口）
func WithoutDetails() LoadOption {
	return func(o *LoadOptions) { o.IncludeDetails = false }
}

// ResolveLoadOptions 应用装载选项，默认完整装载
func ResolveLoadOptions(opts []LoadOption) LoadOptions {
	options := LoadOptions{IncludeDetails: true}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// IRepository 聚合根仓储接口
//
// 暂存语义：Add/Update/Delete 将变更暂存到当前活动的工作单元，
// 物理写入发生在提交时；同一作用域内的后续读取能观察到暂存变更
// （read-your-writes）。没有活动作用域时暂存方法返回 TRANSACTION_ERROR。
type IRepository[T entity.IAggregate[ID], ID comparable] interface {
	// GetByID 按标识装载聚合，不存在时返回 NOT_FOUND
	GetByID(ctx context.Context, id ID, opts ...LoadOption) (T, error)

	// Query 以规约过滤聚合；结果顺序与分页不在核心契约内
	Query(ctx context.Context, s spec.ISpecification[T]) ([]T, error)

	// Count 统计满足规约的聚合数量
	Count(ctx context.Context, s spec.ISpecification[T]) (int64, error)

	// Add 暂存新增
	Add(ctx context.Context, e T) error

	// Update 暂存更新（提交时做乐观锁版本检查）
	Update(ctx context.Context, e T) error

	// Delete 暂存删除
	Delete(ctx context.Context, id ID) error
}
