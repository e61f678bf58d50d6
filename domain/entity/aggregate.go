package entity

import (
	"dddkit/eventing"
)

// IAggregate 聚合根接口
// 聚合根是业务一致性边界，负责维护业务规则
type IAggregate[ID comparable] interface {
	IEntity[ID]
	IValidatable

	// GetAggregateType 返回聚合根类型名称
	GetAggregateType() string

	// GetDomainEvents 获取未发布的领域事件
	GetDomainEvents() []eventing.IDomainEvent

	// ClearDomainEvents 清空领域事件
	ClearDomainEvents()

	// AddDomainEvent 添加领域事件
	AddDomainEvent(evt eventing.IDomainEvent)
}

// Aggregate 基础聚合根（支持领域事件）
// 适用于传统 CRUD + 领域事件模式
//
// 使用场景:
//   - 状态通过仓储持久化，事件仅用于通知其他聚合或服务
//   - 所有子实体集合在构造时初始化为空，绝不缺省为 nil 切片以外的状态
//
// 示例:
//
//	type Issue struct {
//	    entity.Aggregate[uuid.UUID]
//	    Title    string
//	    Comments []Comment
//	}
type Aggregate[ID comparable] struct {
	Entity[ID]
	domainEvents []eventing.IDomainEvent
}

// GetAggregateType 返回聚合根类型
func (a *Aggregate[ID]) GetAggregateType() string {
	return "Aggregate"
}

// GetDomainEvents 获取领域事件
func (a *Aggregate[ID]) GetDomainEvents() []eventing.IDomainEvent {
	return a.domainEvents
}

// ClearDomainEvents 清空领域事件
func (a *Aggregate[ID]) ClearDomainEvents() {
	a.domainEvents = nil
}

// AddDomainEvent 添加领域事件
func (a *Aggregate[ID]) AddDomainEvent(evt eventing.IDomainEvent) {
	if a.domainEvents == nil {
		a.domainEvents = make([]eventing.IDomainEvent, 0)
	}
	a.domainEvents = append(a.domainEvents, evt)
}

// Validate 验证聚合根状态（默认实现，子类型按需覆盖）
func (a *Aggregate[ID]) Validate() error {
	return nil
}
