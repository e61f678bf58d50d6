package eventing

import "context"

// IPublisher 领域事件发布接口
//
// 由工作单元在提交成功后的 after-commit 钩子中调用；
// 发布失败只记录日志，不回滚已提交的事务。
type IPublisher interface {
	// Publish 发布一批领域事件
	Publish(ctx context.Context, events ...IDomainEvent) error
}

// NoopPublisher 空发布实现（用于测试或未接入消息系统的场景）
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) Publish(ctx context.Context, events ...IDomainEvent) error { return nil }

// CollectingPublisher 收集发布的事件（用于测试断言）
type CollectingPublisher struct {
	Events []IDomainEvent
}

func NewCollectingPublisher() *CollectingPublisher { return &CollectingPublisher{} }

func (p *CollectingPublisher) Publish(ctx context.Context, events ...IDomainEvent) error {
	p.Events = append(p.Events, events...)
	return nil
}
