// Package eventing 提供领域事件的最小抽象
//
// 领域事件在聚合根内记录，由工作单元在提交成功后发布。
// 事件仅用于通知其他聚合或服务，不参与事件溯源。
package eventing

import (
	"time"

	"github.com/google/uuid"
)

// IDomainEvent 领域事件接口
type IDomainEvent interface {
	// GetEventID 获取事件唯一标识
	GetEventID() string

	// GetEventName 获取事件名称（如 "issue.closed"）
	GetEventName() string

	// GetAggregateType 获取产生事件的聚合类型
	GetAggregateType() string

	// GetAggregateID 获取产生事件的聚合标识（字符串形式）
	GetAggregateID() string

	// GetOccurredAt 获取事件发生时间
	GetOccurredAt() time.Time

	// GetPayload 获取事件数据
	GetPayload() any
}

// DomainEvent 领域事件基础实现
type DomainEvent struct {
	EventID       string    `json:"event_id"`
	EventName     string    `json:"event_name"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       any       `json:"payload,omitempty"`
}

// NewDomainEvent 创建领域事件（事件ID由 uuid 生成）
func NewDomainEvent(name, aggregateType, aggregateID string, payload any) *DomainEvent {
	return &DomainEvent{
		EventID:       uuid.NewString(),
		EventName:     name,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    time.Now(),
		Payload:       payload,
	}
}

func (e *DomainEvent) GetEventID() string       { return e.EventID }
func (e *DomainEvent) GetEventName() string     { return e.EventName }
func (e *DomainEvent) GetAggregateType() string { return e.AggregateType }
func (e *DomainEvent) GetAggregateID() string   { return e.AggregateID }
func (e *DomainEvent) GetOccurredAt() time.Time { return e.OccurredAt }
func (e *DomainEvent) GetPayload() any          { return e.Payload }
