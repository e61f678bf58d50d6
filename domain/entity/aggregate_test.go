package entity

import (
	"testing"

	"dddkit/eventing"
)

type order struct {
	Aggregate[string]
	total int64
}

func (o *order) GetAggregateType() string { return "order" }

func TestEntityVersion(t *testing.T) {
	o := &order{}
	o.ID = "O1"

	if o.GetID() != "O1" {
		t.Errorf("GetID() = %q, want O1", o.GetID())
	}
	if o.GetVersion() != 0 {
		t.Errorf("新实体版本 = %d, want 0", o.GetVersion())
	}

	o.SetVersion(3)
	if o.GetVersion() != 3 {
		t.Errorf("SetVersion 后版本 = %d, want 3", o.GetVersion())
	}
}

func TestAggregateDomainEvents(t *testing.T) {
	o := &order{}
	o.ID = "O1"

	if len(o.GetDomainEvents()) != 0 {
		t.Fatalf("新聚合不应有事件，got %d", len(o.GetDomainEvents()))
	}

	o.AddDomainEvent(eventing.NewDomainEvent("orders.created", o.GetAggregateType(), o.ID, nil))
	o.AddDomainEvent(eventing.NewDomainEvent("orders.paid", o.GetAggregateType(), o.ID, map[string]any{"total": o.total}))

	events := o.GetDomainEvents()
	if len(events) != 2 {
		t.Fatalf("事件数 = %d, want 2", len(events))
	}
	if events[0].GetEventName() != "orders.created" || events[1].GetEventName() != "orders.paid" {
		t.Errorf("事件顺序错误: %s, %s", events[0].GetEventName(), events[1].GetEventName())
	}
	if events[0].GetAggregateID() != "O1" {
		t.Errorf("AggregateID = %q, want O1", events[0].GetAggregateID())
	}

	o.ClearDomainEvents()
	if len(o.GetDomainEvents()) != 0 {
		t.Errorf("ClearDomainEvents 后仍有 %d 个事件", len(o.GetDomainEvents()))
	}
}

func TestChildKeyComparable(t *testing.T) {
	a := ChildKey[string]{ParentID: "O1", Local: "c1"}
	b := ChildKey[string]{ParentID: "O1", Local: "c1"}
	c := ChildKey[string]{ParentID: "O2", Local: "c1"}

	if a != b {
		t.Error("相同字段的 ChildKey 应相等")
	}
	if a == c {
		t.Error("不同父聚合的 ChildKey 不应相等")
	}

	seen := map[ChildKey[string]]bool{a: true}
	if !seen[b] {
		t.Error("ChildKey 应可作为 map 键")
	}
}
