// Package identity 提供聚合标识生成协作者
//
// 标识在聚合构造时分配，生成策略在领域核心之外：
// 核心只要求标识唯一且可比较。
package identity

import (
	"sync"

	"github.com/google/uuid"
)

// IGenerator 标识生成接口
type IGenerator[ID comparable] interface {
	// Next 返回一个新的唯一标识
	Next() ID
}

// UUIDGenerator 基于 uuid v4 的标识生成器
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) Next() uuid.UUID { return uuid.New() }

// StringGenerator 基于 uuid v4 的字符串标识生成器
type StringGenerator struct{}

func NewStringGenerator() StringGenerator { return StringGenerator{} }

func (StringGenerator) Next() string { return uuid.NewString() }

// SequentialGenerator 递增的 int64 标识生成器（测试与内存场景）
type SequentialGenerator struct {
	mu   sync.Mutex
	next int64
}

func NewSequentialGenerator() *SequentialGenerator { return &SequentialGenerator{} }

func (g *SequentialGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}
