// Package memory 提供内存后备的通用聚合存储与仓储
//
// 用于测试与嵌入式场景；同时是仓储契约的参考实现：
// 暂存缓冲按工作单元划分，提交时校验全部通过后一次性换入新状态，
// 任一暂存操作失败则存储保持原样。
package memory

import (
	"sync"

	"dddkit/domain/entity"
	"dddkit/domain/repository"
)

// record 存储条目；value 是 clone 隔离的副本，写入后不再修改
type record[T any] struct {
	value   T
	version int64
}

// Store 单一聚合类型的内存存储
type Store[T entity.IAggregate[ID], ID comparable] struct {
	name  string
	clone func(T) T

	mu    sync.RWMutex
	items map[ID]record[T]
}

// NewStore 创建内存存储
//
// clone 必须返回深拷贝（含子实体集合），用于隔离调用方与存储状态。
func NewStore[T entity.IAggregate[ID], ID comparable](name string, clone func(T) T) *Store[T, ID] {
	return &Store[T, ID]{
		name:  name,
		clone: clone,
		items: make(map[ID]record[T]),
	}
}

// Name 返回存储名称（聚合类型名）
func (s *Store[T, ID]) Name() string { return s.name }

// Get 按标识读取聚合副本
func (s *Store[T, ID]) Get(id ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.withVersion(rec), true
}

// List 返回全部聚合副本
func (s *Store[T, ID]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, rec := range s.items {
		out = append(out, s.withVersion(rec))
	}
	return out
}

// Len 返回存储中的聚合数量
func (s *Store[T, ID]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Seed 直接写入聚合（测试数据准备；绕过工作单元）
func (s *Store[T, ID]) Seed(values ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		version := v.GetVersion()
		if version <= 0 {
			version = 1
		}
		s.items[v.GetID()] = record[T]{value: s.clone(v), version: version}
	}
}

// withVersion 返回带当前存储版本号的副本
func (s *Store[T, ID]) withVersion(rec record[T]) T {
	out := s.clone(rec.value)
	if settable, ok := any(out).(entity.IVersionSettable); ok {
		settable.SetVersion(rec.version)
	}
	return out
}

// validateBatch 校验一批暂存操作能否全部应用，不修改存储
// 工作单元提交的准备阶段调用，保证任一资源失败时没有资源已生效。
func (s *Store[T, ID]) validateBatch(ops []stagedOp[T, ID]) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.buildNext(ops)
	return err
}

// applyBatch 原子地应用一批暂存操作
//
// 先在 items 的浅拷贝上校验并应用全部操作，
// 全部成功才换入新状态；任一失败返回错误且存储保持原样。
func (s *Store[T, ID]) applyBatch(ops []stagedOp[T, ID]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.buildNext(ops)
	if err != nil {
		return err
	}
	s.items = next
	return nil
}

// buildNext 在 items 的浅拷贝上应用全部操作；调用方必须持有 s.mu
func (s *Store[T, ID]) buildNext(ops []stagedOp[T, ID]) (map[ID]record[T], error) {
	next := make(map[ID]record[T], len(s.items)+len(ops))
	for id, rec := range s.items {
		next[id] = rec
	}

	for _, op := range ops {
		switch op.kind {
		case opAdd:
			if _, exists := next[op.id]; exists {
				return nil, repository.NewAlreadyExists(s.name, op.id)
			}
			next[op.id] = record[T]{value: s.clone(op.value), version: 1}
		case opUpdate:
			rec, exists := next[op.id]
			if !exists {
				return nil, repository.NewNotFound(s.name, op.id)
			}
			if op.baseVersion != rec.version {
				return nil, repository.NewVersionConflict(s.name, op.id, op.baseVersion, rec.version)
			}
			next[op.id] = record[T]{value: s.clone(op.value), version: rec.version + 1}
		case opDelete:
			if _, exists := next[op.id]; !exists {
				return nil, repository.NewNotFound(s.name, op.id)
			}
			delete(next, op.id)
		}
	}
	return next, nil
}
