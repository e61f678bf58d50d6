// Package issuemem 提供 Issue 聚合的内存仓储装配
// 适用于测试与单进程示例，语义与 SQL 仓储一致。
package issuemem

import (
	"dddkit/data/memory"
	"dddkit/issues"
)

// Store Issue 聚合的内存存储
type Store = memory.Store[*issues.Issue, string]

// Repository Issue 聚合的内存仓储
type Repository = memory.Repository[*issues.Issue, string]

// New 创建内存存储与仓储
func New() (*Store, *Repository) {
	store := memory.NewStore[*issues.Issue, string]("issue", func(i *issues.Issue) *issues.Issue {
		return i.Clone()
	})
	repo := memory.NewRepository(store, memory.WithStripDetails[*issues.Issue, string](issues.StripComments))
	return store, repo
}
