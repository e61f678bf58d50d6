package service

import (
	"dddkit/logging"
)

// Base 领域服务基类（用于嵌入），提供统一的命名与日志
//
// 示例:
//
//	type IssueManager struct {
//	    service.Base
//	    issues IssueRepository
//	}
//
//	func NewIssueManager(issues IssueRepository) *IssueManager {
//	    return &IssueManager{Base: service.NewBase("IssueManager"), issues: issues}
//	}
type Base struct {
	name   string
	logger logging.Logger
}

// NewBase 创建领域服务基类
func NewBase(name string) Base {
	return Base{
		name:   name,
		logger: logging.GetLogger().WithFields(logging.String("service", name)),
	}
}

// ServiceName 实现 IDomainService
func (b *Base) ServiceName() string { return b.name }

// Logger 返回服务专属 Logger
func (b *Base) Logger() logging.Logger { return b.logger }
