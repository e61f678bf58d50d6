package issues

import (
	"context"

	"dddkit/domain/repository"
	"dddkit/domain/service"
	spec "dddkit/domain/specification"
	"dddkit/errors"
	"dddkit/eventing"
)

// IssueManager 问题单领域服务
//
// 指派上限规则需要跨聚合实例的存储级计数，不属于单个聚合的职责，
// 所以放在领域服务里，通过包级放宽的 setAssignedUserID 完成变更。
// 只收发领域类型，不出现上层用例层的传输结构。
type IssueManager struct {
	service.Base
	repo repository.IRepository[*Issue, string]
}

// NewIssueManager 创建问题单领域服务
func NewIssueManager(repo repository.IRepository[*Issue, string]) *IssueManager {
	return &IssueManager{
		Base: service.NewBase("issues.manager"),
		repo: repo,
	}
}

// AssignTo 把问题单指派给用户
// 规则：一个用户同时被指派的未关闭问题单不超过 MaxOpenIssuesPerUser。
func (m *IssueManager) AssignTo(ctx context.Context, issue *Issue, userID string) error {
	if userID == "" {
		return errors.NewValidationError("指派目标 userID 不能为空")
	}
	if issue.AssignedUserID() == userID {
		return nil
	}

	open, err := m.repo.Count(ctx, spec.And(OpenIssue(), AssignedToUser(userID)))
	if err != nil {
		return err
	}
	if open >= MaxOpenIssuesPerUser {
		return errors.NewRuleViolation(RuleOpenIssueAssignmentLimitExceeded)
	}

	issue.setAssignedUserID(userID)
	issue.AddDomainEvent(eventing.NewDomainEvent(EventIssueAssigned, issue.GetAggregateType(), issue.ID,
		map[string]any{"user_id": userID}))
	return nil
}

// Unassign 取消指派，无上限约束
func (m *IssueManager) Unassign(_ context.Context, issue *Issue) {
	issue.setAssignedUserID("")
}
