// Package issues 是演示一致性内核用法的示例限界上下文：
// Issue 聚合根、Comment 子实体、领域服务与可翻译规约。
package issues

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"dddkit/domain/entity"
	"dddkit/errors"
	"dddkit/eventing"
)

// CloseReason 关闭原因，空串表示未关闭
type CloseReason string

const (
	CloseReasonNone       CloseReason = ""
	CloseReasonCompleted  CloseReason = "completed"
	CloseReasonNotPlanned CloseReason = "not_planned"
	CloseReasonDuplicate  CloseReason = "duplicate"
)

// 领域事件名
const (
	EventIssueCreated  = "issues.issue_created"
	EventIssueClosed   = "issues.issue_closed"
	EventIssueReopened = "issues.issue_reopened"
	EventCommentAdded  = "issues.comment_added"
	EventIssueAssigned = "issues.issue_assigned"
)

// Comment 子实体，生命周期严格绑定所属 Issue
// 没有独立仓储，只能随聚合整体装载与保存。
type Comment struct {
	Key          entity.ChildKey[string]
	UserID       string
	Text         string
	CreationTime time.Time
}

// Issue 问题单聚合根
//
// 成对字段（isClosed + closeReason）只通过 Close/ReOpen 一起变更，
// 任何时刻都观察不到"已关闭但无原因"或"未关闭却有原因"的组合。
// 跨聚合关系只存外键标识（repositoryID），不持有对象引用。
type Issue struct {
	entity.Aggregate[string]

	repositoryID    string
	title           string
	text            string
	assignedUserID  string
	isClosed        bool
	closeReason     CloseReason
	isLocked        bool
	creationTime    time.Time
	lastCommentTime time.Time
	comments        []Comment
}

// NewIssue 构造问题单
// 校验必填入参；子实体集合初始化为空，绝不缺省为 nil 语义。
func NewIssue(id, repositoryID, title string, creationTime time.Time) (*Issue, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError("issue id 不能为空")
	}
	if strings.TrimSpace(repositoryID) == "" {
		return nil, errors.NewValidationError("issue repositoryID 不能为空")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if creationTime.IsZero() {
		return nil, errors.NewValidationError("issue creationTime 不能为零值")
	}

	issue := &Issue{
		repositoryID: repositoryID,
		title:        title,
		creationTime: creationTime,
		comments:     []Comment{},
	}
	issue.ID = id
	issue.AddDomainEvent(eventing.NewDomainEvent(EventIssueCreated, issue.GetAggregateType(), id,
		map[string]any{"repository_id": repositoryID, "title": title}))
	return issue, nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.NewValidationError("issue title 不能为空")
	}
	if len(title) > 256 {
		return errors.NewValidationError("issue title 超过 256 字符")
	}
	return nil
}

// GetAggregateType 实现 entity.IAggregate
func (i *Issue) GetAggregateType() string { return "issue" }

// Validate 实现 entity.IValidatable
func (i *Issue) Validate() error {
	if err := validateTitle(i.title); err != nil {
		return err
	}
	// 成对字段一致性
	if i.isClosed && i.closeReason == CloseReasonNone {
		return errors.NewValidationError("已关闭的 issue 必须携带关闭原因")
	}
	if !i.isClosed && i.closeReason != CloseReasonNone {
		return errors.NewValidationError("未关闭的 issue 不能携带关闭原因")
	}
	return nil
}

func (i *Issue) RepositoryID() string     { return i.repositoryID }
func (i *Issue) Title() string            { return i.title }
func (i *Issue) Text() string             { return i.text }
func (i *Issue) AssignedUserID() string   { return i.assignedUserID }
func (i *Issue) IsClosed() bool           { return i.isClosed }
func (i *Issue) CloseReason() CloseReason { return i.closeReason }
func (i *Issue) IsLocked() bool           { return i.isLocked }
func (i *Issue) CreationTime() time.Time  { return i.creationTime }

// LastCommentTime 最近一条评论时间，零值表示尚无评论
func (i *Issue) LastCommentTime() time.Time { return i.lastCommentTime }

// Comments 返回评论副本，外部修改不影响聚合内部状态
func (i *Issue) Comments() []Comment {
	out := make([]Comment, len(i.comments))
	copy(out, i.comments)
	return out
}

// SetTitle 改标题，每次调用都重新校验
func (i *Issue) SetTitle(title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	i.title = title
	return nil
}

// SetText 正文没有跨字段约束，直接赋值
func (i *Issue) SetText(text string) {
	i.text = text
}

// Close 关闭问题单并记录原因，成对字段一起变更
// 对已关闭的问题单重复 Close 仅更新原因，不是错误。
func (i *Issue) Close(reason CloseReason) error {
	if reason == CloseReasonNone {
		return errors.NewValidationError("关闭 issue 必须给出原因")
	}
	i.isClosed = true
	i.closeReason = reason
	i.AddDomainEvent(eventing.NewDomainEvent(EventIssueClosed, i.GetAggregateType(), i.ID,
		map[string]any{"reason": string(reason)}))
	return nil
}

// ReOpen 重新打开问题单
// 已锁定的问题单不可重开，违反时返回携带稳定代码的规则错误。
func (i *Issue) ReOpen() error {
	if i.isLocked {
		return errors.NewRuleViolation(RuleLockedIssueCannotBeReopened)
	}
	if !i.isClosed {
		return nil
	}
	i.isClosed = false
	i.closeReason = CloseReasonNone
	i.AddDomainEvent(eventing.NewDomainEvent(EventIssueReopened, i.GetAggregateType(), i.ID, nil))
	return nil
}

// Lock 锁定问题单，锁定后不可重开
func (i *Issue) Lock() {
	i.isLocked = true
}

// Unlock 解除锁定
func (i *Issue) Unlock() {
	i.isLocked = false
}

// AddComment 追加评论并推进最近评论时间
func (i *Issue) AddComment(userID, text string, at time.Time) (Comment, error) {
	if strings.TrimSpace(userID) == "" {
		return Comment{}, errors.NewValidationError("comment userID 不能为空")
	}
	if strings.TrimSpace(text) == "" {
		return Comment{}, errors.NewValidationError("comment text 不能为空")
	}
	comment := Comment{
		Key:          entity.ChildKey[string]{ParentID: i.ID, Local: uuid.NewString()},
		UserID:       userID,
		Text:         text,
		CreationTime: at,
	}
	i.comments = append(i.comments, comment)
	if at.After(i.lastCommentTime) {
		i.lastCommentTime = at
	}
	i.AddDomainEvent(eventing.NewDomainEvent(EventCommentAdded, i.GetAggregateType(), i.ID,
		map[string]any{"comment_id": comment.Key.Local, "user_id": userID}))
	return comment, nil
}

// setAssignedUserID 放宽到包级的指派变更入口
// 指派上限规则跨越多个聚合实例，由 IssueManager 负责检查后调用。
func (i *Issue) setAssignedUserID(userID string) {
	i.assignedUserID = userID
}

// Clone 深拷贝，供内存存储做快照隔离
func (i *Issue) Clone() *Issue {
	cp := *i
	cp.comments = make([]Comment, len(i.comments))
	copy(cp.comments, i.comments)
	cp.ClearDomainEvents()
	return &cp
}
