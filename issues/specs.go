package issues

import (
	"time"

	spec "dddkit/domain/specification"
)

// 谓词字段名，由存储端翻译器映射为列名
const (
	FieldIsClosed       = "is_closed"
	FieldAssignedUserID = "assigned_user_id"
	FieldCreationTime   = "creation_time"
	FieldRepositoryID   = "repository_id"
	FieldIsLocked       = "is_locked"
)

// InactiveDays 判定"不活跃"的天数阈值
const InactiveDays = 30

// OpenIssue 未关闭的问题单
func OpenIssue() spec.ISpecification[*Issue] {
	return spec.Where(FieldIsClosed, spec.OpEq, false, func(i *Issue) bool {
		return !i.IsClosed()
	})
}

// UnassignedIssue 未指派的问题单
func UnassignedIssue() spec.ISpecification[*Issue] {
	return spec.Where(FieldAssignedUserID, spec.OpEq, "", func(i *Issue) bool {
		return i.AssignedUserID() == ""
	})
}

// AssignedToUser 指派给某用户的问题单
func AssignedToUser(userID string) spec.ISpecification[*Issue] {
	return spec.Where(FieldAssignedUserID, spec.OpEq, userID, func(i *Issue) bool {
		return i.AssignedUserID() == userID
	})
}

// InRepository 属于某代码库的问题单
func InRepository(repositoryID string) spec.ISpecification[*Issue] {
	return spec.Where(FieldRepositoryID, spec.OpEq, repositoryID, func(i *Issue) bool {
		return i.RepositoryID() == repositoryID
	})
}

// CreatedBefore 在某时点之前创建的问题单
func CreatedBefore(t time.Time) spec.ISpecification[*Issue] {
	return spec.Where(FieldCreationTime, spec.OpLt, t, func(i *Issue) bool {
		return i.CreationTime().Before(t)
	})
}

// NoCommentSince 自某时点起没有新评论的问题单
// 需要遍历子实体集合，只能内存求值，翻译器会放宽此分支。
func NoCommentSince(t time.Time) spec.ISpecification[*Issue] {
	return spec.FromFunc("issues.no_comment_since", func(i *Issue) bool {
		last := i.LastCommentTime()
		return last.IsZero() || last.Before(t)
	})
}

// InactiveIssue 不活跃的问题单：
// 未关闭、未指派、创建超过 30 天、且 30 天内没有评论。
func InactiveIssue(now time.Time) spec.ISpecification[*Issue] {
	threshold := now.AddDate(0, 0, -InactiveDays)
	return spec.All(
		OpenIssue(),
		UnassignedIssue(),
		CreatedBefore(threshold),
		NoCommentSince(threshold),
	)
}
