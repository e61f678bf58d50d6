package issues

// 业务规则代码，稳定的机器可读标识
// 由上层协作者映射为用户可见文案与状态码，这里绝不携带自由文本。
const (
	// RuleLockedIssueCannotBeReopened 已锁定的问题单不可重开
	RuleLockedIssueCannotBeReopened = "issues.locked_issue_cannot_be_reopened"

	// RuleOpenIssueAssignmentLimitExceeded 单个用户的未关闭问题单指派数达到上限
	RuleOpenIssueAssignmentLimitExceeded = "issues.open_issue_assignment_limit_exceeded"
)

// MaxOpenIssuesPerUser 单个用户可同时被指派的未关闭问题单上限
const MaxOpenIssuesPerUser = 3
