package issues

import (
	"time"

	"dddkit/domain/entity"
)

// IssueState 聚合的持久化形态
// 仅供存储实现做装载与落盘，业务代码不要依赖它绕过聚合方法。
type IssueState struct {
	ID              string
	Version         int64
	RepositoryID    string
	Title           string
	Text            string
	AssignedUserID  string
	IsClosed        bool
	CloseReason     string
	IsLocked        bool
	CreationTime    time.Time
	LastCommentTime time.Time
	Comments        []CommentState
}

// CommentState 子实体的持久化形态
type CommentState struct {
	ID           string
	UserID       string
	Text         string
	CreationTime time.Time
}

// State 导出聚合的持久化快照
func (i *Issue) State() IssueState {
	st := IssueState{
		ID:              i.ID,
		Version:         i.Version,
		RepositoryID:    i.repositoryID,
		Title:           i.title,
		Text:            i.text,
		AssignedUserID:  i.assignedUserID,
		IsClosed:        i.isClosed,
		CloseReason:     string(i.closeReason),
		IsLocked:        i.isLocked,
		CreationTime:    i.creationTime,
		LastCommentTime: i.lastCommentTime,
		Comments:        make([]CommentState, 0, len(i.comments)),
	}
	for _, c := range i.comments {
		st.Comments = append(st.Comments, CommentState{
			ID:           c.Key.Local,
			UserID:       c.UserID,
			Text:         c.Text,
			CreationTime: c.CreationTime,
		})
	}
	return st
}

// RestoreIssue 从持久化快照重建聚合
// 快照来自可信存储，不重复入参校验。
func RestoreIssue(st IssueState) *Issue {
	issue := &Issue{
		repositoryID:    st.RepositoryID,
		title:           st.Title,
		text:            st.Text,
		assignedUserID:  st.AssignedUserID,
		isClosed:        st.IsClosed,
		closeReason:     CloseReason(st.CloseReason),
		isLocked:        st.IsLocked,
		creationTime:    st.CreationTime,
		lastCommentTime: st.LastCommentTime,
		comments:        make([]Comment, 0, len(st.Comments)),
	}
	issue.ID = st.ID
	issue.Version = st.Version
	for _, c := range st.Comments {
		issue.comments = append(issue.comments, Comment{
			Key:          entity.ChildKey[string]{ParentID: st.ID, Local: c.ID},
			UserID:       c.UserID,
			Text:         c.Text,
			CreationTime: c.CreationTime,
		})
	}
	return issue
}

// StripComments 去掉子实体集合的浅装载副本，供 WithoutDetails 路径使用
func StripComments(i *Issue) *Issue {
	cp := i.Clone()
	cp.comments = []Comment{}
	cp.lastCommentTime = i.lastCommentTime
	return cp
}
