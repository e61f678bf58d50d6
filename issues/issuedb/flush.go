package issuedb

import (
	"context"

	core "dddkit/data/db"
	dbsql "dddkit/data/db/sql"
	"dddkit/domain/repository"
	"dddkit/errors"
	"dddkit/issues"
)

type opKind int

const (
	opAdd opKind = iota + 1
	opUpdate
	opDelete
)

type stagedOp struct {
	kind  opKind
	id    string
	state issues.IssueState
	// baseVersion 暂存更新时聚合携带的版本号，提交时用于乐观锁校验
	baseVersion int64
}

// buffer 单个工作单元作用域的暂存缓冲，实现 uow.ITransactionalResource
type buffer struct {
	repo    *Repository
	uowID   string
	ops     []stagedOp
	overlay map[string]stagedOp

	// tx Prepare 开启并执行完全部语句、尚未提交的事务
	tx core.ITransaction
}

func (b *buffer) stage(op stagedOp) {
	prior, ok := b.overlay[op.id]
	// 同一标识的后续暂存覆盖前一次；只有 delete 后重新 add 需要保序追加
	if ok && !(prior.kind == opDelete && op.kind == opAdd) {
		for i := len(b.ops) - 1; i >= 0; i-- {
			if b.ops[i].id == op.id {
				b.ops[i] = op
				break
			}
		}
		b.overlay[op.id] = op
		return
	}
	b.ops = append(b.ops, op)
	b.overlay[op.id] = op
}

func (b *buffer) removeStagedFor(id string) {
	delete(b.overlay, id)
	kept := b.ops[:0]
	for _, op := range b.ops {
		if op.id != id {
			kept = append(kept, op)
		}
	}
	b.ops = kept
}

// Prepare 实现 uow.ITransactionalResource
// 开启 SQL 事务并执行整批语句但不提交；乐观锁冲突在此阶段暴露。
func (b *buffer) Prepare(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := b.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "开启事务失败")
	}
	txSQL := dbsql.New(tx)

	for _, op := range b.ops {
		if err := b.repo.applyOp(ctx, txSQL, op); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	b.tx = tx
	return nil
}

// Apply 实现 uow.ITransactionalResource：提交 Prepare 留下的事务
func (b *buffer) Apply(ctx context.Context) error {
	if b.tx == nil {
		return errors.NewTransactionError("资源未准备，无法生效", nil)
	}
	if err := b.tx.Commit(); err != nil {
		b.tx = nil
		return errors.WrapDatabaseError(ctx, err, "提交事务失败")
	}
	b.tx = nil
	b.repo.dropBuffer(b.uowID)
	return nil
}

// Discard 实现 uow.ITransactionalResource
func (b *buffer) Discard() {
	if b.tx != nil {
		_ = b.tx.Rollback()
		b.tx = nil
	}
	b.repo.dropBuffer(b.uowID)
}

func (r *Repository) applyOp(ctx context.Context, txSQL dbsql.ISql, op stagedOp) error {
	switch op.kind {
	case opAdd:
		return r.insertIssue(ctx, txSQL, op.state)
	case opUpdate:
		return r.updateIssue(ctx, txSQL, op.state, op.baseVersion)
	case opDelete:
		return r.deleteIssue(ctx, txSQL, op.id)
	default:
		return errors.NewTransactionError("未知暂存操作", nil)
	}
}

func (r *Repository) insertIssue(ctx context.Context, txSQL dbsql.ISql, st issues.IssueState) error {
	_, err := txSQL.InsertInto(issueTable).
		Columns(issueSelectColumns...).
		Values(st.ID, int64(1), st.RepositoryID, st.Title, st.Text, st.AssignedUserID,
			boolToInt(st.IsClosed), st.CloseReason, boolToInt(st.IsLocked),
			toUnix(st.CreationTime), toUnix(st.LastCommentTime)).
		Exec(ctx)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return repository.NewAlreadyExists(issueTable, st.ID)
		}
		return errors.WrapDatabaseError(ctx, err, "插入 issue 失败")
	}
	return r.insertComments(ctx, txSQL, st)
}

func (r *Repository) updateIssue(ctx context.Context, txSQL dbsql.ISql, st issues.IssueState, baseVersion int64) error {
	result, err := txSQL.Update(issueTable).
		SetMap(map[string]any{
			"repository_id":     st.RepositoryID,
			"title":             st.Title,
			"body":              st.Text,
			"assigned_user_id":  st.AssignedUserID,
			"is_closed":         boolToInt(st.IsClosed),
			"close_reason":      st.CloseReason,
			"is_locked":         boolToInt(st.IsLocked),
			"creation_time":     toUnix(st.CreationTime),
			"last_comment_time": toUnix(st.LastCommentTime),
		}).
		SetExpr("version = version + 1").
		Where("id = ? AND version = ?", st.ID, baseVersion).
		Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "更新 issue 失败")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "读取更新行数失败")
	}
	if affected == 0 {
		// 区分行不存在与版本过期
		var stored int64
		scanErr := txSQL.Select("version").From(issueTable).
			Where("id = ?", st.ID).QueryRow(ctx).Scan(&stored)
		if scanErr != nil {
			return repository.NewNotFound(issueTable, st.ID)
		}
		return repository.NewVersionConflict(issueTable, st.ID, baseVersion, stored)
	}

	// 子实体整体重写，与聚合"作为单元保存"的语义一致
	if _, err := txSQL.DeleteFrom(commentTable).Where("issue_id = ?", st.ID).Exec(ctx); err != nil {
		return errors.WrapDatabaseError(ctx, err, "清理 issue_comments 失败")
	}
	return r.insertComments(ctx, txSQL, st)
}

func (r *Repository) deleteIssue(ctx context.Context, txSQL dbsql.ISql, id string) error {
	result, err := txSQL.DeleteFrom(issueTable).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "删除 issue 失败")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "读取删除行数失败")
	}
	if affected == 0 {
		return repository.NewNotFound(issueTable, id)
	}
	if _, err := txSQL.DeleteFrom(commentTable).Where("issue_id = ?", id).Exec(ctx); err != nil {
		return errors.WrapDatabaseError(ctx, err, "删除 issue_comments 失败")
	}
	return nil
}

func (r *Repository) insertComments(ctx context.Context, txSQL dbsql.ISql, st issues.IssueState) error {
	if len(st.Comments) == 0 {
		return nil
	}
	ins := txSQL.InsertInto(commentTable).
		Columns("issue_id", "comment_id", "user_id", "body", "creation_time")
	for _, c := range st.Comments {
		ins = ins.Values(st.ID, c.ID, c.UserID, c.Text, toUnix(c.CreationTime))
	}
	if _, err := ins.Exec(ctx); err != nil {
		return errors.WrapDatabaseError(ctx, err, "插入 issue_comments 失败")
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
