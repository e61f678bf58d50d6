// Package issuedb 提供 Issue 聚合的 SQL 仓储实现
//
// 查询路径先把规约谓词翻译为 WHERE 条件下推到存储端；
// 含 Opaque 节点时条件被放宽为超集，取回后用规约内存求值二次过滤。
// 暂存路径与内存仓储一致：写操作缓冲在工作单元作用域里。
// 提交的准备阶段在未提交的 SQL 事务内执行整批语句（含乐观锁版本校验），
// 全部参与资源准备成功后事务才真正提交。
package issuedb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	core "dddkit/data/db"
	"dddkit/data/db/dialect"
	dbsql "dddkit/data/db/sql"
	"dddkit/data/specsql"
	"dddkit/domain/repository"
	spec "dddkit/domain/specification"
	"dddkit/domain/uow"
	"dddkit/errors"
	"dddkit/issues"
	"dddkit/logging"
)

const (
	issueTable   = "issues"
	commentTable = "issue_comments"
)

// 谓词字段名到列名的映射
var issueColumns = map[string]string{
	issues.FieldIsClosed:       "is_closed",
	issues.FieldAssignedUserID: "assigned_user_id",
	issues.FieldCreationTime:   "creation_time",
	issues.FieldRepositoryID:   "repository_id",
	issues.FieldIsLocked:       "is_locked",
}

var issueSelectColumns = []string{
	"id", "version", "repository_id", "title", "body", "assigned_user_id",
	"is_closed", "close_reason", "is_locked", "creation_time", "last_comment_time",
}

const issueDDL = `
CREATE TABLE IF NOT EXISTS issues (
    id                TEXT PRIMARY KEY,
    version           INTEGER NOT NULL,
    repository_id     TEXT NOT NULL,
    title             TEXT NOT NULL,
    body              TEXT NOT NULL DEFAULT '',
    assigned_user_id  TEXT NOT NULL DEFAULT '',
    is_closed         INTEGER NOT NULL DEFAULT 0,
    close_reason      TEXT NOT NULL DEFAULT '',
    is_locked         INTEGER NOT NULL DEFAULT 0,
    creation_time     INTEGER NOT NULL,
    last_comment_time INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS issue_comments (
    issue_id      TEXT NOT NULL,
    comment_id    TEXT NOT NULL,
    user_id       TEXT NOT NULL,
    body          TEXT NOT NULL,
    creation_time INTEGER NOT NULL,
    PRIMARY KEY (issue_id, comment_id)
);
`

// Repository Issue 聚合的 SQL 仓储
type Repository struct {
	db         core.IDatabase
	sqlb       dbsql.ISql
	dialect    dialect.Dialect
	translator *specsql.Translator
	logger     logging.Logger

	// resourceKey 工作单元登记用的唯一 key，区分到仓储实例
	resourceKey string

	mu      sync.Mutex
	buffers map[string]*buffer
}

// NewRepository 创建 SQL 仓储
func NewRepository(db core.IDatabase) *Repository {
	d := dialect.FromDatabase(db)
	return &Repository{
		db:          db,
		sqlb:        dbsql.New(db),
		dialect:     d,
		translator:  specsql.NewTranslator(d, issueColumns),
		logger:      logging.GetLogger().WithFields(logging.String("repository", issueTable)),
		resourceKey: "sql:" + issueTable + ":" + uuid.NewString(),
		buffers:     make(map[string]*buffer),
	}
}

// Migrate 建表，可重复执行
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(issueDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return errors.WrapDatabaseError(ctx, err, "建表失败")
		}
	}
	return nil
}

// GetByID 实现 repository.IRepository
func (r *Repository) GetByID(ctx context.Context, id string, opts ...repository.LoadOption) (*Issue, error) {
	options := repository.ResolveLoadOptions(opts)

	if buf := r.currentBuffer(ctx); buf != nil {
		if op, ok := buf.overlay[id]; ok {
			if op.kind == opDelete {
				return nil, repository.NewNotFound(issueTable, id)
			}
			return r.present(issues.RestoreIssue(op.state), options), nil
		}
	}

	states, err := r.selectIssues(ctx, "id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, repository.NewNotFound(issueTable, id)
	}

	st := states[0]
	if options.IncludeDetails {
		comments, err := r.loadComments(ctx, []string{st.ID})
		if err != nil {
			return nil, err
		}
		st.Comments = comments[st.ID]
	}
	return r.present(issues.RestoreIssue(st), options), nil
}

// Query 实现 repository.IRepository
func (r *Repository) Query(ctx context.Context, s spec.ISpecification[*Issue]) ([]*Issue, error) {
	res, err := r.translator.Translate(s.Predicate())
	if err != nil {
		return nil, err
	}

	var (
		cond string
		args []any
	)
	if res.Cond != "" {
		cond, args = res.Cond, normalizeArgs(res.Args)
	}
	states, err := r.selectIssues(ctx, cond, args)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(states))
	for _, st := range states {
		ids = append(ids, st.ID)
	}
	comments, err := r.loadComments(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*Issue, 0, len(states))
	for _, st := range states {
		st.Comments = comments[st.ID]
		candidate := issues.RestoreIssue(st)
		// 放宽过的条件取回的是超集，用谓词的内存解释器收口
		if !res.Exact && !s.IsSatisfiedBy(candidate) {
			continue
		}
		out = append(out, candidate)
	}
	return r.applyOverlay(ctx, out, s), nil
}

// Count 实现 repository.IRepository
// 条件精确且无暂存变更时直接下推 COUNT；否则退回 Query 计数。
func (r *Repository) Count(ctx context.Context, s spec.ISpecification[*Issue]) (int64, error) {
	res, err := r.translator.Translate(s.Predicate())
	if err != nil {
		return 0, err
	}
	if res.Exact && r.currentBuffer(ctx) == nil {
		sel := r.sqlb.Select("COUNT(*)").From(issueTable)
		if res.Cond != "" {
			sel = sel.Where(res.Cond, normalizeArgs(res.Args)...)
		}
		var n int64
		if err := sel.QueryRow(ctx).Scan(&n); err != nil {
			return 0, errors.WrapDatabaseError(ctx, err, "COUNT 查询失败")
		}
		return n, nil
	}

	matches, err := r.Query(ctx, s)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

// Add 实现 repository.IRepository
func (r *Repository) Add(ctx context.Context, issue *Issue) error {
	buf, u, err := r.stagingBuffer(ctx, "Add")
	if err != nil {
		return err
	}
	buf.stage(stagedOp{kind: opAdd, id: issue.ID, state: issue.State()})
	drainEvents(u, issue)
	return nil
}

// Update 实现 repository.IRepository
func (r *Repository) Update(ctx context.Context, issue *Issue) error {
	buf, u, err := r.stagingBuffer(ctx, "Update")
	if err != nil {
		return err
	}
	op := stagedOp{kind: opUpdate, id: issue.ID, state: issue.State(), baseVersion: issue.Version}
	if prior, ok := buf.overlay[issue.ID]; ok && prior.kind == opAdd {
		op.kind = opAdd
		op.baseVersion = 0
	}
	buf.stage(op)
	drainEvents(u, issue)
	return nil
}

// Delete 实现 repository.IRepository
func (r *Repository) Delete(ctx context.Context, id string) error {
	buf, _, err := r.stagingBuffer(ctx, "Delete")
	if err != nil {
		return err
	}
	if prior, ok := buf.overlay[id]; ok && prior.kind == opAdd {
		buf.removeStagedFor(id)
		return nil
	}
	buf.stage(stagedOp{kind: opDelete, id: id})
	return nil
}

// Issue 仓储的聚合别名，避免调用方重复书写包名
type Issue = issues.Issue

func (r *Repository) present(issue *Issue, options repository.LoadOptions) *Issue {
	if !options.IncludeDetails {
		return issues.StripComments(issue)
	}
	return issue
}

func drainEvents(u *uow.UnitOfWork, issue *Issue) {
	events := issue.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	issue.ClearDomainEvents()
	u.RecordEvents(events...)
}

// selectIssues 按条件取回行并映射为持久化形态（不含子实体）
func (r *Repository) selectIssues(ctx context.Context, cond string, args []any) ([]issues.IssueState, error) {
	sel := r.sqlb.Select(issueSelectColumns...).From(issueTable)
	if cond != "" {
		sel = sel.Where(cond, args...)
	}
	rows, err := sel.Query(ctx)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "查询 issues 失败")
	}
	defer rows.Close()

	var out []issues.IssueState
	for rows.Next() {
		var (
			st              issues.IssueState
			isClosed        int64
			isLocked        int64
			creationTime    int64
			lastCommentTime int64
		)
		if err := rows.Scan(
			&st.ID, &st.Version, &st.RepositoryID, &st.Title, &st.Text,
			&st.AssignedUserID, &isClosed, &st.CloseReason, &isLocked,
			&creationTime, &lastCommentTime,
		); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "扫描 issue 行失败")
		}
		st.IsClosed = isClosed != 0
		st.IsLocked = isLocked != 0
		st.CreationTime = fromUnix(creationTime)
		st.LastCommentTime = fromUnix(lastCommentTime)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "遍历 issue 行失败")
	}
	return out, nil
}

// loadComments 批量装载子实体
func (r *Repository) loadComments(ctx context.Context, issueIDs []string) (map[string][]issues.CommentState, error) {
	out := make(map[string][]issues.CommentState, len(issueIDs))
	if len(issueIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(issueIDs)), ", ")
	args := make([]any, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}

	rows, err := r.sqlb.Select("issue_id", "comment_id", "user_id", "body", "creation_time").
		From(commentTable).
		Where("issue_id IN ("+placeholders+")", args...).
		OrderBy("creation_time").
		Query(ctx)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "查询 issue_comments 失败")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			issueID      string
			c            issues.CommentState
			creationTime int64
		)
		if err := rows.Scan(&issueID, &c.ID, &c.UserID, &c.Text, &creationTime); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "扫描 comment 行失败")
		}
		c.CreationTime = fromUnix(creationTime)
		out[issueID] = append(out[issueID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "遍历 comment 行失败")
	}
	return out, nil
}

// applyOverlay 把当前作用域的暂存变更叠加到查询结果上
func (r *Repository) applyOverlay(ctx context.Context, stored []*Issue, s spec.ISpecification[*Issue]) []*Issue {
	buf := r.currentBuffer(ctx)
	if buf == nil {
		return stored
	}

	out := make([]*Issue, 0, len(stored)+len(buf.overlay))
	seen := make(map[string]bool, len(buf.overlay))
	for _, candidate := range stored {
		if op, ok := buf.overlay[candidate.ID]; ok {
			seen[candidate.ID] = true
			if op.kind == opDelete {
				continue
			}
			staged := issues.RestoreIssue(op.state)
			if s.IsSatisfiedBy(staged) {
				out = append(out, staged)
			}
			continue
		}
		out = append(out, candidate)
	}
	for id, op := range buf.overlay {
		if seen[id] || op.kind == opDelete {
			continue
		}
		staged := issues.RestoreIssue(op.state)
		if s.IsSatisfiedBy(staged) {
			out = append(out, staged)
		}
	}
	return out
}

func (r *Repository) currentBuffer(ctx context.Context) *buffer {
	u := uow.Current(ctx)
	if u == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffers[u.ID()]
}

func (r *Repository) stagingBuffer(ctx context.Context, operation string) (*buffer, *uow.UnitOfWork, error) {
	u := uow.Current(ctx)
	if u == nil {
		return nil, nil, repository.NewNoActiveScope(issueTable + "." + operation)
	}

	r.mu.Lock()
	buf, ok := r.buffers[u.ID()]
	if !ok {
		buf = &buffer{repo: r, uowID: u.ID(), overlay: make(map[string]stagedOp)}
		r.buffers[u.ID()] = buf
	}
	r.mu.Unlock()

	if !ok {
		if err := u.Enlist(r.resourceKey, buf); err != nil {
			r.dropBuffer(u.ID())
			return nil, nil, err
		}
	}
	return buf, u, nil
}

func (r *Repository) dropBuffer(uowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, uowID)
}

// normalizeArgs 把谓词参数转换为列的存储表示
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case time.Time:
			out[i] = toUnix(v)
		case bool:
			if v {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		default:
			out[i] = arg
		}
	}
	return out
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
