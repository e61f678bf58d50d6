// Package uow 提供工作单元（Unit of Work）事务边界
//
// 一个工作单元对应恰好一次用例执行：用例开始时 Begin，
// 通过仓储装载/暂存聚合，结束时 Commit 或 Rollback，二者有且只有其一。
//
// 环境作用域（ambient scope）通过 context 显式传播，而非隐藏的
// 线程本地状态：Begin 在已有活动作用域的 context 上被调用时，
// 默认加入该作用域并共享其唯一结局；内层作用域请求回滚会"毒化"
// 整个环境作用域，使外层随后的 Commit 必定失败，内层失败绝不会被
// 静默吞掉。
//
// 使用模式：
//
//	ctx, scope := uow.Begin(ctx)
//	defer scope.Rollback(ctx) // 异常路径兜底；提交成功后为无害空操作
//
//	// 通过仓储装载、修改、暂存聚合 ...
//
//	return scope.Commit(ctx)
package uow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"dddkit/errors"
	"dddkit/eventing"
	"dddkit/logging"
)

// State 工作单元状态
// 状态机：Active → Committed | RolledBack（两者均为终态）
type State int

const (
	StateActive State = iota + 1
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "not_started"
	}
}

// ITransactionalResource 参与工作单元的事务性资源
//
// 仓储实现将每个作用域的暂存缓冲注册为一个资源。提交分两阶段：
// 先对所有资源 Prepare，全部成功后再逐个 Apply 生效。
// 任一 Prepare 失败时所有资源只会被 Discard，不留下任何已应用的变更。
type ITransactionalResource interface {
	// Prepare 校验并准备全部暂存变更（乐观锁版本检查、在未提交的
	// SQL 事务内执行语句等），不得产生外部可见的副作用
	Prepare(ctx context.Context) error

	// Apply 使已准备的变更生效；仅在所有资源 Prepare 成功后调用
	Apply(ctx context.Context) error

	// Discard 丢弃暂存与已准备的变更
	Discard()
}

type resourceEntry struct {
	key      string
	resource ITransactionalResource
}

// UnitOfWork 工作单元（环境事务作用域）
//
// 单写者约束：同一作用域内的仓储操作不支持多 goroutine 并发调用，
// 由调用方负责串行化；内部互斥锁只保护状态机本身。
type UnitOfWork struct {
	id     string
	logger logging.Logger

	mu          sync.Mutex
	state       State
	poisoned    bool
	resources   []resourceEntry
	afterCommit []func(ctx context.Context)
	events      []eventing.IDomainEvent
}

type ctxKey struct{}

// Scope 某次 Begin 调用返回的作用域把手
//
// 外层把手（恰好一个）拥有终局决定权；内层把手的 Commit 是空操作，
// Rollback 则毒化整个环境作用域。
type Scope struct {
	uow   *UnitOfWork
	owner bool
}

// Option Begin 的可选参数
type Option func(*beginOptions)

type beginOptions struct {
	requireNew bool
	logger     logging.Logger
}

// RequireNew 强制开启独立作用域，即使当前 context 已有活动作用域
func RequireNew() Option {
	return func(o *beginOptions) { o.requireNew = true }
}

// WithLogger 指定作用域使用的 Logger
func WithLogger(logger logging.Logger) Option {
	return func(o *beginOptions) { o.logger = logger }
}

// Begin 开启或加入一个工作单元作用域
//
// 当前 context 已有活动作用域且未指定 RequireNew 时，环境加入该作用域：
// 返回原 context 和一个内层把手，不会开启第二个作用域。
func Begin(ctx context.Context, opts ...Option) (context.Context, *Scope) {
	options := beginOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if existing := Current(ctx); existing != nil && !options.requireNew {
		existing.logger.Debug(ctx, "加入环境工作单元", logging.String("uow_id", existing.id))
		return ctx, &Scope{uow: existing, owner: false}
	}

	logger := options.logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	u := &UnitOfWork{
		id:     uuid.NewString(),
		logger: logger.WithFields(logging.String("component", "uow")),
		state:  StateActive,
	}
	u.logger.Debug(ctx, "工作单元已开启", logging.String("uow_id", u.id))
	return context.WithValue(ctx, ctxKey{}, u), &Scope{uow: u, owner: true}
}

// Current 返回 context 中的活动工作单元，没有则返回 nil
func Current(ctx context.Context) *UnitOfWork {
	u, _ := ctx.Value(ctxKey{}).(*UnitOfWork)
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateActive {
		return nil
	}
	return u
}

// ID 返回作用域标识（用于日志与按作用域划分暂存缓冲）
func (u *UnitOfWork) ID() string { return u.id }

// State 返回当前状态
func (u *UnitOfWork) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Enlist 将事务性资源登记到作用域
//
// 仓储在首次于该作用域内暂存变更时调用。同一资源重复登记是无害空操作；
// 不同资源使用相同 key 是装配错误，直接拒绝而不是静默丢弃其中一个。
func (u *UnitOfWork) Enlist(key string, resource ITransactionalResource) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateActive {
		return errors.NewTransactionError("工作单元已结束，无法登记资源", nil)
	}
	for _, entry := range u.resources {
		if entry.key != key {
			continue
		}
		if entry.resource == resource {
			return nil
		}
		return errors.NewTransactionError("资源 key 已被其他资源占用: "+key, nil)
	}
	u.resources = append(u.resources, resourceEntry{key: key, resource: resource})
	return nil
}

// AfterCommit 注册提交成功后执行的钩子（如领域事件发布）
// 钩子在状态迁移到 Committed 之后运行，其失败不影响已提交的结局。
func (u *UnitOfWork) AfterCommit(fn func(ctx context.Context)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateActive {
		return
	}
	u.afterCommit = append(u.afterCommit, fn)
}

// RecordEvents 收集聚合产生的领域事件，随提交成功一起交给发布钩子
func (u *UnitOfWork) RecordEvents(events ...eventing.IDomainEvent) {
	if len(events) == 0 {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateActive {
		return
	}
	u.events = append(u.events, events...)
}

// DrainEvents 取出已收集的领域事件并清空（供发布钩子使用）
func (u *UnitOfWork) DrainEvents() []eventing.IDomainEvent {
	u.mu.Lock()
	defer u.mu.Unlock()
	events := u.events
	u.events = nil
	return events
}

// Commit 提交作用域
//
// 仅外层把手真正提交，且分两阶段：先按登记顺序 Prepare 所有资源，
// 任一失败或 context 已取消则整体回滚，不会有任何变更生效；
// 全部准备成功后再逐个 Apply 生效。
// 版本过期导致的失败按原样返回 CONCURRENCY_CONFLICT，
// 其余失败包装为 TRANSACTION_ERROR。
// 内层把手的 Commit 是空操作，终局由外层决定。
func (s *Scope) Commit(ctx context.Context) error {
	u := s.uow

	if !s.owner {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.state != StateActive {
			return errors.NewTransactionError("工作单元已结束", nil)
		}
		return nil
	}

	u.mu.Lock()
	if u.state != StateActive {
		state := u.state
		u.mu.Unlock()
		return errors.NewTransactionError("工作单元已结束: "+state.String(), nil)
	}
	if u.poisoned {
		u.rollbackLocked(ctx)
		u.mu.Unlock()
		return errors.NewTransactionError("内层作用域已请求回滚，环境作用域被毒化", nil)
	}
	if err := ctx.Err(); err != nil {
		u.rollbackLocked(ctx)
		u.mu.Unlock()
		return errors.NewTransactionError("提交前 context 已取消，作用域已回滚", err)
	}

	resources := u.resources
	u.mu.Unlock()

	// 资源 Prepare/Apply 可能是挂起操作（数据库写入等），在锁外执行。
	// 单写者约束保证此时不会有并发的暂存调用。
	for _, entry := range resources {
		if err := ctx.Err(); err != nil {
			u.rollbackAll(ctx)
			return errors.NewTransactionError("提交中途 context 取消，作用域已回滚", err)
		}
		if err := entry.resource.Prepare(ctx); err != nil {
			u.rollbackAll(ctx)
			u.logger.Warn(ctx, "提交准备失败，作用域已回滚",
				logging.String("uow_id", u.id),
				logging.String("resource", entry.key),
				logging.Error(err),
			)
			if errors.IsConcurrencyConflict(err) {
				return err
			}
			return errors.NewTransactionError("资源准备失败: "+entry.key, err)
		}
	}

	for _, entry := range resources {
		if err := entry.resource.Apply(ctx); err != nil {
			u.rollbackAll(ctx)
			u.logger.Warn(ctx, "已准备的变更生效失败，作用域已回滚",
				logging.String("uow_id", u.id),
				logging.String("resource", entry.key),
				logging.Error(err),
			)
			if errors.IsConcurrencyConflict(err) {
				return err
			}
			return errors.NewTransactionError("资源生效失败: "+entry.key, err)
		}
	}

	u.mu.Lock()
	u.state = StateCommitted
	hooks := u.afterCommit
	u.afterCommit = nil
	u.mu.Unlock()

	u.logger.Debug(ctx, "工作单元已提交", logging.String("uow_id", u.id))

	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

// Rollback 回滚作用域，丢弃所有暂存变更
//
// 幂等：作用域已结束时为无害空操作（便于 defer）。
// 内层把手的 Rollback 同时毒化环境作用域。
func (s *Scope) Rollback(ctx context.Context) error {
	u := s.uow
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateActive {
		return nil
	}

	if !s.owner {
		u.poisoned = true
		for _, entry := range u.resources {
			entry.resource.Discard()
		}
		u.logger.Debug(ctx, "内层作用域回滚，环境作用域已毒化", logging.String("uow_id", u.id))
		return nil
	}

	u.rollbackLocked(ctx)
	return nil
}

// rollbackAll 锁外提交路径的回滚入口
func (u *UnitOfWork) rollbackAll(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateActive {
		return
	}
	u.rollbackLocked(ctx)
}

// rollbackLocked 调用方必须持有 u.mu
func (u *UnitOfWork) rollbackLocked(ctx context.Context) {
	for _, entry := range u.resources {
		entry.resource.Discard()
	}
	u.events = nil
	u.afterCommit = nil
	u.state = StateRolledBack
	u.logger.Debug(ctx, "工作单元已回滚", logging.String("uow_id", u.id))
}
