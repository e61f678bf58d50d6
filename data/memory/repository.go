package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"dddkit/domain/entity"
	"dddkit/domain/repository"
	spec "dddkit/domain/specification"
	"dddkit/domain/uow"
	"dddkit/logging"
)

type opKind int

const (
	opAdd opKind = iota + 1
	opUpdate
	opDelete
)

// stagedOp 一次暂存操作
type stagedOp[T entity.IAggregate[ID], ID comparable] struct {
	kind opKind
	id   ID
	// value 暂存时的聚合副本（delete 时为零值）
	value T
	// baseVersion 暂存更新时聚合携带的版本号，提交时用于乐观锁校验
	baseVersion int64
}

// buffer 单个工作单元作用域的暂存缓冲
// 实现 uow.ITransactionalResource：Prepare 校验整批操作，Apply 原子换入。
type buffer[T entity.IAggregate[ID], ID comparable] struct {
	repo  *Repository[T, ID]
	uowID string
	ops   []stagedOp[T, ID]
	// overlay 每个标识的最新暂存状态，支撑 read-your-writes
	overlay map[ID]stagedOp[T, ID]
}

func (b *buffer[T, ID]) stage(op stagedOp[T, ID]) {
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

// Prepare 实现 uow.ITransactionalResource：只校验，不修改存储
func (b *buffer[T, ID]) Prepare(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.repo.store.validateBatch(b.ops)
}

// Apply 实现 uow.ITransactionalResource
// applyBatch 在换入前重新校验，两阶段之间被并发作用域抢先提交时仍报冲突。
func (b *buffer[T, ID]) Apply(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.repo.store.applyBatch(b.ops); err != nil {
		return err
	}
	b.repo.dropBuffer(b.uowID)
	return nil
}

// Discard 实现 uow.ITransactionalResource
func (b *buffer[T, ID]) Discard() {
	b.repo.dropBuffer(b.uowID)
}

// Repository 内存仓储，实现 repository.IRepository
//
// WithoutDetails 装载行为：内存存储总是整体持有聚合，
// 因此该选项只影响 stripDetails 回调（配置时裁剪子实体集合）；
// 不叠加额外的暂存语义差异。
type Repository[T entity.IAggregate[ID], ID comparable] struct {
	store  *Store[T, ID]
	logger logging.Logger

	// resourceKey 工作单元登记用的唯一 key；同名存储上的多个仓储实例
	// 各自持有独立缓冲，key 必须区分到实例
	resourceKey string

	// stripDetails 可选：WithoutDetails 装载时裁剪子实体集合
	stripDetails func(T) T

	mu      sync.Mutex
	buffers map[string]*buffer[T, ID]
}

// RepoOption 仓储可选配置
type RepoOption[T entity.IAggregate[ID], ID comparable] func(*Repository[T, ID])

// WithStripDetails 配置 WithoutDetails 装载时的子实体裁剪函数
func WithStripDetails[T entity.IAggregate[ID], ID comparable](strip func(T) T) RepoOption[T, ID] {
	return func(r *Repository[T, ID]) { r.stripDetails = strip }
}

// NewRepository 创建内存仓储
func NewRepository[T entity.IAggregate[ID], ID comparable](store *Store[T, ID], opts ...RepoOption[T, ID]) *Repository[T, ID] {
	r := &Repository[T, ID]{
		store:       store,
		logger:      logging.GetLogger().WithFields(logging.String("repository", store.Name())),
		resourceKey: "memory:" + store.Name() + ":" + uuid.NewString(),
		buffers:     make(map[string]*buffer[T, ID]),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetByID 实现 repository.IRepository
func (r *Repository[T, ID]) GetByID(ctx context.Context, id ID, opts ...repository.LoadOption) (T, error) {
	var zero T
	options := repository.ResolveLoadOptions(opts)

	if buf := r.currentBuffer(ctx); buf != nil {
		if op, ok := buf.overlay[id]; ok {
			if op.kind == opDelete {
				return zero, repository.NewNotFound(r.store.Name(), id)
			}
			return r.present(r.store.clone(op.value), options), nil
		}
	}

	value, ok := r.store.Get(id)
	if !ok {
		return zero, repository.NewNotFound(r.store.Name(), id)
	}
	return r.present(value, options), nil
}

// Query 实现 repository.IRepository
// 直接用规约的内存求值过滤（存储端翻译用于 SQL 仓储）。
func (r *Repository[T, ID]) Query(ctx context.Context, s spec.ISpecification[T]) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := r.snapshotWithOverlay(ctx)
	out := make([]T, 0, len(candidates))
	for _, candidate := range candidates {
		if s.IsSatisfiedBy(candidate) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// Count 实现 repository.IRepository
func (r *Repository[T, ID]) Count(ctx context.Context, s spec.ISpecification[T]) (int64, error) {
	matches, err := r.Query(ctx, s)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

// Add 实现 repository.IRepository
func (r *Repository[T, ID]) Add(ctx context.Context, e T) error {
	buf, u, err := r.stagingBuffer(ctx, "Add")
	if err != nil {
		return err
	}
	buf.stage(stagedOp[T, ID]{kind: opAdd, id: e.GetID(), value: r.store.clone(e)})
	r.drainEvents(u, e)
	return nil
}

// Update 实现 repository.IRepository
func (r *Repository[T, ID]) Update(ctx context.Context, e T) error {
	buf, u, err := r.stagingBuffer(ctx, "Update")
	if err != nil {
		return err
	}
	op := stagedOp[T, ID]{
		kind:        opUpdate,
		id:          e.GetID(),
		value:       r.store.clone(e),
		baseVersion: e.GetVersion(),
	}
	// 同一作用域内先 Add 后 Update 合并为一次新增
	if prior, ok := buf.overlay[e.GetID()]; ok && prior.kind == opAdd {
		op.kind = opAdd
		op.baseVersion = 0
	}
	buf.stage(op)
	r.drainEvents(u, e)
	return nil
}

// Delete 实现 repository.IRepository
func (r *Repository[T, ID]) Delete(ctx context.Context, id ID) error {
	buf, _, err := r.stagingBuffer(ctx, "Delete")
	if err != nil {
		return err
	}
	// 同一作用域内 Add 后 Delete 直接抵消
	if prior, ok := buf.overlay[id]; ok && prior.kind == opAdd {
		buf.removeStagedFor(id)
		return nil
	}
	buf.stage(stagedOp[T, ID]{kind: opDelete, id: id})
	return nil
}

// removeStagedFor 撤销某标识的全部暂存操作
func (b *buffer[T, ID]) removeStagedFor(id ID) {
	delete(b.overlay, id)
	kept := b.ops[:0]
	for _, op := range b.ops {
		if op.id != id {
			kept = append(kept, op)
		}
	}
	b.ops = kept
}

// present 按装载选项整理返回值
func (r *Repository[T, ID]) present(value T, options repository.LoadOptions) T {
	if !options.IncludeDetails && r.stripDetails != nil {
		return r.stripDetails(value)
	}
	return value
}

// drainEvents 把聚合记录的领域事件转移到工作单元
func (r *Repository[T, ID]) drainEvents(u *uow.UnitOfWork, e T) {
	events := e.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	e.ClearDomainEvents()
	u.RecordEvents(events...)
}

// currentBuffer 返回当前作用域的暂存缓冲（只读路径，不创建）
func (r *Repository[T, ID]) currentBuffer(ctx context.Context) *buffer[T, ID] {
	u := uow.Current(ctx)
	if u == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffers[u.ID()]
}

// stagingBuffer 返回当前作用域的暂存缓冲，必要时创建并登记到工作单元
func (r *Repository[T, ID]) stagingBuffer(ctx context.Context, operation string) (*buffer[T, ID], *uow.UnitOfWork, error) {
	u := uow.Current(ctx)
	if u == nil {
		return nil, nil, repository.NewNoActiveScope(r.store.Name() + "." + operation)
	}

	r.mu.Lock()
	buf, ok := r.buffers[u.ID()]
	if !ok {
		buf = &buffer[T, ID]{
			repo:    r,
			uowID:   u.ID(),
			overlay: make(map[ID]stagedOp[T, ID]),
		}
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

func (r *Repository[T, ID]) dropBuffer(uowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, uowID)
}

// snapshotWithOverlay 存储快照叠加当前作用域的暂存变更
func (r *Repository[T, ID]) snapshotWithOverlay(ctx context.Context) []T {
	stored := r.store.List()

	buf := r.currentBuffer(ctx)
	if buf == nil {
		return stored
	}

	out := make([]T, 0, len(stored)+len(buf.overlay))
	seen := make(map[ID]bool, len(buf.overlay))
	for _, candidate := range stored {
		id := candidate.GetID()
		if op, ok := buf.overlay[id]; ok {
			seen[id] = true
			if op.kind == opDelete {
				continue
			}
			out = append(out, r.store.clone(op.value))
			continue
		}
		out = append(out, candidate)
	}
	for id, op := range buf.overlay {
		if seen[id] || op.kind == opDelete {
			continue
		}
		out = append(out, r.store.clone(op.value))
	}
	return out
}
