package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/domain/entity"
	"dddkit/domain/repository"
	spec "dddkit/domain/specification"
	"dddkit/domain/uow"
	derrors "dddkit/errors"
	"dddkit/logging"
)

func init() {
	logging.SetLogger(&logging.NoopLogger{})
}

type account struct {
	entity.Aggregate[string]
	Owner   string
	Balance int64
	Tags    []string
}

func (a *account) GetAggregateType() string { return "account" }

func cloneAccount(a *account) *account {
	cp := *a
	cp.Tags = append([]string(nil), a.Tags...)
	return &cp
}

func newAccount(id, owner string, balance int64) *account {
	a := &account{Owner: owner, Balance: balance}
	a.ID = id
	return a
}

func ownerIs(owner string) spec.ISpecification[*account] {
	return spec.Where("owner", spec.OpEq, owner, func(a *account) bool {
		return a.Owner == owner
	})
}

func newAccountRepo(opts ...RepoOption[*account, string]) (*Store[*account, string], *Repository[*account, string]) {
	store := NewStore[*account, string]("account", cloneAccount)
	return store, NewRepository(store, opts...)
}

func TestRepositoryAddCommitRoundTrip(t *testing.T) {
	_, repo := newAccountRepo()

	ctx, scope := uow.Begin(context.Background())
	require.NoError(t, repo.Add(ctx, newAccount("a1", "alice", 100)))
	require.NoError(t, scope.Commit(ctx))

	got, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, int64(1), got.GetVersion())
}

func TestRepositoryRequiresActiveScope(t *testing.T) {
	_, repo := newAccountRepo()

	err := repo.Add(context.Background(), newAccount("a1", "alice", 100))
	require.Error(t, err)
	assert.True(t, derrors.IsTransactionError(err))
}

func TestRepositoryReadYourWrites(t *testing.T) {
	store, repo := newAccountRepo()
	store.Seed(newAccount("a1", "alice", 100))

	ctx, scope := uow.Begin(context.Background())
	defer scope.Rollback(ctx)

	loaded, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	loaded.Balance = 250
	require.NoError(t, repo.Update(ctx, loaded))
	require.NoError(t, repo.Add(ctx, newAccount("a2", "bob", 10)))

	// 作用域内可见暂存变更
	again, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), again.Balance)

	matches, err := repo.Query(ctx, ownerIs("bob"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// 作用域外不可见
	outside, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), outside.Balance)
	_, err = repo.GetByID(context.Background(), "a2")
	assert.True(t, derrors.IsNotFound(err))
}

func TestRepositoryRollbackDiscardsStagedChanges(t *testing.T) {
	store, repo := newAccountRepo()
	store.Seed(newAccount("a1", "alice", 100))

	ctx, scope := uow.Begin(context.Background())
	loaded, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	loaded.Balance = 0
	require.NoError(t, repo.Update(ctx, loaded))
	require.NoError(t, scope.Rollback(ctx))

	got, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
	assert.Equal(t, 1, store.Len())
}

func TestRepositoryVersionConflictAbortsWholeBatch(t *testing.T) {
	store, repo := newAccountRepo()
	store.Seed(newAccount("a1", "alice", 100))
	store.Seed(newAccount("a2", "bob", 50))

	// 第一个作用域装载后暂不提交
	ctx1, scope1 := uow.Begin(context.Background())
	stale, err := repo.GetByID(ctx1, "a1")
	require.NoError(t, err)

	// 第二个作用域抢先更新 a1，版本推进到 2
	ctx2, scope2 := uow.Begin(context.Background(), uow.RequireNew())
	fresh, err := repo.GetByID(ctx2, "a1")
	require.NoError(t, err)
	fresh.Balance = 150
	require.NoError(t, repo.Update(ctx2, fresh))
	require.NoError(t, scope2.Commit(ctx2))

	// 第一个作用域基于过期版本更新 a1，同时更新 a2
	stale.Balance = 999
	require.NoError(t, repo.Update(ctx1, stale))
	other, err := repo.GetByID(ctx1, "a2")
	require.NoError(t, err)
	other.Balance = 1
	require.NoError(t, repo.Update(ctx1, other))

	err = scope1.Commit(ctx1)
	require.Error(t, err)
	assert.True(t, derrors.IsConcurrencyConflict(err))

	// 整批未落地：a1 保持第二个作用域的结果，a2 原封不动
	a1, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), a1.Balance)
	assert.Equal(t, int64(2), a1.GetVersion())
	a2, err := repo.GetByID(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, int64(50), a2.Balance)
	assert.Equal(t, int64(1), a2.GetVersion())
}

func TestRepositoryDeleteAndAddCancelOut(t *testing.T) {
	store, repo := newAccountRepo()

	ctx, scope := uow.Begin(context.Background())
	require.NoError(t, repo.Add(ctx, newAccount("a1", "alice", 100)))
	require.NoError(t, repo.Delete(ctx, "a1"))
	require.NoError(t, scope.Commit(ctx))

	assert.Equal(t, 0, store.Len())
}

func TestRepositoryDeleteCommitted(t *testing.T) {
	store, repo := newAccountRepo()
	store.Seed(newAccount("a1", "alice", 100))

	ctx, scope := uow.Begin(context.Background())
	require.NoError(t, repo.Delete(ctx, "a1"))

	// 作用域内已不可见
	_, err := repo.GetByID(ctx, "a1")
	assert.True(t, derrors.IsNotFound(err))

	require.NoError(t, scope.Commit(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestRepositoryCount(t *testing.T) {
	store, repo := newAccountRepo()
	store.Seed(newAccount("a1", "alice", 100))
	store.Seed(newAccount("a2", "alice", 50))
	store.Seed(newAccount("a3", "bob", 10))

	n, err := repo.Count(context.Background(), ownerIs("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRepositoryWithoutDetails(t *testing.T) {
	store, repo := newAccountRepo(WithStripDetails(func(a *account) *account {
		cp := cloneAccount(a)
		cp.Tags = nil
		return cp
	}))
	seeded := newAccount("a1", "alice", 100)
	seeded.Tags = []string{"vip"}
	store.Seed(seeded)

	full, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, full.Tags)

	slim, err := repo.GetByID(context.Background(), "a1", repository.WithoutDetails())
	require.NoError(t, err)
	assert.Nil(t, slim.Tags)
}

func TestRepositoryCloneIsolation(t *testing.T) {
	store, repo := newAccountRepo()
	store.Seed(newAccount("a1", "alice", 100))

	got, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	got.Balance = -1

	again, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Balance)
}

func TestSameNameStoresCommitBothRepositories(t *testing.T) {
	// 两个仓储实例各自的暂存缓冲登记互不挤占，即使存储同名
	storeA := NewStore[*account, string]("account", cloneAccount)
	storeB := NewStore[*account, string]("account", cloneAccount)
	repoA := NewRepository(storeA)
	repoB := NewRepository(storeB)

	ctx, scope := uow.Begin(context.Background())
	require.NoError(t, repoA.Add(ctx, newAccount("a1", "alice", 100)))
	require.NoError(t, repoB.Add(ctx, newAccount("b1", "bob", 200)))
	require.NoError(t, scope.Commit(ctx))

	assert.Equal(t, 1, storeA.Len())
	assert.Equal(t, 1, storeB.Len(), "第二个仓储的暂存新增必须一并落盘")
}

func TestCrossRepositoryConflictAppliesNothing(t *testing.T) {
	// 一个资源版本冲突时，另一资源已校验通过的新增也不得生效
	storeA, repoA := newAccountRepo()
	storeB := NewStore[*account, string]("account_b", cloneAccount)
	repoB := NewRepository(storeB)
	storeB.Seed(newAccount("b1", "bob", 200))

	ctx, scope := uow.Begin(context.Background())
	require.NoError(t, repoA.Add(ctx, newAccount("a1", "alice", 100)))

	stale := newAccount("b1", "bob", 500)
	stale.SetVersion(99)
	require.NoError(t, repoB.Update(ctx, stale))

	err := scope.Commit(ctx)
	require.Error(t, err)
	assert.True(t, derrors.IsConcurrencyConflict(err))
	assert.Equal(t, 0, storeA.Len(), "冲突提交不得让任何参与仓储落盘")

	kept, getErr := repoB.GetByID(context.Background(), "b1")
	require.NoError(t, getErr)
	assert.Equal(t, int64(200), kept.Balance)
}
