package basic

import (
	"context"
	"database/sql"
	"fmt"

	core "dddkit/data/db"
	"dddkit/data/db/dialect"
)

// Tx 事务实现，委托给 *sql.Tx。
// 本身也实现 core.IDatabase，刷盘代码可以把事务当连接用，
// 准备阶段的语句全部落在同一个事务里。
type Tx struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect dialect.Dialect
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	q := t.dialect.Rebind(query)
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	q := t.dialect.Rebind(query)
	return &Row{row: t.tx.QueryRowContext(ctx, q, args...)}
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := t.dialect.Rebind(query)
	return t.tx.ExecContext(ctx, q, args...)
}

// 不支持嵌套事务，事务边界由作用域协调器掌握
func (t *Tx) Begin(ctx context.Context) (core.ITransaction, error) {
	return nil, fmt.Errorf("basic.Tx: nested transactions are not supported")
}

func (t *Tx) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	return nil, fmt.Errorf("basic.Tx: nested transactions are not supported")
}

func (t *Tx) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }
func (t *Tx) Close() error                   { return nil }
func (t *Tx) Raw() any                       { return t.tx }

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// GetDialectName 实现 core.IDialectNameProvider，事务内构建语句时方言与外层连接一致。
func (t *Tx) GetDialectName() string {
	return string(t.dialect.Name())
}
