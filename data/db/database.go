// Package db 定义仓储持久化所依赖的数据库抽象。
//
// 仓储与刷盘代码只面向这里的接口编程，驱动细节（database/sql、
// 连接池、方言差异）收在 basic 与 dialect 子包里，单元测试可以
// 用内存实现替换。
package db

import (
	"context"
	"database/sql"
)

// IDatabase 数据库连接接口
type IDatabase interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// 事务边界由上层协调器掌握，仓储只在其提供的事务内执行语句
	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error

	// Raw 暴露底层连接，仅限建表迁移等特殊场景
	Raw() any
}

// IDialectNameProvider 可选接口：报告底层方言名称
//
// 实现方返回 "sqlite"、"mysql"、"postgres" 等驱动名，
// dialect 包据此决定占位符改写与唯一键冲突识别方式。
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 事务接口，本身也是一个 IDatabase
type ITransaction interface {
	IDatabase

	Commit() error
	Rollback() error
}

// IRows 多行结果集
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// IRow 单行结果
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 数据库连接配置
type DBConfig struct {
	Driver   string // sqlite, mysql, postgres
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// 连接池
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒

	Charset   string
	ParseTime bool
	Location  string
}
