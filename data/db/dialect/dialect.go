// Package dialect 抽象仓储实际用到的方言差异：
// 标识符引用、占位符改写、唯一键冲突识别。
package dialect

import (
	"strconv"
	"strings"

	core "dddkit/data/db"
)

// Name 标准化的方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 当前数据库的方言能力
type Dialect struct {
	name Name
}

// New 根据驱动名构造方言（大小写不敏感，未识别时为 Unknown）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从连接实例推断方言
//
// 连接需实现 core.IDialectNameProvider，否则视为 Unknown。
// basic.DB 与 basic.Tx 都实现了该接口，事务内构建语句时
// 能力与外层连接保持一致。
func FromDatabase(db core.IDatabase) Dialect {
	if db == nil {
		return Dialect{name: NameUnknown}
	}
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// QuoteIdentifier 按方言为表名、列名加引号。
//
// 带点的限定名（schema.table）逐段加引号；MySQL 用反引号，
// SQLite/Postgres 用双引号；Unknown 方言原样返回。
// 标识符本身的合法性由调用方校验。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite, NamePostgres:
			parts[i] = `"` + p + `"`
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 将通用占位符 ? 改写为方言形式。
//
// 仅 Postgres 需要改写（? 依次变为 $1、$2...），其余方言原样返回。
// 实现是逐字符扫描，不解析 SQL 语法，字符串字面量里的 ? 也会被
// 替换；常量应通过参数传入而不是写进语句文本。
func (d Dialect) Rebind(query string) string {
	if d.name != NamePostgres || query == "" {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 4)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// IsUniqueViolation 判断错误是否为唯一键或主键冲突。
//
// 按错误消息关键字匹配，覆盖各方言的典型格式：
//   - MySQL: "Duplicate entry" / "duplicate key"（错误码 1062）
//   - SQLite: "UNIQUE constraint failed"
//   - Postgres: "duplicate key value" / "unique constraint"（23505）
//
// 消息文本受数据库版本与语言设置影响，需要精确判断时应改用
// 驱动提供的错误类型。
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	case NamePostgres:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	default:
		// 未知方言做宽松匹配，宁可漏判不可误判
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
