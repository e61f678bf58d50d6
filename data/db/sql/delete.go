package sql

import (
	"context"
	"database/sql"
	"strings"

	core "dddkit/data/db"
	"dddkit/data/db/dialect"
)

type deleteBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	where []string
	args  []any
}

func (b *deleteBuilder) Where(cond string, args ...any) IDeleteBuilder {
	if cond != "" {
		b.where = append(b.where, cond)
		b.args = append(b.args, args...)
	}
	return b
}

func (b *deleteBuilder) Build() (string, []any) {
	if !isSafeIdentifier(b.table) {
		panic("deleteBuilder: unsafe table name " + b.table)
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	return sb.String(), b.args
}

func (b *deleteBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}
