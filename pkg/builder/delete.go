package builder

import (
	"context"
	"fmt"
	"strings"
)

// Where adds WHERE conditions to the DELETE query.
func (q *DeleteQuery[T]) Where(conditions ...Condition) *DeleteQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// Returning specifies columns to return after delete.
func (q *DeleteQuery[T]) Returning(columns ...string) *DeleteQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the DELETE SQL and arguments.
func (q *DeleteQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("DELETE FROM ")
	sql.WriteString(q.table.Name)

	if len(q.where) > 0 {
		whereBuilder := NewWhereBuilder()
		whereBuilder.conditions = q.where
		whereSQL, whereArgs, err := whereBuilder.Build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = whereArgs
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// Exec executes the DELETE query and returns the number of deleted rows.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	if len(q.returning) > 0 {
		rows, err := q.ExecReturning(ctx)
		return int64(len(rows)), err
	}
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	return q.db.exec.Exec(ctx, sql, args...)
}

// ExecReturning executes the DELETE and returns the deleted rows.
func (q *DeleteQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanRows[T](rows, q.table)
}
