package builder

import (
	"context"
	"fmt"
	"strings"
)

// Set sets a column value for the UPDATE. Columns are written in the order
// they are set; setting a column twice keeps the last value.
func (q *UpdateQuery[T]) Set(column string, value any) *UpdateQuery[T] {
	for i := range q.sets {
		if q.sets[i].column == column {
			q.sets[i].value = value
			return q
		}
	}
	q.sets = append(q.sets, assignment{column: column, value: value})
	return q
}

// SetColumns sets columns from parallel slices of names and values.
func (q *UpdateQuery[T]) SetColumns(columns []string, values []any) *UpdateQuery[T] {
	if len(columns) != len(values) {
		q.err = fmt.Errorf("SetColumns: %d columns but %d values", len(columns), len(values))
		return q
	}
	for i, col := range columns {
		q.Set(col, values[i])
	}
	return q
}

// Where adds WHERE conditions.
func (q *UpdateQuery[T]) Where(conditions ...Condition) *UpdateQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// Returning specifies columns to return after update.
func (q *UpdateQuery[T]) Returning(columns ...string) *UpdateQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the UPDATE SQL and arguments.
func (q *UpdateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.sets) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	var sql strings.Builder
	args := make([]any, 0, len(q.sets))

	sql.WriteString("UPDATE ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" SET ")

	setClauses := make([]string, len(q.sets))
	for i, set := range q.sets {
		setClauses[i] = fmt.Sprintf("%s = $%d", set.column, i+1)
		args = append(args, set.value)
	}
	sql.WriteString(strings.Join(setClauses, ", "))

	if len(q.where) > 0 {
		whereBuilder := NewWhereBuilderWithStart(len(args) + 1)
		whereBuilder.conditions = q.where
		whereSQL, whereArgs, err := whereBuilder.Build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// Exec executes the UPDATE query and returns the number of affected rows.
func (q *UpdateQuery[T]) Exec(ctx context.Context) (int64, error) {
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

// ExecReturning executes the UPDATE and returns the updated rows.
func (q *UpdateQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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
