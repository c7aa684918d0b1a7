package builder

import (
	"context"
	"fmt"
	"strings"
)

// Values sets the values to insert (single or multiple rows).
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the INSERT SQL and arguments. The column list comes from
// the first row; every row must supply the same columns.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("no values to insert")
	}

	columns, firstRow, err := structToValues(&q.values[0], q.table)
	if err != nil {
		return "", nil, fmt.Errorf("failed to extract values: %w", err)
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table.Name)
	if len(columns) == 0 {
		sql.WriteString(" DEFAULT VALUES")
		if len(q.values) > 1 {
			return "", nil, fmt.Errorf("multi-row insert needs at least one column")
		}
	} else {
		sql.WriteString(" (")
		sql.WriteString(strings.Join(columns, ", "))
		sql.WriteString(") VALUES ")

		valueClauses := make([]string, len(q.values))
		for i := range q.values {
			rowValues := firstRow
			if i > 0 {
				var rowColumns []string
				rowColumns, rowValues, err = structToValues(&q.values[i], q.table)
				if err != nil {
					return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
				}
				if strings.Join(rowColumns, ",") != strings.Join(columns, ",") {
					return "", nil, fmt.Errorf("row %d supplies columns %v, expected %v", i, rowColumns, columns)
				}
			}
			placeholders := make([]string, len(rowValues))
			for j := range rowValues {
				placeholders[j] = fmt.Sprintf("$%d", paramNum)
				paramNum++
				args = append(args, rowValues[j])
			}
			valueClauses[i] = "(" + strings.Join(placeholders, ", ") + ")"
		}
		sql.WriteString(strings.Join(valueClauses, ", "))
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// Exec executes the INSERT query and returns the number of inserted rows.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
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

// ExecReturning executes the INSERT and returns the inserted rows, including
// database-generated keys and defaults.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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
