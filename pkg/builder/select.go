package builder

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Columns specifies which columns to select.
func (q *SelectQuery[T]) Columns(cols ...string) *SelectQuery[T] {
	q.columns = cols
	return q
}

// Where adds a WHERE condition.
func (q *SelectQuery[T]) Where(conditions ...Condition) *SelectQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// And adds an AND condition (alias for Where).
func (q *SelectQuery[T]) And(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *SelectQuery[T]) Or(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// OrderBy adds ORDER BY keys.
func (q *SelectQuery[T]) OrderBy(orders ...OrderBy) *SelectQuery[T] {
	q.orderBy = append(q.orderBy, orders...)
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *SelectQuery[T]) OrderByAsc(column string) *SelectQuery[T] {
	return q.OrderBy(AscBy(column))
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *SelectQuery[T]) OrderByDesc(column string) *SelectQuery[T] {
	return q.OrderBy(DescBy(column))
}

// Sort adds the keys of s, resolving Go field names to columns.
func (q *SelectQuery[T]) Sort(s Sort) *SelectQuery[T] {
	if q.table == nil {
		return q
	}
	for _, o := range s {
		resolved, err := resolveOrder(q.table, o)
		if err != nil {
			q.err = err
			return q
		}
		q.orderBy = append(q.orderBy, resolved)
	}
	return q
}

// Limit sets the LIMIT clause.
func (q *SelectQuery[T]) Limit(limit int) *SelectQuery[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *SelectQuery[T]) Offset(offset int) *SelectQuery[T] {
	q.offset = &offset
	return q
}

// Paginate applies the sort, offset and limit of p.
func (q *SelectQuery[T]) Paginate(p Pageable) *SelectQuery[T] {
	if err := p.Validate(); err != nil {
		q.err = err
		return q
	}
	return q.Sort(p.Sort).Offset(p.Offset()).Limit(p.Size)
}

// Distinct adds DISTINCT to the query.
func (q *SelectQuery[T]) Distinct() *SelectQuery[T] {
	q.distinct = true
	return q
}

// ForUpdate adds FOR UPDATE lock.
func (q *SelectQuery[T]) ForUpdate() *SelectQuery[T] {
	q.forUpdate = true
	return q
}

// Preload specifies relationships to eagerly load.
// Pass the name of the Go struct field that contains the relationship.
// Example: query.Preload("Purchases")
func (q *SelectQuery[T]) Preload(relationships ...string) *SelectQuery[T] {
	q.preloads = append(q.preloads, relationships...)
	return q
}

// InnerJoin adds an INNER JOIN.
func (q *SelectQuery[T]) InnerJoin(table string, condition string, args ...any) *SelectQuery[T] {
	q.joins = append(q.joins, Join{Type: InnerJoin, Table: table, Condition: condition, Args: args})
	return q
}

// LeftJoin adds a LEFT JOIN.
func (q *SelectQuery[T]) LeftJoin(table string, condition string, args ...any) *SelectQuery[T] {
	q.joins = append(q.joins, Join{Type: LeftJoin, Table: table, Condition: condition, Args: args})
	return q
}

// JoinRelation inner-joins the target of a belongsTo relationship declared on
// T, e.g. JoinRelation("Group") for Idol.
func (q *SelectQuery[T]) JoinRelation(field string) *SelectQuery[T] {
	if q.table == nil {
		return q
	}
	rel := q.table.GetRelationship(field)
	if rel == nil {
		q.err = fmt.Errorf("%s has no relationship %s", q.table.Name, field)
		return q
	}
	var on string
	switch rel.Type {
	case schema.BelongsTo:
		on = fmt.Sprintf("%s.%s = %s.%s", rel.TargetTable, rel.References, q.table.Name, rel.ForeignKey)
	default:
		on = fmt.Sprintf("%s.%s = %s.%s", rel.TargetTable, rel.ForeignKey, q.table.Name, rel.References)
	}
	return q.InnerJoin(rel.TargetTable, on)
}

// fromClause writes FROM and JOIN and returns the join arguments.
func (q *SelectQuery[T]) fromClause(sql *strings.Builder) []any {
	var args []any
	sql.WriteString(" FROM ")
	sql.WriteString(q.table.Name)
	for _, join := range q.joins {
		sql.WriteString(" ")
		sql.WriteString(string(join.Type))
		sql.WriteString(" ")
		sql.WriteString(join.Table)
		sql.WriteString(" ON ")
		sql.WriteString(join.Condition)
		args = append(args, join.Args...)
	}
	return args
}

// whereClause writes the WHERE clause numbering parameters after args.
func (q *SelectQuery[T]) whereClause(sql *strings.Builder, args []any) ([]any, error) {
	if len(q.where) == 0 {
		return args, nil
	}
	whereBuilder := NewWhereBuilderWithStart(len(args) + 1)
	whereBuilder.conditions = q.where
	whereSQL, whereArgs, err := whereBuilder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	sql.WriteString(" ")
	sql.WriteString(whereSQL)
	return append(args, whereArgs...), nil
}

// orderKeys returns the ORDER BY keys with the primary key appended as the
// final tie-breaker whenever the result is sorted or windowed.
func (q *SelectQuery[T]) orderKeys() []OrderBy {
	keys := slices.Clone(q.orderBy)
	if len(keys) == 0 && q.limit == nil && q.offset == nil {
		return nil
	}
	pk := q.table.PrimaryKeyColumn()
	if pk == nil {
		return keys
	}
	qualified := q.table.Name + "." + pk.Name
	for _, k := range keys {
		if k.Column == pk.Name || k.Column == qualified {
			return keys
		}
	}
	name := pk.Name
	if len(q.joins) > 0 {
		name = qualified
	}
	return append(keys, OrderBy{Column: name, Direction: Asc})
}

// ToSQL generates the SQL query and arguments.
func (q *SelectQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if q.distinct {
		sql.WriteString("DISTINCT ")
	}
	switch {
	case len(q.columns) > 0 && !(len(q.columns) == 1 && q.columns[0] == "*"):
		sql.WriteString(strings.Join(q.columns, ", "))
	case len(q.joins) > 0:
		sql.WriteString(q.table.Name + ".*")
	default:
		sql.WriteString("*")
	}

	args := q.fromClause(&sql)
	args, err := q.whereClause(&sql, args)
	if err != nil {
		return "", nil, err
	}

	if keys := q.orderKeys(); len(keys) > 0 {
		sql.WriteString(" ORDER BY ")
		parts := make([]string, len(keys))
		for i, order := range keys {
			if order.Direction != Asc && order.Direction != Desc {
				return "", nil, fmt.Errorf("invalid sort direction %q", order.Direction)
			}
			column := order.Column
			if len(q.joins) > 0 && !strings.Contains(column, ".") {
				column = q.table.Name + "." + column
			}
			parts[i] = column + " " + string(order.Direction)
			if order.NullsPos != NullsDefault {
				parts[i] += " " + string(order.NullsPos)
			}
		}
		sql.WriteString(strings.Join(parts, ", "))
	}
	if q.limit != nil {
		sql.WriteString(fmt.Sprintf(" LIMIT %d", *q.limit))
	}
	if q.offset != nil {
		sql.WriteString(fmt.Sprintf(" OFFSET %d", *q.offset))
	}
	if q.forUpdate {
		sql.WriteString(" FOR UPDATE")
	}
	return sql.String(), args, nil
}

// CountSQL generates the COUNT query for the same FROM, JOIN and WHERE
// clauses, ignoring ORDER BY, LIMIT and OFFSET.
func (q *SelectQuery[T]) CountSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}

	var sql strings.Builder
	if q.distinct {
		sql.WriteString("SELECT COUNT(DISTINCT ")
		sql.WriteString(q.table.Name)
		sql.WriteString(".*)")
	} else {
		sql.WriteString("SELECT COUNT(*)")
	}
	args := q.fromClause(&sql)
	args, err := q.whereClause(&sql, args)
	if err != nil {
		return "", nil, err
	}
	return sql.String(), args, nil
}

// All executes the query and returns all results.
func (q *SelectQuery[T]) All(ctx context.Context) ([]T, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := q.db.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, q.table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(q.preloads) > 0 && len(results) > 0 {
		if err := q.loadRelationships(ctx, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// First executes the query and returns the first result, or
// runtime.ErrNotFound.
func (q *SelectQuery[T]) First(ctx context.Context) (*T, error) {
	q.Limit(1)
	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, runtime.ErrNotFound
	}
	return &results[0], nil
}

// One returns the single matching row, nil when there is none, and
// runtime.ErrNonUniqueResult when there are several.
func (q *SelectQuery[T]) One(ctx context.Context) (*T, error) {
	q.Limit(2)
	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return &results[0], nil
	default:
		return nil, runtime.ErrNonUniqueResult
	}
}

// Count executes a COUNT query over the same filter.
func (q *SelectQuery[T]) Count(ctx context.Context) (int64, error) {
	sql, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.db.exec.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rows match the query.
func (q *SelectQuery[T]) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Page counts the rows matching the filter, then fetches the requested page.
func (q *SelectQuery[T]) Page(ctx context.Context, p Pageable) (*Page[T], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", q.table.Name, err)
	}
	content := make([]T, 0)
	if int64(p.Offset()) < total {
		content, err = q.Paginate(p).All(ctx)
		if err != nil {
			return nil, err
		}
	}
	return NewPage(content, p, total), nil
}
