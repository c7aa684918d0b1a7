// Package builder provides a type-safe query builder for PostgreSQL.
package builder

import (
	"context"

	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Query represents a generic database query.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// Executable represents a query that can be executed.
type Executable interface {
	Query
	// Exec executes the query and returns the number of affected rows.
	Exec(ctx context.Context) (int64, error)
}

// SelectQuery represents a SELECT query with type safety.
type SelectQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	columns   []string
	where     []Condition
	joins     []Join
	orderBy   []OrderBy
	limit     *int
	offset    *int
	distinct  bool
	forUpdate bool
	preloads  []string // Relationship fields to eagerly load
}

// InsertQuery represents an INSERT query.
type InsertQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	values    []T
	returning []string
}

// UpdateQuery represents an UPDATE query.
type UpdateQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	sets      []assignment
	where     []Condition
	returning []string
}

type assignment struct {
	column string
	value  any
}

// DeleteQuery represents a DELETE query.
type DeleteQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	where     []Condition
	returning []string
}

// Condition represents a WHERE condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Not      bool
	Group    []Condition // For grouped conditions
}

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Table     string
	Condition string
	Args      []any
}

// OrderBy represents one ORDER BY key.
type OrderBy struct {
	Column    string
	Direction OrderDirection
	NullsPos  NullsPosition
}

// Operator represents a comparison operator.
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "!="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT IN"
	OpLike               Operator = "LIKE"
	OpILike              Operator = "ILIKE"
	OpNotLike            Operator = "NOT LIKE"
	OpIsNull             Operator = "IS NULL"
	OpIsNotNull          Operator = "IS NOT NULL"
	OpBetween            Operator = "BETWEEN"
	// OpEqualIgnoreCase compares lower(column) = lower(value).
	OpEqualIgnoreCase Operator = "=~"
)

// LogicOperator represents a logical operator (AND/OR).
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// JoinType represents a type of JOIN.
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// NullsPosition represents NULL positioning in ORDER BY.
type NullsPosition string

const (
	NullsFirst   NullsPosition = "NULLS FIRST"
	NullsLast    NullsPosition = "NULLS LAST"
	NullsDefault NullsPosition = ""
)
