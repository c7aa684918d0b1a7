package builder

import (
	"fmt"
	"reflect"
	"strings"
)

// WhereBuilder helps build WHERE clauses.
type WhereBuilder struct {
	conditions []Condition
	paramStart int
}

// NewWhereBuilder creates a new WhereBuilder.
func NewWhereBuilder() *WhereBuilder {
	return NewWhereBuilderWithStart(1)
}

// NewWhereBuilderWithStart creates a new WhereBuilder with a starting parameter number.
func NewWhereBuilderWithStart(paramStart int) *WhereBuilder {
	return &WhereBuilder{paramStart: paramStart}
}

// Add adds a condition to the WHERE clause.
func (w *WhereBuilder) Add(condition Condition) {
	w.conditions = append(w.conditions, condition)
}

// Build generates the WHERE clause SQL and arguments.
func (w *WhereBuilder) Build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}
	sql, args, err := w.buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql, args, nil
}

// buildConditions recursively builds conditions.
func (w *WhereBuilder) buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var parts []string
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		var condSQL string
		var condArgs []any
		var err error

		if len(cond.Group) > 0 {
			condSQL, condArgs, err = w.buildConditions(cond.Group, paramNum)
			condSQL = "(" + condSQL + ")"
		} else {
			condSQL, condArgs, err = w.buildCondition(cond, paramNum)
		}
		if err != nil {
			return "", nil, err
		}
		if cond.Not {
			condSQL = "NOT (" + condSQL + ")"
		}

		if i > 0 {
			logic := cond.Logic
			if logic == "" {
				logic = LogicAnd
			}
			parts = append(parts, string(logic))
		}
		parts = append(parts, condSQL)
		args = append(args, condArgs...)
		paramNum += len(condArgs)
	}

	return strings.Join(parts, " "), args, nil
}

// buildCondition builds a single condition.
func (w *WhereBuilder) buildCondition(cond Condition, paramNum int) (string, []any, error) {
	column := cond.Column
	if column == "" {
		return "", nil, fmt.Errorf("condition without column")
	}

	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpLike, OpILike, OpNotLike:
		return fmt.Sprintf("%s %s $%d", column, cond.Operator, paramNum), []any{cond.Value}, nil

	case OpEqualIgnoreCase:
		return fmt.Sprintf("LOWER(%s) = LOWER($%d)", column, paramNum), []any{cond.Value}, nil

	case OpIn, OpNotIn:
		values, err := toSlice(cond.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s operator: %w", cond.Operator, err)
		}
		if len(values) == 0 {
			// IN () is not valid SQL.
			if cond.Operator == OpIn {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(placeholders, ", ")), values, nil

	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", column), nil, nil

	case OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", column), nil, nil

	case OpBetween:
		values, err := toSlice(cond.Value)
		if err != nil || len(values) != 2 {
			return "", nil, fmt.Errorf("BETWEEN operator requires [min, max] array")
		}
		return fmt.Sprintf("%s BETWEEN $%d AND $%d", column, paramNum, paramNum+1), values, nil

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// toSlice flattens any slice or array value into []any.
func toSlice(value any) ([]any, error) {
	if values, ok := value.([]any); ok {
		return values, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a slice, got %T", value)
	}
	values := make([]any, v.Len())
	for i := range values {
		values[i] = v.Index(i).Interface()
	}
	return values, nil
}

// EscapeLike escapes LIKE wildcards so the value matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Helper functions for building conditions

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqual, Value: value, Logic: LogicAnd}
}

// EqIgnoreCase creates a case-insensitive equality condition.
func EqIgnoreCase(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqualIgnoreCase, Value: value, Logic: LogicAnd}
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpNotEqual, Value: value, Logic: LogicAnd}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThan, Value: value, Logic: LogicAnd}
}

// Gte creates a greater-than-or-equal condition.
func Gte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThanOrEqual, Value: value, Logic: LogicAnd}
}

// Lt creates a less-than condition.
func Lt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThan, Value: value, Logic: LogicAnd}
}

// Lte creates a less-than-or-equal condition.
func Lte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThanOrEqual, Value: value, Logic: LogicAnd}
}

// In creates an IN condition.
func In(column string, values ...any) Condition {
	return Condition{Column: column, Operator: OpIn, Value: values, Logic: LogicAnd}
}

// NotIn creates a NOT IN condition.
func NotIn(column string, values ...any) Condition {
	return Condition{Column: column, Operator: OpNotIn, Value: values, Logic: LogicAnd}
}

// Like creates a LIKE condition. The pattern is used verbatim.
func Like(column string, pattern string) Condition {
	return Condition{Column: column, Operator: OpLike, Value: pattern, Logic: LogicAnd}
}

// ILike creates an ILIKE condition (case-insensitive).
func ILike(column string, pattern string) Condition {
	return Condition{Column: column, Operator: OpILike, Value: pattern, Logic: LogicAnd}
}

// Contains matches values containing s; s is matched literally.
func Contains(column, s string) Condition {
	return Like(column, "%"+EscapeLike(s)+"%")
}

// StartsWith matches values with the prefix s; s is matched literally.
func StartsWith(column, s string) Condition {
	return Like(column, EscapeLike(s)+"%")
}

// EndsWith matches values with the suffix s; s is matched literally.
func EndsWith(column, s string) Condition {
	return Like(column, "%"+EscapeLike(s))
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNull, Logic: LogicAnd}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNotNull, Logic: LogicAnd}
}

// Between creates a BETWEEN condition.
func Between(column string, min, max any) Condition {
	return Condition{Column: column, Operator: OpBetween, Value: []any{min, max}, Logic: LogicAnd}
}

// Or sets the logic operator to OR for the condition.
func Or(cond Condition) Condition {
	cond.Logic = LogicOr
	return cond
}

// Not negates a condition.
func Not(cond Condition) Condition {
	cond.Not = true
	return cond
}

// Group creates a grouped condition.
func Group(conditions ...Condition) Condition {
	return Condition{Group: conditions, Logic: LogicAnd}
}

// AnyOf groups conditions joined by OR.
func AnyOf(conditions ...Condition) Condition {
	group := make([]Condition, len(conditions))
	for i, c := range conditions {
		c.Logic = LogicOr
		group[i] = c
	}
	return Group(group...)
}
