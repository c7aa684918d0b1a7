package builder

import (
	"fmt"
	"reflect"

	"github.com/marshallshelly/pebble-study/pkg/registry"
)

// Col returns the database column name for a given Go field name.
//
//	Where(builder.Eq(builder.Col[Student]("Major"), "Biology"))
//
// Unknown types or fields return the name unchanged.
func Col[T any](goFieldName string) string {
	var zero T
	table, err := registry.GetOrRegister(zero)
	if err != nil {
		return goFieldName
	}
	column := table.GetColumnByField(goFieldName)
	if column == nil {
		return goFieldName
	}
	return column.Name
}

// Path is a typed, table-qualified reference to a mapped column.
type Path struct {
	Table  string
	Column string
}

// Field returns the Path for a Go field of T. It panics when T is not a
// valid model or has no such field, so typos fail at wiring time.
//
//	idol := builder.Field[Idol]
//	builder.Select[Idol](db).Where(idol("Age").Gt(20)).OrderBy(idol("Age").Desc())
func Field[T any](goFieldName string) Path {
	var zero T
	table, err := registry.GetOrRegister(zero)
	if err != nil {
		panic(fmt.Sprintf("builder: %v", err))
	}
	column := table.GetColumnByField(goFieldName)
	if column == nil {
		panic(fmt.Sprintf("builder: %s has no mapped field %s", reflect.TypeOf(zero), goFieldName))
	}
	return Path{Table: table.Name, Column: column.Name}
}

// String returns the qualified column name.
func (p Path) String() string {
	return p.Table + "." + p.Column
}

// Eq matches values equal to v.
func (p Path) Eq(v any) Condition { return Eq(p.String(), v) }

// EqIgnoreCase matches values equal to v ignoring case.
func (p Path) EqIgnoreCase(v any) Condition { return EqIgnoreCase(p.String(), v) }

// NotEq matches values different from v.
func (p Path) NotEq(v any) Condition { return NotEq(p.String(), v) }

// Gt matches values greater than v.
func (p Path) Gt(v any) Condition { return Gt(p.String(), v) }

// Gte matches values greater than or equal to v.
func (p Path) Gte(v any) Condition { return Gte(p.String(), v) }

// Lt matches values less than v.
func (p Path) Lt(v any) Condition { return Lt(p.String(), v) }

// Lte matches values less than or equal to v.
func (p Path) Lte(v any) Condition { return Lte(p.String(), v) }

// Between matches values in [min, max].
func (p Path) Between(min, max any) Condition { return Between(p.String(), min, max) }

// In matches any of values.
func (p Path) In(values ...any) Condition { return In(p.String(), values...) }

// IsNull matches NULL.
func (p Path) IsNull() Condition { return IsNull(p.String()) }

// IsNotNull matches non-NULL values.
func (p Path) IsNotNull() Condition { return IsNotNull(p.String()) }

// Contains matches values containing s.
func (p Path) Contains(s string) Condition { return Contains(p.String(), s) }

// StartsWith matches values starting with s.
func (p Path) StartsWith(s string) Condition { return StartsWith(p.String(), s) }

// EndsWith matches values ending with s.
func (p Path) EndsWith(s string) Condition { return EndsWith(p.String(), s) }

// Asc orders by the column ascending.
func (p Path) Asc() OrderBy { return OrderBy{Column: p.String(), Direction: Asc} }

// Desc orders by the column descending.
func (p Path) Desc() OrderBy { return OrderBy{Column: p.String(), Direction: Desc} }
