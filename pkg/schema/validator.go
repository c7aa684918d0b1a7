package schema

import (
	"fmt"
	"reflect"
	"slices"
	"unicode/utf8"

	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

// Validate checks an entity against the column constraints of its table:
// required columns, varchar length bounds and enum membership.
//
// Columns whose value the database or the session supplies (identity keys,
// generated keys, columns with a DEFAULT, auto timestamps) are not required.
func Validate(table *TableMetadata, model any) error {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("%w: nil %s", runtime.ErrInvalidModel, table.Name)
		}
		v = v.Elem()
	}
	if v.Type() != table.GoType {
		return fmt.Errorf("%w: expected %s, got %s", runtime.ErrInvalidModel, table.GoType, v.Type())
	}

	for i := range table.Columns {
		col := &table.Columns[i]
		field := v.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}
		if err := validateColumn(table.Name, col, field); err != nil {
			return err
		}
	}
	return nil
}

func validateColumn(tableName string, col *ColumnMetadata, field reflect.Value) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			if !col.Nullable && !suppliedElsewhere(col) {
				return runtime.NewValidationFailure(runtime.NotNullViolation, tableName, col.Name, "value is required")
			}
			return nil
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return nil
	}

	s := field.String()
	if s == "" {
		if !col.Nullable && !suppliedElsewhere(col) {
			return runtime.NewValidationFailure(runtime.NotNullViolation, tableName, col.Name, "value is required")
		}
		return nil
	}
	if col.Length > 0 {
		if n := utf8.RuneCountInString(s); n > col.Length {
			return runtime.NewValidationFailure(runtime.LengthViolation, tableName, col.Name,
				fmt.Sprintf("length %d exceeds %d", n, col.Length))
		}
	}
	if col.EnumValues != nil && !slices.Contains(col.EnumValues, s) {
		return runtime.NewValidationFailure(runtime.EnumViolation, tableName, col.Name,
			fmt.Sprintf("%q is not one of %v", s, col.EnumValues))
	}
	return nil
}

func suppliedElsewhere(col *ColumnMetadata) bool {
	return col.Default != nil || col.Identity != nil || col.Generator != "" ||
		col.AutoCreateTime || col.AutoUpdateTime
}
