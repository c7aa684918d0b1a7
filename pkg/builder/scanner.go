package builder

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// scanIntoStruct scans the current row into a struct, matching result
// columns to mapped fields by name. Unmapped result columns are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.TableMetadata) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("dest must be a pointer to struct")
	}
	destValue = destValue.Elem()
	if destValue.Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}

	fieldDescriptions := rows.FieldDescriptions()
	scanTargets := make([]any, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		col := table.GetColumnByName(fd.Name)
		if col == nil {
			var discard any
			scanTargets[i] = &discard
			continue
		}
		field := destValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			var discard any
			scanTargets[i] = &discard
			continue
		}
		scanTargets[i] = field.Addr().Interface()
	}

	if err := rows.Scan(scanTargets...); err != nil {
		return fmt.Errorf("failed to scan %s row: %w", table.Name, err)
	}
	return nil
}

// scanRows drains rows into a slice of T and closes them.
func scanRows[T any](rows pgx.Rows, table *schema.TableMetadata) ([]T, error) {
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// structToValues converts a struct to column names and values for INSERT.
// It omits columns the database fills in:
// 1. GENERATED ALWAYS identity columns, and any identity column left zero
// 2. columns with a DEFAULT whose Go value is zero
func structToValues(model any, table *schema.TableMetadata) ([]string, []any, error) {
	modelValue := reflect.ValueOf(model)
	for modelValue.Kind() == reflect.Ptr {
		modelValue = modelValue.Elem()
	}
	if modelValue.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct")
	}

	var columns []string
	var values []any
	for _, col := range table.Columns {
		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}
		if col.Identity != nil && (col.Identity.Generation == schema.IdentityAlways || field.IsZero()) {
			continue
		}
		if col.Default != nil && field.IsZero() {
			continue
		}
		columns = append(columns, col.Name)
		values = append(values, field.Interface())
	}
	return columns, values, nil
}
