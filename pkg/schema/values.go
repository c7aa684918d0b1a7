package schema

import (
	"fmt"
	"reflect"
)

// structValue dereferences model down to the struct value of the table type.
func (t *TableMetadata) structValue(model any) (reflect.Value, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %s", t.Name)
		}
		v = v.Elem()
	}
	if v.Type() != t.GoType {
		return reflect.Value{}, fmt.Errorf("expected %s, got %s", t.GoType, v.Type())
	}
	return v, nil
}

// Values returns the column values of model keyed by column name.
func (t *TableMetadata) Values(model any) (map[string]any, error) {
	v, err := t.structValue(model)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(t.Columns))
	for _, col := range t.Columns {
		values[col.Name] = v.FieldByName(col.GoField).Interface()
	}
	return values, nil
}

// Value returns the value of one column of model.
func (t *TableMetadata) Value(model any, column string) (any, error) {
	col := t.GetColumnByName(column)
	if col == nil {
		return nil, fmt.Errorf("%s has no column %s", t.Name, column)
	}
	v, err := t.structValue(model)
	if err != nil {
		return nil, err
	}
	return v.FieldByName(col.GoField).Interface(), nil
}

// SetValue assigns v to a column of model, which must be a pointer.
func (t *TableMetadata) SetValue(model any, column string, v any) error {
	col := t.GetColumnByName(column)
	if col == nil {
		return fmt.Errorf("%s has no column %s", t.Name, column)
	}
	if reflect.ValueOf(model).Kind() != reflect.Ptr {
		return fmt.Errorf("SetValue needs a pointer to %s", t.GoType)
	}
	sv, err := t.structValue(model)
	if err != nil {
		return err
	}
	field := sv.FieldByName(col.GoField)
	val := reflect.ValueOf(v)
	if !val.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if !val.Type().AssignableTo(field.Type()) {
		if !val.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("cannot assign %s to %s.%s (%s)", val.Type(), t.Name, col.GoField, field.Type())
		}
		val = val.Convert(field.Type())
	}
	field.Set(val)
	return nil
}

// PrimaryKeyValue returns the single-column primary key of model and whether
// it is still the zero value.
func (t *TableMetadata) PrimaryKeyValue(model any) (any, bool, error) {
	pk := t.PrimaryKeyColumn()
	if pk == nil {
		return nil, false, fmt.Errorf("%s has no single-column primary key", t.Name)
	}
	v, err := t.structValue(model)
	if err != nil {
		return nil, false, err
	}
	field := v.FieldByName(pk.GoField)
	return field.Interface(), field.IsZero(), nil
}
