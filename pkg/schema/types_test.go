package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type amount int64

func TestTypeMapper_GoTypeToPostgreSQL(t *testing.T) {
	tm := NewTypeMapper()

	tests := []struct {
		goType reflect.Type
		want   string
	}{
		{reflect.TypeOf(true), "boolean"},
		{reflect.TypeOf(int16(0)), "smallint"},
		{reflect.TypeOf(0), "integer"},
		{reflect.TypeOf(int32(0)), "integer"},
		{reflect.TypeOf(int64(0)), "bigint"},
		{reflect.TypeOf(amount(0)), "bigint"},
		{reflect.TypeOf(float32(0)), "real"},
		{reflect.TypeOf(0.0), "double precision"},
		{reflect.TypeOf(""), "text"},
		{reflect.TypeOf([]byte(nil)), "bytea"},
		{reflect.TypeOf(time.Time{}), "timestamptz"},
		{reflect.TypeOf(new(int64)), "bigint"},
		{reflect.TypeOf(map[string]any{}), ""},
		{reflect.TypeOf([]string{}), ""},
	}
	for _, tt := range tests {
		t.Run(tt.goType.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tm.GoTypeToPostgreSQL(tt.goType))
		})
	}
}

func TestTypeMapper_RegisterType(t *testing.T) {
	tm := NewTypeMapper()
	tm.RegisterType(reflect.TypeOf(amount(0)), "numeric(12,2)")

	assert.Equal(t, "numeric(12,2)", tm.GoTypeToPostgreSQL(reflect.TypeOf(amount(0))))
	assert.Equal(t, "bigint", tm.GoTypeToPostgreSQL(reflect.TypeOf(int64(0))))
}

func TestIsNullable(t *testing.T) {
	assert.True(t, IsNullable(reflect.TypeOf(new(string))))
	assert.False(t, IsNullable(reflect.TypeOf("")))
}
