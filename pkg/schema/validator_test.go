package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

func TestValidate(t *testing.T) {
	table, err := NewParser().Parse(reflect.TypeOf(book{}))
	require.NoError(t, err)

	tests := []struct {
		name   string
		book   book
		kind   runtime.ConstraintKind
		column string
	}{
		{name: "valid with defaults left to the database", book: book{Title: "Poems"}},
		{name: "valid enum value", book: book{Title: "Poems", Genre: "POEM"}},
		{name: "length counts runes", book: book{Title: "가나다라마"}},
		{name: "missing required title", book: book{}, kind: runtime.NotNullViolation, column: "title"},
		{name: "title too long", book: book{Title: "Sonnets"}, kind: runtime.LengthViolation, column: "title"},
		{name: "runes over the limit", book: book{Title: "가나다라마바"}, kind: runtime.LengthViolation, column: "title"},
		{name: "unknown enum value", book: book{Title: "Poems", Genre: "ESSAY"}, kind: runtime.EnumViolation, column: "genre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(table, &tt.book)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			var ce *runtime.ConstraintError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, "tbl_book", ce.Table)
			assert.Equal(t, tt.column, ce.Column)
		})
	}
}

func TestValidate_InvalidModel(t *testing.T) {
	table, err := NewParser().Parse(reflect.TypeOf(book{}))
	require.NoError(t, err)

	assert.ErrorIs(t, Validate(table, (*book)(nil)), runtime.ErrInvalidModel)
	assert.ErrorIs(t, Validate(table, &shelf{}), runtime.ErrInvalidModel)
}

func TestValidate_RequiredPointer(t *testing.T) {
	type owned struct {
		ID      int64  `po:"id,primaryKey,bigint,identity"`
		OwnerID *int64 `po:"owner_id,bigint,notNull"`
	}
	table, err := NewParser().Parse(reflect.TypeOf(owned{}))
	require.NoError(t, err)

	// A pointer column is nullable regardless of notNull.
	assert.NoError(t, Validate(table, &owned{}))
}
