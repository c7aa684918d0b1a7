package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuilder(t *testing.T) {
	tests := []struct {
		name     string
		conds    []Condition
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "comparisons",
			conds:    []Condition{Eq("a", 1), NotEq("b", 2), Lt("c", 3), Lte("d", 4), Gt("e", 5), Gte("f", 6)},
			wantSQL:  "WHERE a = $1 AND b != $2 AND c < $3 AND d <= $4 AND e > $5 AND f >= $6",
			wantArgs: []any{1, 2, 3, 4, 5, 6},
		},
		{
			name:     "in",
			conds:    []Condition{In("age", 20, 22)},
			wantSQL:  "WHERE age IN ($1, $2)",
			wantArgs: []any{20, 22},
		},
		{
			name:    "empty in matches nothing",
			conds:   []Condition{In("age"), NotIn("age")},
			wantSQL: "WHERE 1 = 0 AND 1 = 1",
		},
		{
			name:     "between",
			conds:    []Condition{Between("age", 20, 24)},
			wantSQL:  "WHERE age BETWEEN $1 AND $2",
			wantArgs: []any{20, 24},
		},
		{
			name:     "ignore case",
			conds:    []Condition{EqIgnoreCase("city", "seoul")},
			wantSQL:  "WHERE LOWER(city) = LOWER($1)",
			wantArgs: []any{"seoul"},
		},
		{
			name:     "like helpers escape wildcards",
			conds:    []Condition{Contains("major", "Bio"), StartsWith("name", "50%"), EndsWith("name", "_x")},
			wantSQL:  "WHERE major LIKE $1 AND name LIKE $2 AND name LIKE $3",
			wantArgs: []any{"%Bio%", `50\%%`, `%\_x`},
		},
		{
			name:     "ilike and not",
			conds:    []Condition{ILike("name", "a%"), Not(IsNotNull("city"))},
			wantSQL:  "WHERE name ILIKE $1 AND NOT (city IS NOT NULL)",
			wantArgs: []any{"a%"},
		},
		{
			name: "groups number parameters in order",
			conds: []Condition{
				Eq("city", "Seoul"),
				AnyOf(Eq("major", "Biology"), Eq("major", "Chemistry")),
				Or(Eq("stu_name", "Bob")),
			},
			wantSQL:  "WHERE city = $1 AND (major = $2 OR major = $3) OR stu_name = $4",
			wantArgs: []any{"Seoul", "Biology", "Chemistry", "Bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWhereBuilder()
			for _, c := range tt.conds {
				w.Add(c)
			}
			sql, args, err := w.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestWhereBuilder_Start(t *testing.T) {
	w := NewWhereBuilderWithStart(3)
	w.Add(In("id", []int{7, 8}))
	sql, args, err := w.Build()
	require.NoError(t, err)
	assert.Equal(t, "WHERE id IN ($3)", sql, "a single slice argument is one value")
	assert.Len(t, args, 1)

	w = NewWhereBuilderWithStart(3)
	w.Add(Condition{Column: "id", Operator: OpIn, Value: []int{7, 8}})
	sql, args, err = w.Build()
	require.NoError(t, err)
	assert.Equal(t, "WHERE id IN ($3, $4)", sql)
	assert.Equal(t, []any{7, 8}, args)

	sql, args, err = NewWhereBuilder().Build()
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestWhereBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
	}{
		{"no column", Condition{Operator: OpEqual, Value: 1}},
		{"unknown operator", Condition{Column: "a", Operator: "~~"}},
		{"between scalar", Condition{Column: "a", Operator: OpBetween, Value: 1}},
		{"in scalar", Condition{Column: "a", Operator: OpIn, Value: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWhereBuilder()
			w.Add(tt.cond)
			_, _, err := w.Build()
			assert.Error(t, err)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, EscapeLike(`50%_off\`))
	assert.Equal(t, "Biology", EscapeLike("Biology"))
}
