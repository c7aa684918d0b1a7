package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func derivedSQL[T any](t *testing.T, method string, args ...any) (string, []any) {
	t.Helper()
	d, err := Derive[T](method)
	require.NoError(t, err)
	q, err := d.Query(New(nil), args...)
	require.NoError(t, err)
	sql, bound, err := q.ToSQL()
	require.NoError(t, err)
	return sql, bound
}

func TestDerive_Student(t *testing.T) {
	tests := []struct {
		method   string
		args     []any
		wantSQL  string
		wantArgs []any
	}{
		{
			method:   "FindByName",
			args:     []any{"쿠로미"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.stu_name = $1",
			wantArgs: []any{"쿠로미"},
		},
		{
			method:   "FindByCityAndMajor",
			args:     []any{"청양시", "경제학"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.city = $1 AND tbl_student.major = $2",
			wantArgs: []any{"청양시", "경제학"},
		},
		{
			method:   "FindByMajorContaining",
			args:     []any{"Bio"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.major LIKE $1",
			wantArgs: []any{"%Bio%"},
		},
		{
			method:   "FindByMajorStartingWith",
			args:     []any{"Bio"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.major LIKE $1",
			wantArgs: []any{"Bio%"},
		},
		{
			method:   "FindByMajorEndingWith",
			args:     []any{"logy"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.major LIKE $1",
			wantArgs: []any{"%logy"},
		},
		{
			method:   "FindByMajorNotContaining",
			args:     []any{"공학"},
			wantSQL:  "SELECT * FROM tbl_student WHERE NOT (tbl_student.major LIKE $1)",
			wantArgs: []any{"%공학%"},
		},
		{
			method:   "FindByMajorContainingIgnoreCase",
			args:     []any{"bio"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.major ILIKE $1",
			wantArgs: []any{"%bio%"},
		},
		{
			method:   "FindByNameOrCity",
			args:     []any{"Bob", "Seoul"},
			wantSQL:  "SELECT * FROM tbl_student WHERE (tbl_student.stu_name = $1) OR (tbl_student.city = $2)",
			wantArgs: []any{"Bob", "Seoul"},
		},
		{
			method:   "FindByCityAndMajorAllIgnoreCase",
			args:     []any{"seoul", "biology"},
			wantSQL:  "SELECT * FROM tbl_student WHERE LOWER(tbl_student.city) = LOWER($1) AND LOWER(tbl_student.major) = LOWER($2)",
			wantArgs: []any{"seoul", "biology"},
		},
		{
			method:   "FindByCityOrderByNameDesc",
			args:     []any{"Seoul"},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.city = $1 ORDER BY tbl_student.stu_name DESC, stu_id ASC",
			wantArgs: []any{"Seoul"},
		},
		{
			method:   "FindByCityIn",
			args:     []any{[]string{"Seoul", "Busan"}},
			wantSQL:  "SELECT * FROM tbl_student WHERE tbl_student.city IN ($1, $2)",
			wantArgs: []any{"Seoul", "Busan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			sql, args := derivedSQL[student](t, tt.method, tt.args...)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestDerive_Idol(t *testing.T) {
	t.Run("top with order", func(t *testing.T) {
		d, err := Derive[idol]("FindTop2ByOrderByAgeDesc")
		require.NoError(t, err)
		assert.Equal(t, SubjectFind, d.Subject())
		assert.Equal(t, 2, d.limit)
		assert.Zero(t, d.Arity())
		assert.Equal(t, []OrderBy{{Column: "tbl_idol.age", Direction: Desc}}, d.Order())

		sql, _ := derivedSQL[idol](t, "FindTop2ByOrderByAgeDesc")
		assert.Equal(t, "SELECT * FROM tbl_idol ORDER BY tbl_idol.age DESC, idol_id ASC", sql)
	})

	t.Run("first", func(t *testing.T) {
		d, err := Derive[idol]("FindFirstByIdolName")
		require.NoError(t, err)
		assert.Equal(t, 1, d.limit)
	})

	t.Run("nested property joins the association", func(t *testing.T) {
		for _, method := range []string{"FindAllByGroup_GroupName", "FindByGroupGroupName"} {
			sql, args := derivedSQL[idol](t, method, "아이브")
			assert.Equal(t, "SELECT tbl_idol.* FROM tbl_idol INNER JOIN tbl_group ON tbl_group.group_id = tbl_idol.group_id "+
				"WHERE tbl_group.group_name = $1", sql, method)
			assert.Equal(t, []any{"아이브"}, args)
		}
	})

	t.Run("multiple order keys", func(t *testing.T) {
		sql, args := derivedSQL[idol](t, "FindByAgeGreaterThanOrderByAgeDescIdolNameAsc", 20)
		assert.Equal(t, "SELECT * FROM tbl_idol WHERE tbl_idol.age > $1 ORDER BY tbl_idol.age DESC, tbl_idol.idol_name ASC, idol_id ASC", sql)
		assert.Equal(t, []any{20}, args)
	})

	t.Run("between and null checks", func(t *testing.T) {
		sql, args := derivedSQL[idol](t, "FindByAgeBetweenAndGroupIDIsNull", 20, 24)
		assert.Equal(t, "SELECT * FROM tbl_idol WHERE tbl_idol.age BETWEEN $1 AND $2 AND tbl_idol.group_id IS NULL", sql)
		assert.Equal(t, []any{20, 24}, args)
	})

	t.Run("subjects", func(t *testing.T) {
		for method, want := range map[string]Subject{
			"CountByAge":          SubjectCount,
			"ExistsByIdolName":    SubjectExists,
			"DeleteByAgeLessThan": SubjectDelete,
			"ReadByAge":           SubjectFind,
		} {
			d, err := Derive[idol](method)
			require.NoError(t, err, method)
			assert.Equal(t, want, d.Subject(), method)
			assert.Equal(t, 1, d.Arity(), method)
		}
	})
}

func TestDerive_Errors(t *testing.T) {
	for _, method := range []string{
		"FetchByName",
		"FindName",
		"FindByNickname",
		"FindByNameAnd",
		"FindByCityOrderByHeightDesc",
	} {
		_, err := Derive[student](method)
		assert.Error(t, err, method)
	}
	assert.Panics(t, func() { MustDerive[student]("FindByNickname") })

	d := MustDerive[student]("FindByMajorContaining")
	_, err := d.Conditions()
	assert.ErrorContains(t, err, "expects 1 arguments, got 0")
	_, err = d.Conditions(42)
	assert.ErrorContains(t, err, "needs a string argument")

	_, err = MustDerive[idol]("DeleteByGroup_GroupName").Delete(context.Background(), New(nil), "아이브")
	assert.ErrorContains(t, err, "not supported")
}

func TestSplitKeyword(t *testing.T) {
	assert.Equal(t, []string{"City", "Major"}, splitKeyword("CityAndMajor", "And"))
	assert.Equal(t, []string{"Organization"}, splitKeyword("Organization", "Or"))
	assert.Equal(t, []string{"Android"}, splitKeyword("Android", "And"))
	assert.Equal(t, []string{"Name", "City", "Major"}, splitKeyword("NameOrCityOrMajor", "Or"))
}
