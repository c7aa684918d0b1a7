package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_ToSQL(t *testing.T) {
	db := New(nil)

	t.Run("zero values with defaults are omitted", func(t *testing.T) {
		sql, args, err := Insert[product](db).Values(product{Name: "보쌈"}).Returning("*").ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO tbl_product (name) VALUES ($1) RETURNING *", sql)
		assert.Equal(t, []any{"보쌈"}, args)
	})

	t.Run("explicit values are sent", func(t *testing.T) {
		sql, args, err := Insert[product](db).Values(product{Name: "아디다스 모자", Price: 30000, Category: "FASHION"}).ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO tbl_product (name, price, category) VALUES ($1, $2, $3)", sql)
		assert.Equal(t, []any{"아디다스 모자", 30000, "FASHION"}, args)
	})

	t.Run("multiple rows", func(t *testing.T) {
		sql, args, err := Insert[idol](db).Values(
			idol{IdolName: "가을", Age: 22},
			idol{IdolName: "리즈", Age: 20},
		).ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO tbl_idol (idol_name, age, group_id) VALUES ($1, $2, $3), ($4, $5, $6)", sql)
		assert.Len(t, args, 6)
	})

	t.Run("generated always identity is never sent", func(t *testing.T) {
		sql, _, err := Insert[group](db).Values(group{ID: 7, GroupName: "아이브"}).ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO tbl_group (group_name) VALUES ($1)", sql)
	})

	t.Run("rows must agree on columns", func(t *testing.T) {
		_, _, err := Insert[product](db).Values(product{Name: "a"}, product{Name: "b", Price: 5}).ToSQL()
		assert.ErrorContains(t, err, "row 1 supplies columns")
	})

	t.Run("no values", func(t *testing.T) {
		_, _, err := Insert[product](db).ToSQL()
		assert.Error(t, err)
	})
}

func TestUpdate_ToSQL(t *testing.T) {
	db := New(nil)

	sql, args, err := Update[idol](db).
		Set("age", 27).
		Set("idol_name", "사쿠라").
		Set("age", 28).
		Where(Eq("idol_id", int64(2))).
		Returning("idol_id").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE tbl_idol SET age = $1, idol_name = $2 WHERE idol_id = $3 RETURNING idol_id", sql)
	assert.Equal(t, []any{28, "사쿠라", int64(2)}, args)

	sql, args, err = Update[student](db).SetColumns([]string{"city", "major"}, []any{"Seoul", "Biology"}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE tbl_student SET city = $1, major = $2", sql)
	assert.Equal(t, []any{"Seoul", "Biology"}, args)

	_, _, err = Update[idol](db).ToSQL()
	assert.ErrorContains(t, err, "no columns to update")

	_, _, err = Update[idol](db).SetColumns([]string{"age"}, nil).ToSQL()
	assert.Error(t, err)
}

func TestDelete_ToSQL(t *testing.T) {
	db := New(nil)

	sql, args, err := Delete[student](db).
		Where(Eq("stu_name", "쿠로미"), Eq("city", "청양시")).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM tbl_student WHERE stu_name = $1 AND city = $2", sql)
	assert.Equal(t, []any{"쿠로미", "청양시"}, args)

	sql, args, err = Delete[idol](db).Returning("idol_id").ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM tbl_idol RETURNING idol_id", sql)
	assert.Nil(t, args)
}

func TestStructToValues(t *testing.T) {
	table, err := tableFor[student]()
	require.NoError(t, err)

	cols, vals, err := structToValues(&student{ID: "id-1", Name: "Alice", City: "Seoul", Major: "Biology"}, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"stu_id", "stu_name", "city", "major"}, cols)
	assert.Equal(t, []any{"id-1", "Alice", "Seoul", "Biology"}, vals)

	_, _, err = structToValues(42, table)
	assert.Error(t, err)
}
