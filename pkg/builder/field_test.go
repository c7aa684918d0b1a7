package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCol(t *testing.T) {
	assert.Equal(t, "age", Col[idol]("Age"))
	assert.Equal(t, "stu_name", Col[student]("Name"))
	assert.Equal(t, "Height", Col[idol]("Height"))
	assert.Equal(t, "Age", Col[int]("Age"))
}

func TestField(t *testing.T) {
	age := Field[idol]("Age")
	assert.Equal(t, "tbl_idol.age", age.String())

	sql, args, err := Select[idol](New(nil)).
		Where(age.Between(20, 24), Field[idol]("IdolName").StartsWith("장")).
		OrderBy(age.Desc(), Field[idol]("IdolName").Asc()).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM tbl_idol WHERE tbl_idol.age BETWEEN $1 AND $2 AND tbl_idol.idol_name LIKE $3 "+
		"ORDER BY tbl_idol.age DESC, tbl_idol.idol_name ASC, idol_id ASC", sql)
	assert.Equal(t, []any{20, 24, "장%"}, args)

	assert.Panics(t, func() { Field[idol]("Height") })
	assert.Panics(t, func() { Field[int]("Age") })
}
