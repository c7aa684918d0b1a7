package builder

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderBy
		wantErr bool
	}{
		{in: "age,desc", want: DescBy("age")},
		{in: "idol_name", want: AscBy("idol_name")},
		{in: " Age , ASC ", want: AscBy("Age")},
		{in: "age,sideways", wantErr: true},
		{in: ",desc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSort(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageable(t *testing.T) {
	p := PageRequest(0, 2, DescBy("Age"))
	require.NoError(t, p.Validate())
	assert.Zero(t, p.Offset())

	next := p.Next().Next()
	assert.Equal(t, 2, next.Page)
	assert.Equal(t, 4, next.Offset())
	assert.Equal(t, p.Sort, next.Sort)
	assert.Equal(t, 1, next.Previous().Page)
	assert.Zero(t, p.Previous().Page)

	assert.Error(t, PageRequest(-1, 2).Validate())
	assert.Error(t, PageRequest(0, 0).Validate())
	assert.Error(t, PageRequest(1<<62, 4).Validate())
	assert.Error(t, PageRequest(math.MaxInt/4+1, 4).Validate())
	assert.NoError(t, PageRequest(math.MaxInt/4, 4).Validate())
}

func TestPage(t *testing.T) {
	ages := []int{26, 24}
	page := NewPage(ages, PageRequest(0, 2), 5)

	assert.Equal(t, 3, page.TotalPages())
	assert.Equal(t, 2, page.NumberOfElements())
	assert.True(t, page.HasContent())
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrevious())
	assert.True(t, page.IsFirst())
	assert.False(t, page.IsLast())

	last := NewPage([]int{20}, PageRequest(2, 2), 5)
	assert.True(t, last.IsLast())
	assert.True(t, last.HasPrevious())

	empty := NewPage([]int{}, PageRequest(0, 10), 0)
	assert.Zero(t, empty.TotalPages())
	assert.False(t, empty.HasNext())
	assert.False(t, empty.HasContent())

	mapped := MapPage(page, strconv.Itoa)
	assert.Equal(t, []string{"26", "24"}, mapped.Content)
	assert.Equal(t, page.TotalElements, mapped.TotalElements)
	assert.Equal(t, page.Number, mapped.Number)
}

func TestResolveOrder(t *testing.T) {
	table, err := tableFor[idol]()
	require.NoError(t, err)

	got, err := resolveOrder(table, DescBy("Age"))
	require.NoError(t, err)
	assert.Equal(t, DescBy("age"), got)

	got, err = resolveOrder(table, AscBy("idol_name"))
	require.NoError(t, err)
	assert.Equal(t, AscBy("idol_name"), got)

	got, err = resolveOrder(table, AscBy("tbl_group.group_name"))
	require.NoError(t, err)
	assert.Equal(t, "tbl_group.group_name", got.Column)

	_, err = resolveOrder(table, AscBy("tbl_idol.age; DROP TABLE tbl_idol"))
	assert.Error(t, err)
	_, err = resolveOrder(table, AscBy("height"))
	assert.Error(t, err)
}
