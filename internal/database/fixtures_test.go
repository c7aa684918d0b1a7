package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-study/internal/models"
)

func TestDefaultFixtures(t *testing.T) {
	f, err := DefaultFixtures()
	require.NoError(t, err)

	assert.Len(t, f.Products, 4)
	assert.Len(t, f.Students, 5)
	assert.Len(t, f.Shop.Users, 2)
	assert.Len(t, f.Shop.Goods, 4)
	require.Len(t, f.Groups, 2)

	var idols int
	oldest := ""
	maxAge := 0
	for _, g := range f.Groups {
		idols += len(g.Idols)
		for _, i := range g.Idols {
			if i.Age > maxAge {
				maxAge, oldest = i.Age, i.Name
			}
		}
	}
	assert.Equal(t, 5, idols)
	assert.Equal(t, "사쿠라", oldest)
	assert.Equal(t, 26, maxAge)

	// Unset price and category fall back to the product defaults.
	bossam := models.NewProduct(f.Products[2].Name, f.Products[2].Price, models.Category(f.Products[2].Category))
	assert.Equal(t, 25000, bossam.Price)
	assert.Equal(t, models.CategoryFood, bossam.Category)
	dalgona := models.NewProduct(f.Products[3].Name, f.Products[3].Price, models.Category(f.Products[3].Category))
	assert.Equal(t, models.DefaultPrice, dalgona.Price)
}

func TestParseFixtures_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad category",
			yaml: "products:\n  - name: 장난감\n    category: TOYS\n",
			want: `product "장난감"`,
		},
		{
			name: "unknown goods",
			yaml: "shop:\n  users:\n    - name: 망곰이\n      purchases: [떡볶이]\n  goods: [닭꼬치]\n",
			want: `bought unknown goods "떡볶이"`,
		},
		{
			name: "malformed",
			yaml: "products: {",
			want: "parse fixtures",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixtures([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
students:
  - name: Carol
    city: Daegu
    major: Bioinformatics
`), 0o600))

	f, err := LoadFixtures(path)
	require.NoError(t, err)
	require.Len(t, f.Students, 1)
	assert.Equal(t, "Bioinformatics", f.Students[0].Major)
	assert.Empty(t, f.Groups)

	_, err = LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read fixtures")
}

func TestSchema(t *testing.T) {
	m, err := Schema()
	require.NoError(t, err)
	assert.Equal(t, "pebble_study_schema", m.Name)
	assert.Len(t, m.Version, 14)
	for _, table := range []string{"tbl_product", "tbl_student", "tbl_user", "tbl_goods", "tbl_purchase", "tbl_group", "tbl_idol"} {
		assert.Contains(t, m.UpSQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
		assert.Contains(t, m.DownSQL, "DROP TABLE IF EXISTS "+table+";")
	}
	assert.Contains(t, m.UpSQL, "CONSTRAINT chk_tbl_product_category CHECK (category IN ('FOOD', 'FASHION', 'ELECTRONIC'))")
	assert.Contains(t, m.UpSQL, "CONSTRAINT fk_tbl_purchase_goods_id FOREIGN KEY (goods_id) REFERENCES tbl_goods (goods_id)")
	assert.Less(t, strings.Index(m.UpSQL, "tbl_goods ("), strings.Index(m.UpSQL, "tbl_purchase ("))
	assert.Less(t, strings.Index(m.UpSQL, "tbl_group ("), strings.Index(m.UpSQL, "tbl_idol ("))
}
