package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shelf struct {
	ID    int64  `po:"shelf_id,primaryKey,bigint,identity"`
	Label string `po:"label,varchar(20),notNull"`
	Books []book `po:"-,hasMany,foreignKey(shelf_id),references(shelf_id),cascade"`
}

func (shelf) TableName() string { return "tbl_shelf" }

type book struct {
	ID        string    `po:"book_id,primaryKey,varchar(36),generator(uuid)"`
	Title     string    `po:"title,varchar(5),notNull"`
	Genre     string    `po:"genre,varchar(10),notNull,default('NOVEL'),enum(NOVEL|POEM)"`
	Pages     int       `po:"pages,integer,notNull,default(100)"`
	ShelfID   *int64    `po:"shelf_id,bigint,fk(tbl_shelf.shelf_id)"`
	Shelf     *shelf    `po:"-,belongsTo,foreignKey(shelf_id),references(shelf_id)"`
	CreatedAt time.Time `po:"created_at,timestamptz,notNull,autoCreateTime"`
	UpdatedAt time.Time `po:"updated_at,timestamptz,notNull,autoUpdateTime"`

	Note string
}

func (book) TableName() string { return "tbl_book" }

type LibraryCard struct {
	CardNumber int `po:",primaryKey"`
	HolderName string
}

func TestParser_Parse(t *testing.T) {
	table, err := NewParser().Parse(reflect.TypeOf(book{}))
	require.NoError(t, err)

	assert.Equal(t, "tbl_book", table.Name)
	require.NotNil(t, table.PrimaryKey)
	assert.Equal(t, []string{"book_id"}, table.PrimaryKey.Columns)
	assert.Equal(t, "tbl_book_pkey", table.PrimaryKey.Name)

	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"book_id", "title", "genre", "pages", "shelf_id", "created_at", "updated_at"}, names,
		"relationship and untagged fields are not columns")

	id := table.GetColumnByName("book_id")
	assert.Equal(t, "varchar(36)", id.SQLType)
	assert.Equal(t, "uuid", id.Generator)
	assert.False(t, id.Nullable)

	title := table.GetColumnByField("Title")
	assert.Equal(t, 5, title.Length)
	assert.False(t, title.Nullable)

	genre := table.GetColumnByName("genre")
	assert.Equal(t, []string{"NOVEL", "POEM"}, genre.EnumValues)
	require.NotNil(t, genre.Default)
	assert.Equal(t, "'NOVEL'", *genre.Default)

	assert.True(t, table.GetColumnByName("shelf_id").Nullable, "pointer fields are nullable")
	assert.True(t, table.GetColumnByName("created_at").AutoCreateTime)
	assert.True(t, table.GetColumnByName("updated_at").AutoUpdateTime)

	require.Len(t, table.ForeignKeys, 1)
	fk := table.ForeignKeys[0]
	assert.Equal(t, "fk_tbl_book_shelf_id", fk.Name)
	assert.Equal(t, "tbl_shelf", fk.ReferencedTable)
	assert.Equal(t, []string{"shelf_id"}, fk.ReferencedColumns)
	assert.Equal(t, NoAction, fk.OnDelete)
}

func TestParser_Relationships(t *testing.T) {
	p := NewParser()

	parent, err := p.Parse(reflect.TypeOf(shelf{}))
	require.NoError(t, err)
	require.Len(t, parent.Relationships, 1)
	rel := parent.Relationships[0]
	assert.Equal(t, HasMany, rel.Type)
	assert.Equal(t, "Books", rel.SourceField)
	assert.Equal(t, "tbl_book", rel.TargetTable)
	assert.Equal(t, reflect.TypeOf(book{}), rel.TargetType)
	assert.True(t, rel.CascadeDelete)
	assert.Equal(t, IdentityAlways, parent.GetColumnByName("shelf_id").Identity.Generation)

	child, err := p.Parse(reflect.TypeOf(book{}))
	require.NoError(t, err)
	owner := child.GetRelationship("Shelf")
	require.NotNil(t, owner)
	assert.Equal(t, BelongsTo, owner.Type)
	assert.Equal(t, "shelf_id", owner.ForeignKey)
	assert.Equal(t, "shelf_id", owner.References)
	assert.False(t, owner.CascadeDelete)
	assert.Len(t, child.GetRelationshipsByType(HasMany), 0)
}

func TestParser_InferredNames(t *testing.T) {
	table, err := NewParser().Parse(reflect.TypeOf(&LibraryCard{}))
	require.NoError(t, err)

	assert.Equal(t, "library_card", table.Name)
	require.Len(t, table.Columns, 1)
	assert.Equal(t, "card_number", table.Columns[0].Name)
	assert.Equal(t, "integer", table.Columns[0].SQLType)
}

func TestParser_Errors(t *testing.T) {
	type badCascade struct {
		ID    int    `po:"id,primaryKey"`
		Owner *shelf `po:"-,belongsTo,cascade"`
	}
	type badGenerator struct {
		ID string `po:"id,primaryKey,generator(snowflake)"`
	}
	type badVarchar struct {
		Name string `po:"name,varchar(x)"`
	}
	type badFK struct {
		OwnerID int `po:"owner_id,fk(owner)"`
	}
	type unmapped struct {
		Data map[string]int `po:"data"`
	}

	tests := []struct {
		name  string
		model any
	}{
		{"cascade on belongsTo", badCascade{}},
		{"unknown generator", badGenerator{}},
		{"invalid varchar length", badVarchar{}},
		{"invalid fk reference", badFK{}},
		{"unmappable type", unmapped{}},
		{"not a struct", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse(reflect.TypeOf(tt.model))
			assert.Error(t, err)
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":       "name",
		"GroupID":    "group_id",
		"IdolName":   "idol_name",
		"HTTPServer": "http_server",
		"CreatedAt":  "created_at",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestParseTag(t *testing.T) {
	opts, err := NewParser().parseTag("price,integer,notNull,default(10000),enum(A|B)")
	require.NoError(t, err)

	assert.Equal(t, "price", opts.Name)
	assert.True(t, opts.Has("notNull"))
	assert.Equal(t, "10000", opts.Get("default"))
	assert.Equal(t, "A|B", opts.Get("enum"))
	assert.Equal(t, "integer", opts.GetSQLType())

	_, err = NewParser().parseTag("price,default(10")
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	table, err := NewParser().Parse(reflect.TypeOf(book{}))
	require.NoError(t, err)

	b := &book{Title: "Poems", Pages: 12}
	id, zero, err := table.PrimaryKeyValue(b)
	require.NoError(t, err)
	assert.True(t, zero)
	assert.Equal(t, "", id)

	require.NoError(t, table.SetValue(b, "book_id", "b-1"))
	assert.Equal(t, "b-1", b.ID)

	v, err := table.Value(b, "pages")
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	values, err := table.Values(b)
	require.NoError(t, err)
	assert.Len(t, values, len(table.Columns))
	assert.Equal(t, "Poems", values["title"])

	require.NoError(t, table.SetValue(b, "shelf_id", nil))
	assert.Nil(t, b.ShelfID)

	assert.Error(t, table.SetValue(*b, "title", "x"), "needs a pointer")
	assert.Error(t, table.SetValue(b, "missing", 1))
	_, err = table.Values(&shelf{})
	assert.Error(t, err, "wrong type")
}
