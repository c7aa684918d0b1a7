package registry

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Member struct {
	ID     int64   `po:"member_id,primaryKey,bigint,identity"`
	Name   string  `po:"name,varchar(255)"`
	Orders []Order `po:"-,hasMany,foreignKey(member_id),references(member_id),cascade"`
	Notes  []Note  `po:"-,hasMany,foreignKey(member_id),references(member_id)"`
}

func (Member) TableName() string { return "tbl_member" }

type Order struct {
	ID       int64   `po:"order_id,primaryKey,bigint,identity"`
	MemberID int64   `po:"member_id,bigint,notNull,fk(tbl_member.member_id)"`
	Member   *Member `po:"-,belongsTo,foreignKey(member_id),references(member_id)"`
}

func (Order) TableName() string { return "tbl_order" }

type Note struct {
	ID       int64 `po:"note_id,primaryKey,bigint,identity"`
	MemberID int64 `po:"member_id,bigint"`
}

func (Note) TableName() string { return "tbl_note" }

type Impostor struct {
	ID int64 `po:"id,primaryKey"`
}

func (Impostor) TableName() string { return "tbl_member" }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	t.Run("registers relationship targets", func(t *testing.T) {
		require.NoError(t, r.Register(Member{}))
		assert.True(t, r.Has(reflect.TypeOf(Member{})))
		assert.True(t, r.Has(reflect.TypeOf(Order{})))
		assert.True(t, r.HasTable("tbl_note"))
	})

	t.Run("duplicate and pointer registration", func(t *testing.T) {
		assert.NoError(t, r.Register(Member{}))
		assert.NoError(t, r.Register(&Member{}))
		assert.Len(t, r.All(), 3)
	})

	t.Run("table name clash", func(t *testing.T) {
		err := r.Register(Impostor{})
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("invalid type", func(t *testing.T) {
		assert.Error(t, r.Register("not a struct"))
	})
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Order{}))

	table, err := r.Get(reflect.TypeOf(&Order{}))
	require.NoError(t, err)
	assert.Equal(t, "tbl_order", table.Name)

	byName, err := r.GetByName("tbl_member")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(Member{}), byName.GoType)

	_, err = r.GetByName("tbl_missing")
	assert.Error(t, err)
	_, err = r.Get(reflect.TypeOf(Impostor{}))
	assert.Error(t, err)

	assert.Equal(t, []string{"tbl_member", "tbl_note", "tbl_order"}, r.AllNames())

	r.Clear()
	assert.Empty(t, r.All())
}

func TestRegistry_Dependents(t *testing.T) {
	r := NewRegistry()
	member, err := r.GetOrRegister(Member{})
	require.NoError(t, err)

	deps, err := r.Dependents(member)
	require.NoError(t, err)
	require.Len(t, deps, 1, "only cascade relationships are dependents")
	assert.Equal(t, "tbl_order", deps[0].Table.Name)
	assert.Equal(t, "member_id", deps[0].Relationship.ForeignKey)

	order, err := r.Get(reflect.TypeOf(Order{}))
	require.NoError(t, err)
	deps, err = r.Dependents(order)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestRegistry_ConcurrentGetOrRegister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.GetOrRegister(Member{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, r.All(), 3)
}
