// Package models defines the persisted entities.
package models

import (
	"fmt"

	"github.com/marshallshelly/pebble-study/pkg/registry"
)

// Student is keyed by a UUID assigned on first save.
type Student struct {
	ID    string `po:"stu_id,primaryKey,varchar(36),generator(uuid)" json:"id"`
	Name  string `po:"stu_name,varchar(255),notNull" json:"name"`
	City  string `po:"city,varchar(255)" json:"city"`
	Major string `po:"major,varchar(255)" json:"major"`
}

func (Student) TableName() string { return "tbl_student" }

// User owns purchases; deleting a user deletes them.
type User struct {
	ID        int64      `po:"user_id,primaryKey,bigint,identity" json:"id"`
	Name      string     `po:"name,varchar(255)" json:"name"`
	Purchases []Purchase `po:"-,hasMany,foreignKey(user_id),references(user_id),cascade" json:"purchases,omitempty"`
}

func (User) TableName() string { return "tbl_user" }

// Goods is a purchasable item. Goods referenced by a purchase cannot be
// deleted.
type Goods struct {
	ID        int64      `po:"goods_id,primaryKey,bigint,identity" json:"id"`
	Name      string     `po:"name,varchar(255)" json:"name"`
	Purchases []Purchase `po:"-,hasMany,foreignKey(goods_id),references(goods_id)" json:"purchases,omitempty"`
}

func (Goods) TableName() string { return "tbl_goods" }

// Purchase links one user to one goods item.
type Purchase struct {
	ID      int64  `po:"purchase_id,primaryKey,bigint,identity" json:"id"`
	UserID  int64  `po:"user_id,bigint,notNull,fk(tbl_user.user_id)" json:"userId"`
	GoodsID int64  `po:"goods_id,bigint,notNull,fk(tbl_goods.goods_id)" json:"goodsId"`
	User    *User  `po:"-,belongsTo,foreignKey(user_id),references(user_id)" json:"user,omitempty"`
	Goods   *Goods `po:"-,belongsTo,foreignKey(goods_id),references(goods_id)" json:"goods,omitempty"`
}

func (Purchase) TableName() string { return "tbl_purchase" }

// NewPurchase links u and g. Both must already be saved.
func NewPurchase(u *User, g *Goods) *Purchase {
	return &Purchase{UserID: u.ID, GoodsID: g.ID, User: u, Goods: g}
}

// Group is an idol group.
type Group struct {
	ID        int64  `po:"group_id,primaryKey,bigint,identity" json:"id"`
	GroupName string `po:"group_name,varchar(255)" json:"groupName"`
	Idols     []Idol `po:"-,hasMany,foreignKey(group_id),references(group_id)" json:"idols,omitempty"`
}

func (Group) TableName() string { return "tbl_group" }

// NewGroup builds an unsaved group.
func NewGroup(name string) *Group {
	return &Group{GroupName: name}
}

// Idol optionally belongs to a group.
type Idol struct {
	ID       int64  `po:"idol_id,primaryKey,bigint,identity" json:"id"`
	IdolName string `po:"idol_name,varchar(255)" json:"idolName"`
	Age      int    `po:"age,integer" json:"age"`
	GroupID  *int64 `po:"group_id,bigint,fk(tbl_group.group_id)" json:"groupId,omitempty"`
	Group    *Group `po:"-,belongsTo,foreignKey(group_id),references(group_id)" json:"group,omitempty"`
}

func (Idol) TableName() string { return "tbl_idol" }

// NewIdol builds an unsaved idol. g may be nil; otherwise it must be saved.
func NewIdol(name string, age int, g *Group) *Idol {
	idol := &Idol{IdolName: name, Age: age, Group: g}
	if g != nil {
		id := g.ID
		idol.GroupID = &id
	}
	return idol
}

func (i Idol) String() string {
	return fmt.Sprintf("Idol(id=%d, name=%s, age=%d)", i.ID, i.IdolName, i.Age)
}

// All lists one value of every entity type, parents before children.
func All() []any {
	return []any{
		Product{}, Student{},
		User{}, Goods{}, Purchase{},
		Group{}, Idol{},
	}
}

// RegisterAll registers every entity with the default registry.
func RegisterAll() error {
	for _, m := range All() {
		if err := registry.Register(m); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	return nil
}
