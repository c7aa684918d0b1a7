package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of product categories.
type Category string

const (
	CategoryFood       Category = "FOOD"
	CategoryFashion    Category = "FASHION"
	CategoryElectronic Category = "ELECTRONIC"
)

// Categories lists every category in declaration order.
var Categories = []Category{CategoryFood, CategoryFashion, CategoryElectronic}

// DefaultPrice is the price a product gets when none is set.
const DefaultPrice = 10000

// ParseCategory parses a category name, ignoring case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryFashion, CategoryElectronic:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Scan implements sql.Scanner and rejects unknown values.
func (c *Category) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*c = ""
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Category", src)
	}
	if !Category(s).Valid() {
		return fmt.Errorf("unknown category %q in database", s)
	}
	*c = Category(s)
	return nil
}

// Value implements driver.Valuer.
func (c Category) Value() (driver.Value, error) {
	if c == "" {
		return nil, nil
	}
	return string(c), nil
}

// Product is a catalog item.
type Product struct {
	ID        int64     `po:"prod_id,primaryKey,bigint,identity" json:"id"`
	Name      string    `po:"prod_nm,varchar(30),notNull" json:"name"`
	Price     int       `po:"price,integer,notNull,default(10000)" json:"price"`
	Category  Category  `po:"category,varchar(20),notNull,default('FOOD'),enum(FOOD|FASHION|ELECTRONIC)" json:"category"`
	CreatedAt time.Time `po:"created_at,timestamptz,notNull,autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `po:"updated_at,timestamptz,notNull,autoUpdateTime" json:"updatedAt"`

	// NickName is not persisted.
	NickName string `json:"-"`
}

// TableName implements schema.TableNamer.
func (Product) TableName() string { return "tbl_product" }

// NewProduct builds a product with defaults applied.
func NewProduct(name string, price int, category Category) *Product {
	p := &Product{Name: name, Price: price, Category: category}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults sets the price and category when they are still zero. An
// explicit value is never replaced.
func (p *Product) ApplyDefaults() {
	if p.Price == 0 {
		p.Price = DefaultPrice
	}
	if p.Category == "" {
		p.Category = CategoryFood
	}
}

func (p Product) String() string {
	return fmt.Sprintf("Product(id=%d, name=%s, price=%d, category=%s)", p.ID, p.Name, p.Price, p.Category)
}
