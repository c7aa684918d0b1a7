package builder

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Sort is an ordered list of sort keys.
type Sort []OrderBy

// By builds a Sort from order keys.
func By(orders ...OrderBy) Sort {
	return Sort(orders)
}

// AscBy orders by a column or Go field name ascending.
func AscBy(name string) OrderBy {
	return OrderBy{Column: name, Direction: Asc}
}

// DescBy orders by a column or Go field name descending.
func DescBy(name string) OrderBy {
	return OrderBy{Column: name, Direction: Desc}
}

// ParseSort parses "age,desc" or "name" (ascending) into an OrderBy.
func ParseSort(s string) (OrderBy, error) {
	name, dir, _ := strings.Cut(s, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return OrderBy{}, fmt.Errorf("empty sort key")
	}
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
		return AscBy(name), nil
	case "DESC":
		return DescBy(name), nil
	default:
		return OrderBy{}, fmt.Errorf("invalid sort direction %q", dir)
	}
}

// Pageable requests one page of results. Page indexes are 0-based.
type Pageable struct {
	Page int
	Size int
	Sort Sort
}

// PageRequest creates a Pageable for the 0-based page index.
func PageRequest(page, size int, orders ...OrderBy) Pageable {
	return Pageable{Page: page, Size: size, Sort: Sort(orders)}
}

// Offset returns the number of rows skipped before the page.
func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// Validate rejects negative page indexes, non-positive sizes and pages whose
// offset does not fit in an int.
func (p Pageable) Validate() error {
	if p.Page < 0 {
		return fmt.Errorf("page index must not be negative, got %d", p.Page)
	}
	if p.Size < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", p.Size)
	}
	if p.Page > math.MaxInt/p.Size {
		return fmt.Errorf("page %d of size %d is out of range", p.Page, p.Size)
	}
	return nil
}

// Next returns the request for the following page.
func (p Pageable) Next() Pageable {
	p.Page++
	return p
}

// Previous returns the request for the preceding page, or the first page.
func (p Pageable) Previous() Pageable {
	if p.Page > 0 {
		p.Page--
	}
	return p
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Content       []T
	Number        int
	Size          int
	TotalElements int64
}

// NewPage creates a Page for content fetched with p.
func NewPage[T any](content []T, p Pageable, total int64) *Page[T] {
	return &Page[T]{Content: content, Number: p.Page, Size: p.Size, TotalElements: total}
}

// TotalPages returns ceil(TotalElements / Size).
func (p *Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 1
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

// NumberOfElements returns the number of rows on this page.
func (p *Page[T]) NumberOfElements() int {
	return len(p.Content)
}

// HasContent reports whether the page has rows.
func (p *Page[T]) HasContent() bool {
	return len(p.Content) > 0
}

// HasNext reports whether a following page exists.
func (p *Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages()
}

// HasPrevious reports whether a preceding page exists.
func (p *Page[T]) HasPrevious() bool {
	return p.Number > 0
}

// IsFirst reports whether this is the first page.
func (p *Page[T]) IsFirst() bool {
	return !p.HasPrevious()
}

// IsLast reports whether this is the last page.
func (p *Page[T]) IsLast() bool {
	return !p.HasNext()
}

// MapPage converts page content while keeping the paging information.
func MapPage[T, R any](p *Page[T], fn func(T) R) *Page[R] {
	return &Page[R]{
		Content:       lo.Map(p.Content, func(item T, _ int) R { return fn(item) }),
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
	}
}

// resolveOrder maps a sort key given as a Go field or column name onto a
// column of table. Qualified names (containing a dot) are passed through.
func resolveOrder(table *schema.TableMetadata, o OrderBy) (OrderBy, error) {
	if strings.Contains(o.Column, ".") {
		if !qualifiedIdent.MatchString(o.Column) {
			return o, fmt.Errorf("invalid sort property %q", o.Column)
		}
		return o, nil
	}
	if col := table.GetColumnByField(o.Column); col != nil {
		o.Column = col.Name
		return o, nil
	}
	if col := table.GetColumnByName(o.Column); col != nil {
		return o, nil
	}
	return o, fmt.Errorf("unknown sort property %q for %s", o.Column, table.Name)
}

var qualifiedIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*$`)
