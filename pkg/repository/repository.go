// Package repository provides a generic CRUD repository over a session.
package repository

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

// Repository is the CRUD surface for an entity T keyed by ID. Entity
// repositories embed it and add their finders.
type Repository[T any, ID comparable] struct {
	session *session.Session
	table   *schema.TableMetadata
	pk      *schema.ColumnMetadata
}

// New creates a Repository for T. It fails when T is not a valid model or
// has no single-column primary key.
func New[T any, ID comparable](s *session.Session) (*Repository[T, ID], error) {
	var model T
	table, err := registry.GetOrRegister(model)
	if err != nil {
		return nil, err
	}
	pk := table.PrimaryKeyColumn()
	if pk == nil {
		return nil, fmt.Errorf("%w: %s", runtime.ErrNoPrimaryKey, table.Name)
	}
	return &Repository[T, ID]{session: s, table: table, pk: pk}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any, ID comparable](s *session.Session) *Repository[T, ID] {
	r, err := New[T, ID](s)
	if err != nil {
		panic(err)
	}
	return r
}

// Session returns the session the repository writes through.
func (r *Repository[T, ID]) Session() *session.Session {
	return r.session
}

// DB returns the builder DB of the session.
func (r *Repository[T, ID]) DB() *builder.DB {
	return r.session.DB()
}

// Table returns the table metadata of T.
func (r *Repository[T, ID]) Table() *schema.TableMetadata {
	return r.table
}

// Select starts a query over T bound to the repository's DB.
func (r *Repository[T, ID]) Select() *builder.SelectQuery[T] {
	return builder.Select[T](r.DB())
}

// Save inserts or updates entity and returns it with database-filled
// columns populated.
func (r *Repository[T, ID]) Save(ctx context.Context, entity *T) (*T, error) {
	if err := session.Save(ctx, r.session, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// SaveAll saves the entities in one transaction.
func (r *Repository[T, ID]) SaveAll(ctx context.Context, entities []*T) error {
	return session.SaveAll(ctx, r.session, entities)
}

// FindByID returns the entity or nil, nil when it does not exist.
func (r *Repository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	return session.Find[T](ctx, r.session, id)
}

// GetByID returns the entity or an error wrapping runtime.ErrNotFound.
func (r *Repository[T, ID]) GetByID(ctx context.Context, id ID) (*T, error) {
	return session.Get[T](ctx, r.session, id)
}

// ExistsByID reports whether a row with id exists.
func (r *Repository[T, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	return r.Select().Where(builder.Eq(r.pk.Name, id)).Exists(ctx)
}

// FindAll returns every row ordered by primary key.
func (r *Repository[T, ID]) FindAll(ctx context.Context) ([]T, error) {
	return r.Select().OrderByAsc(r.pk.Name).All(ctx)
}

// FindAllSorted returns every row in the given order. Sort keys may name
// Go fields or columns.
func (r *Repository[T, ID]) FindAllSorted(ctx context.Context, sort builder.Sort) ([]T, error) {
	return r.Select().Sort(sort).All(ctx)
}

// FindAllByID returns the rows whose key is in ids.
func (r *Repository[T, ID]) FindAllByID(ctx context.Context, ids ...ID) ([]T, error) {
	return r.Select().Where(builder.In(r.pk.Name, lo.ToAnySlice(ids)...)).OrderByAsc(r.pk.Name).All(ctx)
}

// FindAllPaged returns one page of rows.
func (r *Repository[T, ID]) FindAllPaged(ctx context.Context, p builder.Pageable) (*builder.Page[T], error) {
	return r.Select().Page(ctx, p)
}

// Count returns the number of rows.
func (r *Repository[T, ID]) Count(ctx context.Context) (int64, error) {
	return r.Select().Count(ctx)
}

// DeleteByID deletes the row with id and its cascade children. Deleting a
// missing id does nothing.
func (r *Repository[T, ID]) DeleteByID(ctx context.Context, id ID) error {
	_, err := session.DeleteByID[T](ctx, r.session, id)
	return err
}

// Delete deletes entity and its cascade children.
func (r *Repository[T, ID]) Delete(ctx context.Context, entity *T) error {
	_, err := session.Delete(ctx, r.session, entity)
	return err
}

// DeleteAll deletes every row one by one, running cascades.
func (r *Repository[T, ID]) DeleteAll(ctx context.Context) error {
	return r.session.Transaction(ctx, func(tx *session.Session) error {
		all, err := builder.Select[T](tx.DB()).All(ctx)
		if err != nil {
			return err
		}
		for i := range all {
			if _, err := session.Delete(ctx, tx, &all[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
