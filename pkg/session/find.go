package session

import (
	"context"
	"fmt"

	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

// Find loads the entity with the given primary key and tracks it. It
// returns nil, nil when no row exists.
func Find[T any](ctx context.Context, s *Session, id any, preload ...string) (*T, error) {
	table, err := tableOf[T]()
	if err != nil {
		return nil, err
	}
	pk := table.PrimaryKeyColumn()
	if pk == nil {
		return nil, fmt.Errorf("%w: %s", runtime.ErrNoPrimaryKey, table.Name)
	}
	entity, err := builder.Select[T](s.db).
		Where(builder.Eq(pk.Name, id)).
		Preload(preload...).
		One(ctx)
	if err != nil || entity == nil {
		return nil, err
	}
	if err := Track(s, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Get is like Find but returns runtime.ErrNotFound when no row exists.
func Get[T any](ctx context.Context, s *Session, id any, preload ...string) (*T, error) {
	entity, err := Find[T](ctx, s, id, preload...)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		var zero T
		return nil, fmt.Errorf("%T %v: %w", zero, id, runtime.ErrNotFound)
	}
	return entity, nil
}

// TrackAll tracks every entity in a result set.
func TrackAll[T any](s *Session, entities []T) error {
	for i := range entities {
		if err := Track(s, &entities[i]); err != nil {
			return err
		}
	}
	return nil
}
