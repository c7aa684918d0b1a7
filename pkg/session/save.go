package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Save persists entity in one transaction. Constraints are validated before
// any SQL runs. Defaults are applied only to entities being inserted.
//
// An entity with a zero primary key is inserted; identity keys come back
// from the database and generator(uuid) keys are assigned here. An entity
// with a key is diffed against its snapshot (loaded first when the session
// has none) and only changed columns are updated, together with any
// autoUpdateTime column. A save with nothing changed sends no SQL. A keyed
// entity with no row is inserted; identity keys are then regenerated.
//
// Database-filled columns (identity, defaults, timestamps) are copied back
// into entity.
func Save[T any](ctx context.Context, s *Session, entity *T) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", runtime.ErrInvalidModel)
	}
	table, err := tableOf[T]()
	if err != nil {
		return err
	}
	_, zero, err := table.PrimaryKeyValue(entity)
	if err != nil {
		return fmt.Errorf("%w: %v", runtime.ErrNoPrimaryKey, err)
	}
	if zero {
		applyDefaults(entity)
	}
	if err := validate(table, entity); err != nil {
		return err
	}

	if clean, err := s.unchanged(table, entity); err != nil || clean {
		return err
	}
	return s.Transaction(ctx, func(tx *Session) error {
		return save(ctx, tx, table, entity)
	})
}

func save[T any](ctx context.Context, s *Session, table *schema.TableMetadata, entity *T) error {
	pk := table.PrimaryKeyColumn()
	if pk == nil {
		return fmt.Errorf("%w: %s", runtime.ErrNoPrimaryKey, table.Name)
	}
	id, zero, err := table.PrimaryKeyValue(entity)
	if err != nil {
		return err
	}
	if zero {
		switch {
		case pk.Generator == "uuid":
			if err := table.SetValue(entity, pk.Name, s.newID()); err != nil {
				return err
			}
		case pk.Identity == nil:
			return runtime.NewValidationFailure(runtime.NotNullViolation, table.Name, pk.Name, "primary key must be assigned")
		}
		return insert(ctx, s, table, entity)
	}

	key := entityKey{table: table.Name, id: id}
	snap, ok := s.snapshot(key)
	if !ok {
		current, err := builder.Select[T](s.db).Where(builder.Eq(pk.Name, id)).One(ctx)
		if err != nil {
			return err
		}
		if current == nil {
			applyDefaults(entity)
			if err := validate(table, entity); err != nil {
				return err
			}
			if pk.Identity != nil {
				if err := table.SetValue(entity, pk.Name, nil); err != nil {
					return err
				}
			}
			return insert(ctx, s, table, entity)
		}
		if snap, err = takeSnapshot(table, current); err != nil {
			return err
		}
		s.remember(key, snap)
	}
	return update(ctx, s, table, key, snap, entity)
}

// applyDefaults runs the entity's Defaulter. It is only called for rows
// about to be inserted; an update keeps explicit zero values.
func applyDefaults(entity any) {
	if d, ok := entity.(Defaulter); ok {
		d.ApplyDefaults()
	}
}

func validate(table *schema.TableMetadata, entity any) error {
	if err := schema.Validate(table, entity); err != nil {
		return err
	}
	if v, ok := entity.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// unchanged reports whether entity is tracked and equal to its snapshot, in
// which case Save has nothing to send.
func (s *Session) unchanged(table *schema.TableMetadata, entity any) (bool, error) {
	id, zero, err := table.PrimaryKeyValue(entity)
	if err != nil || zero {
		return false, nil
	}
	snap, ok := s.snapshot(entityKey{table: table.Name, id: id})
	if !ok {
		return false, nil
	}
	changed, err := Changed(table, snap, entity)
	if err != nil {
		return false, err
	}
	if len(changed) == 0 {
		s.log.Debug("entity unchanged", zap.String("table", table.Name), zap.Any("id", id))
		return true, nil
	}
	return false, nil
}

// SaveAll saves each entity in one transaction.
func SaveAll[T any](ctx context.Context, s *Session, entities []*T) error {
	return s.Transaction(ctx, func(tx *Session) error {
		for _, e := range entities {
			if err := Save(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insert[T any](ctx context.Context, s *Session, table *schema.TableMetadata, entity *T) error {
	stamp := s.timestamp()
	for _, col := range table.Columns {
		if !col.AutoCreateTime && !col.AutoUpdateTime {
			continue
		}
		v, err := table.Value(entity, col.Name)
		if err != nil {
			return err
		}
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			continue
		}
		if err := table.SetValue(entity, col.Name, stamp); err != nil {
			return err
		}
	}

	rows, err := builder.Insert[T](s.db).Values(*entity).ExecReturning(ctx)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return fmt.Errorf("insert into %s returned %d rows", table.Name, len(rows))
	}
	copyColumns(table, entity, &rows[0])

	key, err := keyFor(table, entity)
	if err != nil {
		return err
	}
	snap, err := takeSnapshot(table, entity)
	if err != nil {
		return err
	}
	s.remember(key, snap)
	s.log.Debug("entity inserted", zap.String("table", table.Name), zap.Any("id", key.id))
	return nil
}

func update[T any](ctx context.Context, s *Session, table *schema.TableMetadata, key entityKey, snap snapshot, entity *T) error {
	changed, err := Changed(table, snap, entity)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		s.log.Debug("entity unchanged", zap.String("table", table.Name), zap.Any("id", key.id))
		return nil
	}

	values, err := table.Values(entity)
	if err != nil {
		return err
	}
	q := builder.Update[T](s.db)
	for _, col := range changed {
		q = q.Set(col, values[col])
	}
	stamp := s.timestamp()
	for _, col := range table.Columns {
		if col.AutoUpdateTime {
			q = q.Set(col.Name, stamp)
		}
	}

	pk := table.PrimaryKeyColumn()
	rows, err := q.Where(builder.Eq(pk.Name, key.id)).ExecReturning(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		s.forget(key)
		return fmt.Errorf("update %s %v: %w", table.Name, key.id, runtime.ErrNotFound)
	}
	copyColumns(table, entity, &rows[0])

	fresh, err := takeSnapshot(table, entity)
	if err != nil {
		return err
	}
	s.remember(key, fresh)
	s.log.Debug("entity updated",
		zap.String("table", table.Name),
		zap.Any("id", key.id),
		zap.Strings("columns", changed),
	)
	return nil
}
