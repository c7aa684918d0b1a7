package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Delete removes entity and, first, every row reached through cascade
// relationships. It reports whether the entity's row existed.
func Delete[T any](ctx context.Context, s *Session, entity *T) (bool, error) {
	if entity == nil {
		return false, fmt.Errorf("%w: nil entity", runtime.ErrInvalidModel)
	}
	table, err := tableOf[T]()
	if err != nil {
		return false, err
	}
	id, zero, err := table.PrimaryKeyValue(entity)
	if err != nil {
		return false, err
	}
	if zero {
		return false, nil
	}
	return deleteByID(ctx, s, table, id)
}

// DeleteByID removes the row with the given primary key after its cascade
// children. A missing row is not an error; the result is then false.
func DeleteByID[T any](ctx context.Context, s *Session, id any) (bool, error) {
	table, err := tableOf[T]()
	if err != nil {
		return false, err
	}
	return deleteByID(ctx, s, table, id)
}

func deleteByID(ctx context.Context, s *Session, table *schema.TableMetadata, id any) (bool, error) {
	pk := table.PrimaryKeyColumn()
	if pk == nil {
		return false, fmt.Errorf("%w: %s", runtime.ErrNoPrimaryKey, table.Name)
	}

	deleted := false
	err := s.Transaction(ctx, func(tx *Session) error {
		rows, err := loadRows(ctx, tx.db, table, pk.Name, id)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.cascade(ctx, table, rows[0], 0); err != nil {
			return err
		}
		n, err := tx.db.Executor().Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table.Name, pk.Name), id)
		if err != nil {
			return err
		}
		deleted = n > 0
		tx.forget(entityKey{table: table.Name, id: id})
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Debug("entity deleted", zap.String("table", table.Name), zap.Any("id", id))
	}
	return deleted, nil
}

// cascade deletes the dependents of one parent row, depth first. row holds
// the parent's column values.
func (s *Session) cascade(ctx context.Context, parent *schema.TableMetadata, row map[string]any, depth int) error {
	if depth >= maxCascadeDepth {
		return fmt.Errorf("cascade from %s exceeds depth %d", parent.Name, maxCascadeDepth)
	}
	deps, err := registry.Dependents(parent)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		rel := dep.Relationship
		key, ok := row[rel.References]
		if !ok {
			return &runtime.CascadeError{Parent: parent.Name, Child: dep.Table.Name,
				Err: fmt.Errorf("parent column %s not loaded", rel.References)}
		}
		children, err := loadRows(ctx, s.db, dep.Table, rel.ForeignKey, key)
		if err != nil {
			return &runtime.CascadeError{Parent: parent.Name, Child: dep.Table.Name, Err: err}
		}
		if len(children) == 0 {
			continue
		}
		for _, child := range children {
			if err := s.cascade(ctx, dep.Table, child, depth+1); err != nil {
				return err
			}
		}
		n, err := s.db.Executor().Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1", dep.Table.Name, rel.ForeignKey), key)
		if err != nil {
			return &runtime.CascadeError{Parent: parent.Name, Child: dep.Table.Name, Err: err}
		}
		if pk := dep.Table.PrimaryKeyColumn(); pk != nil {
			for _, child := range children {
				s.forget(entityKey{table: dep.Table.Name, id: child[pk.Name]})
			}
		}
		s.log.Debug("cascade delete",
			zap.String("parent", parent.Name),
			zap.String("child", dep.Table.Name),
			zap.Int64("rows", n),
		)
	}
	return nil
}

func loadRows(ctx context.Context, db *builder.DB, table *schema.TableMetadata, column string, value any) ([]map[string]any, error) {
	rows, err := db.Executor().Query(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table.Name, column), value)
	if err != nil {
		return nil, err
	}
	return rowToMap(rows)
}
