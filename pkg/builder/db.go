package builder

import (
	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
	"go.uber.org/zap"
)

// DB binds query builders to an executor: the connection pool, or an open
// transaction obtained through RunInTx.
type DB struct {
	exec runtime.Executor
	root *runtime.DB
	tx   *runtime.Tx
}

// New creates a new query builder DB from a runtime DB.
func New(db *runtime.DB) *DB {
	d := &DB{root: db}
	if db != nil {
		d.exec = db
	}
	return d
}

// Runtime returns the underlying runtime.DB.
func (d *DB) Runtime() *runtime.DB {
	return d.root
}

// Executor returns the executor queries run on.
func (d *DB) Executor() runtime.Executor {
	return d.exec
}

// InTx reports whether the DB is bound to a transaction.
func (d *DB) InTx() bool {
	return d.tx != nil
}

// Logger returns the runtime logger, or a no-op logger.
func (d *DB) Logger() *zap.Logger {
	if d.root == nil {
		return zap.NewNop()
	}
	return d.root.Logger()
}

func tableFor[T any]() (*schema.TableMetadata, error) {
	var model T
	return registry.GetOrRegister(model)
}

// Select creates a new type-safe SELECT query.
// Usage: builder.Select[User](db).Where(...).All(ctx)
func Select[T any](d *DB) *SelectQuery[T] {
	table, err := tableFor[T]()
	return &SelectQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Insert creates a new type-safe INSERT query.
// Usage: builder.Insert[User](db).Values(user).Exec(ctx)
func Insert[T any](d *DB) *InsertQuery[T] {
	table, err := tableFor[T]()
	return &InsertQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Update creates a new type-safe UPDATE query.
// Usage: builder.Update[User](db).Set("name", "John").Where(...).Exec(ctx)
func Update[T any](d *DB) *UpdateQuery[T] {
	table, err := tableFor[T]()
	return &UpdateQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Delete creates a new type-safe DELETE query.
// Usage: builder.Delete[User](db).Where(...).Exec(ctx)
func Delete[T any](d *DB) *DeleteQuery[T] {
	table, err := tableFor[T]()
	return &DeleteQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}
