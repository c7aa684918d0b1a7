package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

// Tx is a DB bound to an open transaction. Every builder created from Tx.DB
// runs inside the transaction.
type Tx struct {
	db *DB
	tx *runtime.Tx
}

// Begin starts a new transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	return d.BeginTx(ctx, pgx.TxOptions{})
}

// BeginTx starts a new transaction with custom options.
func (d *DB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (*Tx, error) {
	if d.tx != nil {
		return nil, errors.New("transaction already in progress")
	}
	if d.root == nil {
		return nil, errors.New("no database connection")
	}
	tx, err := d.root.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, err
	}
	return &Tx{db: &DB{exec: tx, root: d.root, tx: tx}, tx: tx}, nil
}

// DB returns the transaction-bound builder DB.
func (t *Tx) DB() *DB {
	return t.db
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. It is safe to call after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// RunInTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error or panic. Called on a DB that is
// already bound to a transaction, fn joins it and the outer caller decides
// the outcome.
func (d *DB) RunInTx(ctx context.Context, fn func(tx *DB) error) (err error) {
	if d.tx != nil {
		return fn(d)
	}

	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx.DB()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
