package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

// defaultLockID keys the transaction-scoped advisory lock that serializes
// concurrent runners.
const defaultLockID int64 = 1234567890

// Executor applies migrations and tracks them in schema_migrations.
type Executor struct {
	db     *runtime.DB
	log    *zap.Logger
	lockID int64
}

// NewExecutor creates a new migration executor.
func NewExecutor(db *runtime.DB) *Executor {
	return &Executor{db: db, log: db.Logger(), lockID: defaultLockID}
}

// WithLockID sets a custom advisory lock ID.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version VARCHAR(14) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    status VARCHAR(20) NOT NULL,
    applied_at TIMESTAMPTZ,
    error TEXT
)`
	if _, err := e.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// IsApplied checks if a migration version has been applied.
func (e *Executor) IsApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := e.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = $1 AND status = 'applied'",
		version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

// Records returns every tracked migration ordered by application time.
func (e *Executor) Records(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := e.db.Query(ctx,
		"SELECT version, name, status, applied_at, error FROM schema_migrations ORDER BY applied_at, version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		if err := rows.Scan(&r.Version, &r.Name, &r.Status, &r.AppliedAt, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Apply runs m.UpSQL in one transaction under the advisory lock and
// records it. Applying an already applied version does nothing and
// returns false.
func (e *Executor) Apply(ctx context.Context, m Migration) (bool, error) {
	if err := e.Initialize(ctx); err != nil {
		return false, err
	}
	applied := false
	err := e.inLockedTx(ctx, func(tx *runtime.Tx) error {
		var count int
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = $1 AND status = 'applied'",
			m.Version,
		).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for i, stmt := range splitSQL(m.UpSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s failed at statement %d: %w", m.Version, i+1, err)
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name, status, applied_at, error)
			 VALUES ($1, $2, 'applied', NOW(), NULL)
			 ON CONFLICT (version) DO UPDATE SET status = 'applied', applied_at = NOW(), error = NULL`,
			m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		e.recordFailure(ctx, m, err)
		return false, err
	}
	if applied {
		e.log.Info("migration applied", zap.String("version", m.Version), zap.String("name", m.Name))
	} else {
		e.log.Info("migration already applied", zap.String("version", m.Version))
	}
	return applied, nil
}

// Rollback runs m.DownSQL and forgets every tracked version, since the down
// script drops all managed tables.
func (e *Executor) Rollback(ctx context.Context, m Migration) error {
	if err := e.Initialize(ctx); err != nil {
		return err
	}
	err := e.inLockedTx(ctx, func(tx *runtime.Tx) error {
		for i, stmt := range splitSQL(m.DownSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rollback failed at statement %d: %w", i+1, err)
			}
		}
		_, err := tx.Exec(ctx, "DELETE FROM schema_migrations")
		return err
	})
	if err != nil {
		return err
	}
	e.log.Info("migration rolled back", zap.String("name", m.Name))
	return nil
}

// recordFailure stores the error outside the failed transaction.
func (e *Executor) recordFailure(ctx context.Context, m Migration, cause error) {
	_, err := e.db.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, status, applied_at, error)
		 VALUES ($1, $2, 'failed', NOW(), $3)
		 ON CONFLICT (version) DO UPDATE SET status = 'failed', applied_at = NOW(), error = $3`,
		m.Version, m.Name, cause.Error(),
	)
	if err != nil {
		e.log.Warn("could not record migration failure", zap.Error(err))
	}
}

func (e *Executor) inLockedTx(ctx context.Context, fn func(tx *runtime.Tx) error) (err error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, runtime.ErrTransactionClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", e.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// splitSQL splits a script on semicolons, dropping comment lines. The
// generated DDL never contains semicolons inside literals.
func splitSQL(sql string) []string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	var out []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
