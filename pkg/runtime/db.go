package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor runs SQL statements. Both *DB and *Tx implement it, so query code
// is written once and runs inside or outside a transaction.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB represents a database connection pool.
type DB struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	showSQL bool
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for statement logging.
func WithLogger(log *zap.Logger) Option {
	return func(db *DB) {
		if log != nil {
			db.log = log
		}
	}
}

// WithSQLLogging logs every statement at debug level.
func WithSQLLogging(enabled bool) Option {
	return func(db *DB) { db.showSQL = enabled }
}

// NewDB creates a new DB instance from a connection pool.
func NewDB(pool *pgxpool.Pool, opts ...Option) *DB {
	db := &DB{pool: pool, log: zap.NewNop()}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Connect creates a new DB instance by connecting to PostgreSQL.
func Connect(ctx context.Context, config DatabaseConfig, opts ...Option) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewDB(pool, opts...), nil
}

// ConnectWithURL creates a new DB instance using a connection URL.
func ConnectWithURL(ctx context.Context, url string, opts ...Option) (*DB, error) {
	return Connect(ctx, DatabaseConfig{URL: url}, opts...)
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Logger returns the configured logger.
func (db *DB) Logger() *zap.Logger {
	return db.log
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Begin starts a new transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, pgx.TxOptions{})
}

// BeginTx starts a new transaction with options.
func (db *DB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (*Tx, error) {
	tx, err := db.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	db.log.Debug("transaction started")
	return &Tx{tx: tx, log: db.log, showSQL: db.showSQL}, nil
}

// Exec executes a query without returning any rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return execWith(ctx, db.pool, db.log, db.showSQL, sql, args)
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return queryWith(ctx, db.pool, db.log, db.showSQL, sql, args)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	logStatement(db.log, db.showSQL, sql, args, time.Now(), -1, nil)
	return &row{Row: db.pool.QueryRow(ctx, sql, args...), sql: sql}
}

// Tx is a database transaction.
type Tx struct {
	tx      pgx.Tx
	log     *zap.Logger
	showSQL bool
	closed  bool
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", TranslateError(err))
	}
	t.log.Debug("transaction committed")
	return nil
}

// Rollback rolls back the transaction. Rolling back a closed transaction is a
// no-op so it can be deferred unconditionally.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.log.Debug("transaction rolled back")
	return nil
}

// Exec executes a query inside the transaction.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return execWith(ctx, t.tx, t.log, t.showSQL, sql, args)
}

// Query executes a query that returns rows inside the transaction.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return queryWith(ctx, t.tx, t.log, t.showSQL, sql, args)
}

// QueryRow executes a query that returns at most one row inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	logStatement(t.log, t.showSQL, sql, args, time.Now(), -1, nil)
	return &row{Row: t.tx.QueryRow(ctx, sql, args...), sql: sql}
}

// conn is the subset shared by *pgxpool.Pool and pgx.Tx.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func execWith(ctx context.Context, c conn, log *zap.Logger, showSQL bool, sql string, args []any) (int64, error) {
	start := time.Now()
	result, err := c.Exec(ctx, sql, args...)
	if err != nil {
		logStatement(log, showSQL, sql, args, start, -1, err)
		return 0, &QueryError{Query: sql, Err: TranslateError(err)}
	}
	logStatement(log, showSQL, sql, args, start, result.RowsAffected(), nil)
	return result.RowsAffected(), nil
}

func queryWith(ctx context.Context, c conn, log *zap.Logger, showSQL bool, sql string, args []any) (pgx.Rows, error) {
	start := time.Now()
	rs, err := c.Query(ctx, sql, args...)
	logStatement(log, showSQL, sql, args, start, -1, err)
	if err != nil {
		return nil, &QueryError{Query: sql, Err: TranslateError(err)}
	}
	return &rows{Rows: rs, sql: sql}, nil
}

func logStatement(log *zap.Logger, showSQL bool, sql string, args []any, start time.Time, affected int64, err error) {
	if err != nil {
		log.Warn("statement failed", zap.String("sql", sql), zap.Error(err))
		return
	}
	if !showSQL {
		return
	}
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int("args", len(args)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if affected >= 0 {
		fields = append(fields, zap.Int64("rows", affected))
	}
	log.Debug("sql", fields...)
}

// rows translates deferred driver errors surfaced by Err.
type rows struct {
	pgx.Rows
	sql string
}

func (r *rows) Err() error {
	if err := r.Rows.Err(); err != nil {
		return &QueryError{Query: r.sql, Err: TranslateError(err)}
	}
	return nil
}

// row translates driver errors surfaced by Scan; pgx.ErrNoRows becomes ErrNotFound.
type row struct {
	pgx.Row
	sql string
}

func (r *row) Scan(dest ...any) error {
	if err := r.Row.Scan(dest...); err != nil {
		return &QueryError{Query: r.sql, Err: TranslateError(err)}
	}
	return nil
}
