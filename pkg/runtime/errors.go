// Package runtime provides the database handle, configuration, logging and
// error taxonomy shared by the persistence packages.
package runtime

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidModel is returned when an invalid model is provided.
	ErrInvalidModel = errors.New("invalid model")

	// ErrNoPrimaryKey is returned when a table has no single-column primary key.
	ErrNoPrimaryKey = errors.New("no primary key defined")

	// ErrNonUniqueResult is returned when a single-result query yields several rows.
	ErrNonUniqueResult = errors.New("query did not return a unique result")

	// ErrTransactionClosed is returned when operating on a closed transaction.
	ErrTransactionClosed = errors.New("transaction already closed")
)

// ConstraintKind classifies a constraint violation.
type ConstraintKind string

const (
	NotNullViolation    ConstraintKind = "not_null"
	LengthViolation     ConstraintKind = "length"
	EnumViolation       ConstraintKind = "enum"
	UniqueViolation     ConstraintKind = "unique"
	ForeignKeyViolation ConstraintKind = "foreign_key"
	CheckViolation      ConstraintKind = "check"
)

// PostgreSQL SQLSTATE codes mapped onto ConstraintKind.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgStringTruncation    = "22001"
)

// ConstraintError reports a violated column or table constraint. It is raised
// both by in-process validation and by translating database errors.
type ConstraintError struct {
	Kind       ConstraintKind
	Table      string
	Column     string
	Constraint string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	target := e.Table
	if e.Column != "" {
		target += "." + e.Column
	}
	if e.Constraint != "" {
		target += " (" + e.Constraint + ")"
	}
	return fmt.Sprintf("%s constraint violation on %s: %s", e.Kind, target, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// NewValidationFailure builds a ConstraintError for a violation detected
// before any SQL is sent.
func NewValidationFailure(kind ConstraintKind, table, column, message string) *ConstraintError {
	return &ConstraintError{Kind: kind, Table: table, Column: column, Message: message}
}

// CascadeError reports a failure while removing dependent rows ahead of a
// parent delete. The surrounding transaction is always rolled back.
type CascadeError struct {
	Parent string
	Child  string
	Err    error
}

// Error implements the error interface.
func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade delete %s -> %s failed: %v", e.Parent, e.Child, e.Err)
}

// Unwrap returns the underlying error.
func (e *CascadeError) Unwrap() error {
	return e.Err
}

// QueryError represents a query execution error.
type QueryError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// TranslateError maps driver errors onto the package taxonomy. pgx.ErrNoRows
// becomes ErrNotFound and integrity violations become *ConstraintError.
// Other errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var kind ConstraintKind
	switch pgErr.Code {
	case pgNotNullViolation:
		kind = NotNullViolation
	case pgStringTruncation:
		kind = LengthViolation
	case pgUniqueViolation:
		kind = UniqueViolation
	case pgForeignKeyViolation:
		kind = ForeignKeyViolation
	case pgCheckViolation:
		kind = CheckViolation
	default:
		return err
	}
	return &ConstraintError{
		Kind:       kind,
		Table:      pgErr.TableName,
		Column:     pgErr.ColumnName,
		Constraint: pgErr.ConstraintName,
		Message:    pgErr.Message,
		Err:        err,
	}
}

// IsConstraintViolation reports whether err carries a ConstraintError of the
// given kind. An empty kind matches any constraint violation.
func IsConstraintViolation(err error, kind ConstraintKind) bool {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	return kind == "" || ce.Kind == kind
}
