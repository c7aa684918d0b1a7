// Package migration generates table DDL from registered models and applies
// it, tracking what ran in a schema_migrations table.
package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Migration is a generated pair of up and down scripts.
type Migration struct {
	Version string // content hash of UpSQL
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the migration failed to apply.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a migration in the tracking table.
type MigrationRecord struct {
	Version   string
	Name      string
	Status    MigrationStatus
	AppliedAt *time.Time
	Error     *string
}

// Version derives a stable 14-character version from a script, so the
// same schema always maps to the same record.
func Version(upSQL string) string {
	sum := sha256.Sum256([]byte(upSQL))
	return hex.EncodeToString(sum[:])[:14]
}
