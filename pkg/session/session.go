// Package session tracks loaded entities and turns Save calls into INSERTs or
// minimal UPDATEs. It keeps an identity map of column snapshots keyed by
// table and primary key; an UPDATE sets only the columns that differ from the
// snapshot, and a save that changes nothing sends no SQL.
//
// Deletes run the cascade declared on hasMany/hasOne relationships inside one
// transaction, children first.
package session

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// maxCascadeDepth bounds recursive cascades through cyclic mappings.
const maxCascadeDepth = 16

// Defaulter is implemented by entities that fill in default values before
// they are validated and written.
type Defaulter interface {
	ApplyDefaults()
}

// Validator is implemented by entities with checks beyond column constraints.
type Validator interface {
	Validate() error
}

// Session is a unit of work over a builder.DB. It is safe for concurrent
// use; concurrent saves of the same entity are last-writer-wins.
type Session struct {
	db    *builder.DB
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	snapshots map[entityKey]snapshot

	// Set on transaction sessions: the snapshots written or removed (nil)
	// since the transaction began, and whether Clear was called.
	delta   map[entityKey]snapshot
	cleared bool
}

type entityKey struct {
	table string
	id    any
}

// snapshot holds normalized column values as last read or written.
type snapshot map[string]any

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock sets the clock used for auto timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator sets the generator for generator(uuid) keys.
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) { s.newID = gen }
}

// New creates a Session.
func New(db *builder.DB, opts ...Option) *Session {
	s := &Session{
		db:        db,
		log:       db.Logger(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		snapshots: make(map[entityKey]snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the builder DB the session runs on.
func (s *Session) DB() *builder.DB {
	return s.db
}

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger {
	return s.log
}

// timestamp returns the current time in UTC at the database's microsecond
// precision, so a stamped value survives a round trip unchanged.
func (s *Session) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Transaction runs fn with a session bound to a transaction. Snapshots
// written or removed inside fn reach the parent only when the transaction
// commits, and only for the entities fn touched. Nested calls join the outer
// transaction.
func (s *Session) Transaction(ctx context.Context, fn func(tx *Session) error) error {
	if s.db.InTx() {
		return fn(s)
	}
	var child *Session
	err := s.db.RunInTx(ctx, func(tx *builder.DB) error {
		child = s.child(tx)
		return fn(child)
	})
	if err != nil {
		return err
	}
	s.merge(child)
	return nil
}

// child returns a transaction session starting from a copy of the
// identity map.
func (s *Session) child(db *builder.DB) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps := make(map[entityKey]snapshot, len(s.snapshots))
	for k, v := range s.snapshots {
		snaps[k] = v
	}
	return &Session{
		db:        db,
		log:       s.log,
		now:       s.now,
		newID:     s.newID,
		snapshots: snaps,
		delta:     make(map[entityKey]snapshot),
	}
}

// merge applies the changes a committed child recorded.
func (s *Session) merge(child *Session) {
	child.mu.Lock()
	defer child.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if child.cleared {
		s.snapshots = make(map[entityKey]snapshot)
	}
	for k, snap := range child.delta {
		if snap == nil {
			delete(s.snapshots, k)
		} else {
			s.snapshots[k] = snap
		}
	}
}

// Clear detaches every tracked entity.
func (s *Session) Clear() {
	s.mu.Lock()
	s.snapshots = make(map[entityKey]snapshot)
	if s.delta != nil {
		s.delta = make(map[entityKey]snapshot)
		s.cleared = true
	}
	s.mu.Unlock()
}

// Tracked returns the number of entities in the identity map.
func (s *Session) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func (s *Session) snapshot(key entityKey) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[key]
	return snap, ok
}

func (s *Session) remember(key entityKey, snap snapshot) {
	s.mu.Lock()
	s.snapshots[key] = snap
	if s.delta != nil {
		s.delta[key] = snap
	}
	s.mu.Unlock()
}

func (s *Session) forget(key entityKey) {
	s.mu.Lock()
	delete(s.snapshots, key)
	if s.delta != nil {
		s.delta[key] = nil
	}
	s.mu.Unlock()
}

// Track records the current state of entity as its clean snapshot.
func Track[T any](s *Session, entity *T) error {
	table, err := tableOf[T]()
	if err != nil {
		return err
	}
	key, err := keyFor(table, entity)
	if err != nil {
		return err
	}
	snap, err := takeSnapshot(table, entity)
	if err != nil {
		return err
	}
	s.remember(key, snap)
	return nil
}

// Detach removes entity from the identity map.
func Detach[T any](s *Session, entity *T) error {
	table, err := tableOf[T]()
	if err != nil {
		return err
	}
	key, err := keyFor(table, entity)
	if err != nil {
		return err
	}
	s.forget(key)
	return nil
}

// IsTracked reports whether entity has a snapshot.
func IsTracked[T any](s *Session, entity *T) bool {
	table, err := tableOf[T]()
	if err != nil {
		return false
	}
	key, err := keyFor(table, entity)
	if err != nil {
		return false
	}
	_, ok := s.snapshot(key)
	return ok
}

func tableOf[T any]() (*schema.TableMetadata, error) {
	var model T
	return registry.GetOrRegister(model)
}

func keyFor(table *schema.TableMetadata, entity any) (entityKey, error) {
	id, zero, err := table.PrimaryKeyValue(entity)
	if err != nil {
		return entityKey{}, fmt.Errorf("%w: %v", runtime.ErrNoPrimaryKey, err)
	}
	if zero {
		return entityKey{}, fmt.Errorf("%w: %s has no primary key value", runtime.ErrInvalidModel, table.Name)
	}
	return entityKey{table: table.Name, id: id}, nil
}

func takeSnapshot(table *schema.TableMetadata, entity any) (snapshot, error) {
	values, err := table.Values(entity)
	if err != nil {
		return nil, err
	}
	snap := make(snapshot, len(values))
	for col, v := range values {
		snap[col] = normalize(v)
	}
	return snap, nil
}

// normalize dereferences pointers and copies byte slices so later mutation
// of the entity does not leak into the snapshot.
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	if b, ok := v.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return v
}

func sameValue(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// Changed returns the updatable columns of entity that differ from snap, in
// column order. Auto timestamps and the primary key are never reported.
func Changed(table *schema.TableMetadata, snap map[string]any, entity any) ([]string, error) {
	current, err := takeSnapshot(table, entity)
	if err != nil {
		return nil, err
	}
	var changed []string
	for i := range table.Columns {
		col := &table.Columns[i]
		if !col.Updatable() || col.AutoUpdateTime || table.IsPrimaryKey(col.Name) {
			continue
		}
		if !sameValue(current[col.Name], snap[col.Name]) {
			changed = append(changed, col.Name)
		}
	}
	return changed, nil
}

// copyColumns copies mapped column fields from src into dst, leaving
// relationship fields untouched.
func copyColumns(table *schema.TableMetadata, dst, src any) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.Indirect(reflect.ValueOf(src))
	for _, col := range table.Columns {
		dv.FieldByName(col.GoField).Set(sv.FieldByName(col.GoField))
	}
}

func rowToMap(rows pgx.Rows) ([]map[string]any, error) {
	return pgx.CollectRows(rows, pgx.RowToMap)
}
