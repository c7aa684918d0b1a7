// Package database wires configuration, logging, the connection pool, the
// model registry and the repositories together.
package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/internal/repository"
	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/migration"
	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

// Repositories bundles one repository per entity over a shared session.
type Repositories struct {
	Products  *repository.ProductRepository
	Students  *repository.StudentRepository
	Users     *repository.UserRepository
	Goods     *repository.GoodsRepository
	Purchases *repository.PurchaseRepository
	Groups    *repository.GroupRepository
	Idols     *repository.IdolRepository
}

// NewRepositories creates every repository over s.
func NewRepositories(s *session.Session) *Repositories {
	return &Repositories{
		Products:  repository.NewProductRepository(s),
		Students:  repository.NewStudentRepository(s),
		Users:     repository.NewUserRepository(s),
		Goods:     repository.NewGoodsRepository(s),
		Purchases: repository.NewPurchaseRepository(s),
		Groups:    repository.NewGroupRepository(s),
		Idols:     repository.NewIdolRepository(s),
	}
}

// App is a connected database with a session and repositories.
type App struct {
	Log     *zap.Logger
	DB      *runtime.DB
	Builder *builder.DB
	Session *session.Session
	Repos   *Repositories
}

// Connect establishes a connection to the database and registers all
// models.
func Connect(ctx context.Context, cfg *runtime.Config, log *zap.Logger) (*App, error) {
	if err := models.RegisterAll(); err != nil {
		return nil, err
	}
	db, err := runtime.Connect(ctx, cfg.Database,
		runtime.WithLogger(log),
		runtime.WithSQLLogging(cfg.Log.ShowSQL),
	)
	if err != nil {
		return nil, err
	}
	return NewApp(db), nil
}

// NewApp wraps an open runtime DB.
func NewApp(db *runtime.DB) *App {
	b := builder.New(db)
	s := session.New(b)
	return &App{
		Log:     db.Logger(),
		DB:      db,
		Builder: b,
		Session: s,
		Repos:   NewRepositories(s),
	}
}

// Close closes the connection pool.
func (a *App) Close() {
	a.DB.Close()
}

// Schema plans the DDL for every registered model.
func Schema() (migration.Migration, error) {
	if err := models.RegisterAll(); err != nil {
		return migration.Migration{}, err
	}
	var tables []*schema.TableMetadata
	for _, m := range models.All() {
		t, err := registry.GetOrRegister(m)
		if err != nil {
			return migration.Migration{}, err
		}
		tables = append(tables, t)
	}
	return migration.NewPlanner().Plan("pebble_study_schema", tables)
}

// Migrate creates any missing tables.
func (a *App) Migrate(ctx context.Context) error {
	m, err := Schema()
	if err != nil {
		return fmt.Errorf("plan schema: %w", err)
	}
	_, err = migration.NewExecutor(a.DB).Apply(ctx, m)
	return err
}

// Drop drops every managed table.
func (a *App) Drop(ctx context.Context) error {
	m, err := Schema()
	if err != nil {
		return fmt.Errorf("plan schema: %w", err)
	}
	return migration.NewExecutor(a.DB).Rollback(ctx, m)
}
