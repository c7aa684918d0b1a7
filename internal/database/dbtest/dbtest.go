//go:build integration

// Package dbtest starts a throwaway PostgreSQL container with the schema
// applied, for integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/marshallshelly/pebble-study/internal/database"
	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

// Start runs PostgreSQL, migrates the schema and returns a connected App.
// The container is terminated when the test ends.
func Start(t *testing.T) *database.App {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("study"),
		postgres.WithUsername("study"),
		postgres.WithPassword("study"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres")
	t.Cleanup(func() {
		if err := pg.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	url, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, models.RegisterAll())
	db, err := runtime.ConnectWithURL(ctx, url,
		runtime.WithLogger(zaptest.NewLogger(t)),
		runtime.WithSQLLogging(true),
	)
	require.NoError(t, err, "connect")
	t.Cleanup(db.Close)

	app := database.NewApp(db)
	require.NoError(t, app.Migrate(ctx), "migrate")
	return app
}

// Reset empties every table, restarts identities and clears the session.
func Reset(t *testing.T, app *database.App) {
	t.Helper()
	_, err := app.DB.Exec(context.Background(),
		`TRUNCATE tbl_purchase, tbl_user, tbl_goods, tbl_idol, tbl_group, tbl_product, tbl_student RESTART IDENTITY`)
	require.NoError(t, err)
	app.Session.Clear()
}

// Seed resets the database and loads the default fixtures.
func Seed(t *testing.T, app *database.App) {
	t.Helper()
	Reset(t, app)
	f, err := database.DefaultFixtures()
	require.NoError(t, err)
	_, err = app.Seed(context.Background(), f)
	require.NoError(t, err)
}
