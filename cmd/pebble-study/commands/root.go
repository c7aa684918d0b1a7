package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/internal/database"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

var (
	// Global flags
	configPath string
	dbURL      string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pebble-study",
	Short: "Persistence study: products, students, shop purchases and idols on PostgreSQL",
	Long: `pebble-study exercises a small data-access layer over PostgreSQL.

Features:
  - Generic repositories with save, find, count and delete
  - Derived finders and native queries with named and positional parameters
  - 0-based paging and sorting
  - Cascade deletes inside one transaction
  - Interactive idol browser`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./pebble-study.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with SQL logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// loadConfig applies the global flags on top of the file and environment.
func loadConfig() (*runtime.Config, error) {
	cfg, err := runtime.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.ShowSQL = true
	}
	return cfg, nil
}

// openApp connects and makes sure the schema exists.
func openApp(ctx context.Context) (*database.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := runtime.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	app, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := app.Migrate(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// withApp runs fn with a connected app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *database.App) error) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	defer func() { _ = app.Log.Sync() }()
	return fn(ctx, app)
}
