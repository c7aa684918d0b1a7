package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/cmd/pebble-study/tui"
	"github.com/marshallshelly/pebble-study/internal/database"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

var (
	schemaApply bool
	schemaDrop  bool
	schemaYes   bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the table DDL",
	Long: `Print the CREATE TABLE statements generated from the models.

With --apply the statements run in one transaction and are recorded in
schema_migrations. With --drop every table is dropped.`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaApply, "apply", false, "Create the tables")
	schemaCmd.Flags().BoolVar(&schemaDrop, "drop", false, "Drop the tables")
	schemaCmd.Flags().BoolVar(&schemaYes, "yes", false, "Do not ask before dropping")
	schemaCmd.MarkFlagsMutuallyExclusive("apply", "drop")
}

func runSchema(cmd *cobra.Command, args []string) error {
	m, err := database.Schema()
	if err != nil {
		return err
	}
	if !schemaApply && !schemaDrop {
		if jsonOutput {
			return output.JSON(m)
		}
		output.Section(fmt.Sprintf("%s (%s)", m.Name, m.Version))
		fmt.Print(m.UpSQL)
		return nil
	}

	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := runtime.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	app, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer app.Close()

	if schemaDrop {
		return dropSchema(ctx, app)
	}
	if err := app.Migrate(ctx); err != nil {
		return err
	}
	output.Success("Schema %s is up to date", m.Version)
	return nil
}

func dropSchema(ctx context.Context, app *database.App) error {
	if !schemaYes {
		ok, err := tui.Confirm("Drop schema", "Drop every pebble-study table and its data?")
		if err != nil {
			return err
		}
		if !ok {
			output.Warning("Cancelled")
			return nil
		}
	}
	if err := app.Drop(ctx); err != nil {
		return err
	}
	output.Success("Schema dropped")
	return nil
}
