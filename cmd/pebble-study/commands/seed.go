package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/internal/database"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample data",
	Long:  "Load the embedded sample data, or a YAML fixture file given with --file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fixtures, err := database.DefaultFixtures()
		if seedFile != "" {
			fixtures, err = database.LoadFixtures(seedFile)
		}
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			res, err := app.Seed(ctx, fixtures)
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(res)
			}
			output.Success("Seeded %d products, %d students, %d users, %d goods, %d purchases, %d groups, %d idols",
				res.Products, res.Students, res.Users, res.Goods, res.Purchases, res.Groups, res.Idols)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML fixture file")
}
