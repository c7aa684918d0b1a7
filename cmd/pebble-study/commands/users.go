package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/cmd/pebble-study/tui"
	"github.com/marshallshelly/pebble-study/internal/database"
)

var deleteYes bool

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage shop users",
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user together with its purchases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", args[0], err)
		}
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			user, err := app.Repos.Users.FindWithPurchases(ctx, id)
			if err != nil {
				return err
			}
			if user == nil {
				output.Warning("User %d does not exist", id)
				return nil
			}
			if !deleteYes {
				ok, err := tui.Confirm("Delete user",
					fmt.Sprintf("Delete %s and %d purchase(s)?", user.Name, len(user.Purchases)))
				if err != nil {
					return err
				}
				if !ok {
					output.Warning("Cancelled")
					return nil
				}
			}
			if err := app.Repos.Users.Delete(ctx, user); err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(map[string]any{"deleted": id, "purchases": len(user.Purchases)})
			}
			output.Success("Deleted user %d and %d purchase(s)", id, len(user.Purchases))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	usersDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}
