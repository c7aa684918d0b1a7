package commands

import (
	"context"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/internal/database"
	"github.com/marshallshelly/pebble-study/internal/models"
)

var (
	productCategory string
	productPrice    int
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List and add products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products, optionally of one category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			var (
				products []models.Product
				err      error
			)
			if productCategory != "" {
				c, perr := models.ParseCategory(productCategory)
				if perr != nil {
					return perr
				}
				products, err = app.Repos.Products.FindByCategory(ctx, c)
			} else {
				products, err = app.Repos.Products.FindAll(ctx)
			}
			if err != nil {
				return err
			}
			return printProducts(products)
		})
	},
}

var productsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a product; price and category default to 10000 and FOOD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var category models.Category
		if productCategory != "" {
			c, err := models.ParseCategory(productCategory)
			if err != nil {
				return err
			}
			category = c
		}
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			p, err := app.Repos.Products.Save(ctx, models.NewProduct(args[0], productPrice, category))
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(p)
			}
			output.Success("Saved %s", p)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd, productsAddCmd)
	productsCmd.PersistentFlags().StringVar(&productCategory, "category", "", "FOOD, FASHION or ELECTRONIC")
	productsAddCmd.Flags().IntVar(&productPrice, "price", 0, "Price (0 means default)")
}

func printProducts(products []models.Product) error {
	if jsonOutput {
		return output.JSON(products)
	}
	output.Table([]string{"ID", "NAME", "PRICE", "CATEGORY", "CREATED"},
		lo.Map(products, func(p models.Product, _ int) []string {
			return []string{
				strconv.FormatInt(p.ID, 10), p.Name, strconv.Itoa(p.Price),
				p.Category.String(), p.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			}
		}))
	return nil
}
