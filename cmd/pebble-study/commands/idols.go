package commands

import (
	"context"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/cmd/pebble-study/tui"
	"github.com/marshallshelly/pebble-study/internal/database"
	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
)

var (
	idolPage  int
	idolSize  int
	idolSort  string
	idolGroup string
)

var idolsCmd = &cobra.Command{
	Use:   "idols",
	Short: "Page through idols",
}

var idolsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "Print one page of idols",
	Example: "  pebble-study idols list --page 0 --size 2 --sort age,desc",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := idolRequest()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			var page *builder.Page[models.Idol]
			if idolGroup != "" {
				page, err = app.Repos.Idols.FindByGroupName(ctx, idolGroup, req)
			} else {
				page, err = app.Repos.Idols.FindAllByPaging(ctx, req)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(page)
			}
			output.Table([]string{"ID", "NAME", "AGE"},
				lo.Map(page.Content, func(i models.Idol, _ int) []string {
					return []string{strconv.FormatInt(i.ID, 10), i.IdolName, strconv.Itoa(i.Age)}
				}))
			output.Muted("page %d of %d, %d idols", page.Number, page.TotalPages(), page.TotalElements)
			return nil
		})
	},
}

var browseCmd = &cobra.Command{
	Use:       "browse idols",
	Short:     "Browse idols interactively",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"idols"},
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := idolRequest()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			return tui.Browse(app.Repos.Idols.FindAllByPaging, req)
		})
	},
}

func init() {
	rootCmd.AddCommand(idolsCmd, browseCmd)
	idolsCmd.AddCommand(idolsListCmd)
	for _, c := range []*cobra.Command{idolsListCmd, browseCmd} {
		c.Flags().IntVar(&idolPage, "page", 0, "Page index, starting at 0")
		c.Flags().IntVar(&idolSize, "size", 5, "Page size")
		c.Flags().StringVar(&idolSort, "sort", "age,desc", "Sort key and direction, e.g. idol_name,asc")
	}
	idolsListCmd.Flags().StringVar(&idolGroup, "group", "", "Only idols of this group")
}

func idolRequest() (builder.Pageable, error) {
	order, err := builder.ParseSort(idolSort)
	if err != nil {
		return builder.Pageable{}, err
	}
	req := builder.PageRequest(idolPage, idolSize, order)
	return req, req.Validate()
}
