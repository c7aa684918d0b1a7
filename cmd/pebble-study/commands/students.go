package commands

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-study/cmd/pebble-study/output"
	"github.com/marshallshelly/pebble-study/internal/database"
	"github.com/marshallshelly/pebble-study/internal/models"
)

var (
	studentName          string
	studentCity          string
	studentMajor         string
	studentMajorContains string
	studentMajorPrefix   string
	studentMajorSuffix   string
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Query students",
}

var studentsFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find students by name, city and major, or by part of the major",
	Example: `  pebble-study students find --name 쿠로미
  pebble-study students find --city 서울시 --major 컴퓨터공학
  pebble-study students find --major-contains Bio`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *database.App) error {
			students, err := findStudents(ctx, app)
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(students)
			}
			output.Table([]string{"ID", "NAME", "CITY", "MAJOR"},
				lo.Map(students, func(s models.Student, _ int) []string {
					return []string{s.ID, s.Name, s.City, s.Major}
				}))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsFindCmd)
	f := studentsFindCmd.Flags()
	f.StringVar(&studentName, "name", "", "Exact name")
	f.StringVar(&studentCity, "city", "", "Exact city, used with --major")
	f.StringVar(&studentMajor, "major", "", "Exact major, used with --city")
	f.StringVar(&studentMajorContains, "major-contains", "", "Major contains")
	f.StringVar(&studentMajorPrefix, "major-prefix", "", "Major starts with")
	f.StringVar(&studentMajorSuffix, "major-suffix", "", "Major ends with")
	studentsFindCmd.MarkFlagsRequiredTogether("city", "major")
	studentsFindCmd.MarkFlagsOneRequired("name", "city", "major-contains", "major-prefix", "major-suffix")
	studentsFindCmd.MarkFlagsMutuallyExclusive("name", "city", "major-contains", "major-prefix", "major-suffix")
}

func findStudents(ctx context.Context, app *database.App) ([]models.Student, error) {
	repo := app.Repos.Students
	switch {
	case studentName != "":
		return repo.FindByName(ctx, studentName)
	case studentCity != "":
		return repo.FindByCityAndMajor(ctx, studentCity, studentMajor)
	case studentMajorContains != "":
		return repo.FindByMajorContaining(ctx, studentMajorContains)
	case studentMajorPrefix != "":
		return repo.FindByMajorStartingWith(ctx, studentMajorPrefix)
	case studentMajorSuffix != "":
		return repo.FindByMajorEndingWith(ctx, studentMajorSuffix)
	}
	return nil, errors.New("no filter given")
}
