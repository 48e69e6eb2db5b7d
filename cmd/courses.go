package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courselens/courselens/internal/app"
	"github.com/courselens/courselens/internal/config"
)

var coursesCmd = &cobra.Command{
	Use:   "courses [course name]",
	Short: "Show index statistics or one course's outline",
	Long: `Without arguments, show how many courses and chunks are indexed.
With a course name (partial titles work), show that course's outline.`,
	RunE: runCourses,
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}

func runCourses(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPIKey(); err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		fmt.Printf("Courses indexed: %d\n", a.Store.CourseCount())
		fmt.Printf("Chunks indexed:  %d\n", a.Store.ChunkCount())
		return nil
	}

	name := strings.Join(args, " ")
	outline, err := a.Store.CourseOutline(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Printf("Link: %s\n", outline.Link)
	}
	if outline.Instructor != "" {
		fmt.Printf("Instructor: %s\n", outline.Instructor)
	}
	fmt.Printf("Lessons (%d):\n", len(outline.Lessons))
	for _, l := range outline.Lessons {
		fmt.Printf("  %d. %s\n", l.Number, l.Title)
	}
	return nil
}
