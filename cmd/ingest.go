package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courselens/courselens/internal/app"
	"github.com/courselens/courselens/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Load course transcripts into the index",
	Long: `Load course transcript documents (.txt) from a directory into the
vector index. Courses already present are skipped, so re-running after
adding new documents is safe.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPIKey(); err != nil {
		return err
	}

	dir := cfg.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Ingestor.IngestDirectory(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("Courses added:   %d\n", res.CoursesAdded)
	fmt.Printf("Courses skipped: %d\n", res.CoursesSkipped)
	fmt.Printf("Chunks indexed:  %d\n", res.ChunksAdded)
	if len(res.Failed) > 0 {
		fmt.Printf("Failed documents (%d):\n", len(res.Failed))
		for _, name := range res.Failed {
			fmt.Printf("  - %s\n", name)
		}
	}
	return nil
}
