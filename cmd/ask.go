package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/courselens/courselens/internal/app"
	"github.com/courselens/courselens/internal/config"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the ingested course materials",
	Long: `Ask a question about the ingested course materials.

Pass --session with the ID printed by a previous ask to continue that
conversation; recent exchanges are carried as context.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "session ID to continue a conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPIKey(); err != nil {
		return err
	}

	sessionID := uuid.Nil
	if askSessionID != "" {
		sessionID, err = uuid.Parse(askSessionID)
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", askSessionID, err)
		}
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")
	answer, err := a.Agent.Answer(ctx, question, sessionID)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range answer.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
	fmt.Println()
	fmt.Printf("Session: %s\n", answer.SessionID)
	return nil
}
