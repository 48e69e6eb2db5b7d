// Package cmd implements the courselens command line interface.
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "courselens",
	Short: "Courselens answers questions about course materials",
	Long: `Courselens ingests course transcripts into a local vector index and
answers questions about them, retrieving relevant lesson content on demand.

Typical usage:

  export GEMINI_API_KEY=your-api-key
  courselens ingest ./docs
  courselens ask "What does lesson 2 of the MCP course cover?"`,
	SilenceUsage: true,
}

// Execute runs the root command. The command context cancels on SIGINT or
// SIGTERM so in-flight model and embedding calls stop promptly.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
