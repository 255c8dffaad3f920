package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	debugLogging bool
	configPath   string
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qscore",
		Short: "qscore - score survey questions with an LLM",
		Long: `qscore extracts the questions from a survey document, asks a hosted model
to rate each one on clarity, specificity, bias and actionability, and
averages the ratings per section.

The eval command replays the same pipeline over a labelled dataset and
checks the output against quality thresholds, for prompt tuning.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./.qscore.yaml when present)")

	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCommand().ExecuteContext(ctx)
}
