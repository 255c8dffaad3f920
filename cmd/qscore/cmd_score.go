package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/surveyeval/qscore/internal/pipeline"
	"github.com/surveyeval/qscore/internal/spinner"
)

const defaultScoreOutput = "scoring_results.json"

var (
	scoreOutputPath string
	scoreRawDir     string
	scoreNoRaw      bool
	scoreStrict     bool
)

func newScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <document>",
		Short: "Score the questions in one survey document",
		Long: `Score every question in a survey document.

The document (.docx, .odt, .pdf, .md or .txt) is sent to the configured model
in a single call. The CSV reply is parsed row by row; rows that do not match the
expected layout are dropped and reported. Scores are then averaged per section.

The result is written as JSON to --output (scoring_results.json by default).
The cleaned reply is kept as scoring_results_<name>.csv in the --raw-csv
directory unless --no-raw is given.`,
		Args: cobra.ExactArgs(1),
		RunE: scoreCommandE,
	}

	cmd.Flags().StringVarP(&scoreOutputPath, "output", "o", defaultScoreOutput, "Write the scoring result as JSON to this file")
	cmd.Flags().StringVar(&scoreRawDir, "raw-csv", ".", "Directory for the raw reply file")
	cmd.Flags().BoolVar(&scoreNoRaw, "no-raw", false, "Do not write the raw reply file")
	cmd.Flags().BoolVar(&scoreStrict, "strict", false, "Exit 1 when reply rows were dropped")
	cmd.MarkFlagsMutuallyExclusive("raw-csv", "no-raw")

	return cmd
}

func scoreCommandE(cmd *cobra.Command, args []string) error {
	docPath := args[0]
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := setupApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	rawDir := scoreRawDir
	if scoreNoRaw {
		rawDir = ""
	}

	scorer, err := a.newScorer(scorerOptions{rawDir: rawDir})
	if err != nil {
		return err
	}

	spin := spinner.Start(cmd.ErrOrStderr(), fmt.Sprintf("Scoring %s with %s...", filepath.Base(docPath), scorer.Model()))
	result, err := scorer.ScoreDocument(ctx, docPath)
	spin.Stop()
	if err != nil {
		return err
	}

	printScoreSummary(out, result, scorer.Attributes())

	if rawDir != "" {
		stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
		fmt.Fprintf(out, "\nRaw reply saved to: %s\n", filepath.Join(rawDir, pipeline.RawFilePrefix+stem+".csv"))
	}
	if err := saveJSON(result, scoreOutputPath); err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	fmt.Fprintf(out, "Results saved to: %s\n", scoreOutputPath)

	if scoreStrict && len(result.ParseErrors) > 0 {
		return &TestFailureError{
			Message: fmt.Sprintf("%d reply row(s) dropped while scoring %s", len(result.ParseErrors), docPath),
		}
	}
	return nil
}

func saveJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
