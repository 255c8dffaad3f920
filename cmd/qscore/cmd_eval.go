package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/surveyeval/qscore/internal/dataset"
	"github.com/surveyeval/qscore/internal/harness"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/reporting"
	"github.com/surveyeval/qscore/internal/spinner"
)

var (
	evalOutputPath string
	evalCSVPath    string
	evalJUnitPath  string
	evalFormat     string
	evalInterpret  bool
	evalCache      bool
	evalStrict     bool
	evalRawDir     string
	evalCases      []string
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <dataset>",
		Short: "Evaluate scoring quality against a labelled dataset",
		Long: `Run every document in a dataset through the scoring pipeline and compare
the output with its expected questions and scores.

Per-document metrics (extraction accuracy, per-attribute MAE and within-1
rates, section detection) are averaged across documents and checked against
thresholds. Documents that fail to load or whose model call fails are reported
as errors and left out of the averages.

Exit status is 0 when every threshold is met, 1 when one is missed and 2 on
configuration or runtime errors.`,
		Args: cobra.ExactArgs(1),
		RunE: evalCommandE,
	}

	cmd.Flags().StringVarP(&evalOutputPath, "output", "o", "", "Write the eval outcome as JSON to this file")
	cmd.Flags().StringVar(&evalCSVPath, "csv", "", "Write one row per document to this CSV file")
	cmd.Flags().StringVar(&evalJUnitPath, "junit", "", "Write JUnit XML to this file")
	cmd.Flags().StringVar(&evalFormat, "format", "default", "Output format: default, github-comment")
	cmd.Flags().BoolVar(&evalInterpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().BoolVar(&evalCache, "cache", false, "Reuse cached model replies for identical prompts")
	cmd.Flags().BoolVar(&evalStrict, "strict", false, "Fail the run when any document errors")
	cmd.Flags().StringVar(&evalRawDir, "raw-dir", "", "Directory for raw reply files")
	cmd.Flags().StringArrayVar(&evalCases, "case", nil, "Filter cases by ID glob pattern (can be repeated)")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	if evalFormat != "default" && evalFormat != "github-comment" {
		return fmt.Errorf("unknown output format: %s (supported: default, github-comment)", evalFormat)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := setupApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	ds, err := dataset.Load(args[0], a.cfg.AttributeSet())
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	runID := uuid.NewString()
	scorer, err := a.newScorer(scorerOptions{
		attrs:    ds.Attributes,
		rawDir:   evalRawDir,
		runID:    runID,
		useCache: evalCache,
	})
	if err != nil {
		return err
	}

	runner := harness.New(scorer,
		harness.WithLogger(a.logger),
		harness.WithTracer(a.tel.Tracer()),
		harness.WithCaseFilters(evalCases...),
		harness.WithThresholds(a.cfg.Thresholds),
		harness.WithStrict(evalStrict),
		harness.WithRunID(runID),
	)

	progress := &progressPrinter{out: out, status: cmd.ErrOrStderr()}
	if evalFormat == "default" {
		runner.OnProgress(progress.listen)
		fmt.Fprintf(out, "Running eval: %s\n", ds.Name)
		fmt.Fprintf(out, "Provider: %s\n", scorer.Provider())
		fmt.Fprintf(out, "Model: %s\n", scorer.Model())
		fmt.Fprintf(out, "Attributes: %s\n\n", strings.Join(ds.Attributes.Keys(), ", "))
	}

	outcome, err := runner.Run(ctx, ds)
	progress.stop()
	if err != nil {
		return fmt.Errorf("eval failed: %w", err)
	}

	switch evalFormat {
	case "github-comment":
		fmt.Fprint(out, FormatGitHubComment(outcome))
	default:
		printEvalSummary(out, outcome)
		if evalInterpret {
			fmt.Fprintln(out)
			fmt.Fprint(out, reporting.FormatSummaryReport(outcome))
		}
	}

	if err := writeEvalArtifacts(out, outcome); err != nil {
		return err
	}

	if !outcome.Passed {
		return &TestFailureError{Message: failureMessage(outcome)}
	}
	return nil
}

func writeEvalArtifacts(out io.Writer, outcome *models.EvalOutcome) error {
	if evalOutputPath != "" {
		if err := saveJSON(outcome, evalOutputPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(out, "\nResults saved to: %s\n", evalOutputPath)
	}
	if evalCSVPath != "" {
		if err := reporting.WriteCSVFile(outcome, evalCSVPath); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		fmt.Fprintf(out, "CSV saved to: %s\n", evalCSVPath)
	}
	if evalJUnitPath != "" {
		if err := reporting.WriteJUnitXML(outcome, evalJUnitPath); err != nil {
			return fmt.Errorf("failed to write JUnit XML: %w", err)
		}
		fmt.Fprintf(out, "JUnit XML saved to: %s\n", evalJUnitPath)
	}
	return nil
}

func failureMessage(outcome *models.EvalOutcome) string {
	d := outcome.Digest
	if d.Passed+d.Failed == 0 {
		return fmt.Sprintf("eval completed with no evaluable documents (%d error(s))", d.Errors)
	}
	missed := 0
	for _, c := range outcome.Checks {
		if c.Status == models.StatusFailed {
			missed++
		}
	}
	return fmt.Sprintf("eval completed with %d missed threshold(s), %d failed and %d error(s)", missed, d.Failed, d.Errors)
}

// progressPrinter shows a spinner while a document is scored and a status
// line once it completes.
type progressPrinter struct {
	out    io.Writer
	status io.Writer
	spin   *spinner.Spinner
}

func (p *progressPrinter) listen(event harness.ProgressEvent) {
	switch event.EventType {
	case harness.EventRunStart:
		fmt.Fprintf(p.out, "Evaluating %d document(s)...\n\n", event.TotalCases)
	case harness.EventDocumentStart:
		p.stop()
		p.spin = spinner.Start(p.status, fmt.Sprintf("[%d/%d] scoring %s", event.CaseNum, event.TotalCases, event.CaseID))
	case harness.EventDocumentComplete:
		p.stop()
		icon := "✓"
		if event.Status != models.StatusPassed {
			icon = "✗"
		}
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Fprintf(p.out, "%s [%d/%d] %s [%s] (%s)\n", icon, event.CaseNum, event.TotalCases, event.CaseID, event.Status, formatDuration(duration))
	case harness.EventRunComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Fprintf(p.out, "\nEval completed in %s\n\n", formatDuration(duration))
	}
}

func (p *progressPrinter) stop() {
	if p.spin != nil {
		p.spin.Stop()
		p.spin = nil
	}
}
