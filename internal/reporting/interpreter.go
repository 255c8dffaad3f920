package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/surveyeval/qscore/internal/evaluation"
	"github.com/surveyeval/qscore/internal/models"
)

// InterpretAccuracy returns a plain-language label for a fraction in [0, 1]
// such as extraction_accuracy or a within_1 rate.
func InterpretAccuracy(v float64) string {
	pct := v * 100
	switch {
	case pct >= 95:
		return "Excellent (>=95%)"
	case pct >= 85:
		return "Good (85-95%)"
	case pct >= 70:
		return "Needs Work (70-85%)"
	default:
		return "Poor (<70%)"
	}
}

// InterpretMAE explains a mean absolute error on the 1-5 score scale.
func InterpretMAE(mae float64) string {
	switch {
	case mae <= 0.25:
		return "Near-identical scores"
	case mae <= 0.5:
		return "Close agreement (within half a point)"
	case mae <= 1.0:
		return "Usually within one point"
	default:
		return "Large disagreement (more than one point off on average)"
	}
}

// InterpretPassRate explains the share of evaluated documents that passed.
func InterpretPassRate(passed, evaluated int) string {
	if evaluated == 0 {
		return "No documents could be evaluated"
	}
	pct := float64(passed) / float64(evaluated) * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("All documents passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most documents passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the documents passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few documents passed (%.0f%%)", pct)
	}
}

// InterpretMetric picks the interpretation that fits the metric's scale.
func InterpretMetric(name string, v float64) string {
	if evaluation.LowerIsBetter(name) {
		return InterpretMAE(v)
	}
	return InterpretAccuracy(v)
}

// FormatSummaryReport produces a plain-language report for an eval outcome.
func FormatSummaryReport(outcome *models.EvalOutcome) string {
	var b strings.Builder

	d := outcome.Digest
	duration := time.Duration(d.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	verdict := "PASSED"
	if !outcome.Passed {
		verdict = "FAILED"
	}
	fmt.Fprintf(&b, "Verdict:    %s\n", verdict)
	fmt.Fprintf(&b, "Pass Rate:  %s\n", InterpretPassRate(d.Passed, d.Passed+d.Failed))
	fmt.Fprintf(&b, "Duration:   %v\n", duration)
	fmt.Fprintf(&b, "Documents:  %d passed, %d failed, %d errors out of %d total\n",
		d.Passed, d.Failed, d.Errors, d.TotalDocuments)

	if len(outcome.Aggregate) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, m := range outcome.Aggregate {
			fmt.Fprintf(&b, "  %s: %.2f (n=%d) %s\n", m.Name, m.Mean, m.Count, InterpretMetric(m.Name, m.Mean))
		}
	}

	var missed []string
	for _, c := range outcome.Checks {
		if c.Status == models.StatusFailed {
			missed = append(missed, fmt.Sprintf("%s %s %.2f", c.Metric, Comparator(c.Threshold), c.Value))
		}
	}
	if len(missed) > 0 {
		b.WriteString("\nMissed thresholds:\n")
		for _, m := range missed {
			fmt.Fprintf(&b, "  ✗ %s\n", m)
		}
	}

	if d.Errors > 0 {
		b.WriteString("\nDocuments that could not be evaluated are excluded from the metrics above:\n")
		for _, r := range outcome.Records {
			if r.Failed() {
				fmt.Fprintf(&b, "  ✗ %s (%s)\n", r.ID, r.ErrorKind)
			}
		}
	}

	return b.String()
}
