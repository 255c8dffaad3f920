package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/surveyeval/qscore/internal/baseline"
	"github.com/surveyeval/qscore/internal/evaluation"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/reporting"
	"github.com/surveyeval/qscore/internal/scoring"
)

// formatDuration formats a duration in a consistent, human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

func formatMean(means map[string]float64, key string) string {
	v, ok := means[key]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func printScoreSummary(w io.Writer, result *models.ScoringResult, attrs models.AttributeSet) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " SCORING RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Document:     %s\n", result.Document)
	if result.Model != "" {
		fmt.Fprintf(w, "Model:        %s\n", result.Model)
	}
	fmt.Fprintf(w, "Questions:    %d\n", len(result.Questions))
	fmt.Fprintf(w, "Sections:     %d\n", len(result.Sections))
	if result.Usage != nil {
		fmt.Fprintf(w, "Tokens:       %d in / %d out\n", result.Usage.InputTokens, result.Usage.OutputTokens)
	}
	fmt.Fprintf(w, "Duration:     %s\n", formatDuration(time.Duration(result.DurationMs)*time.Millisecond))
	fmt.Fprintln(w)

	if len(result.SectionAverages) > 0 {
		table := &reporting.Table{Headers: append([]string{"Section", "Questions"}, labels(attrs)...)}
		for _, s := range result.SectionAverages {
			row := []string{s.Section, fmt.Sprintf("%d", s.QuestionCount)}
			for _, a := range attrs {
				row = append(row, formatMean(s.MeanScores, a.Key))
			}
			table.AddRow(row...)
		}
		overall := scoring.OverallMeans(result.Questions, attrs)
		row := []string{"Overall", fmt.Sprintf("%d", len(result.Questions))}
		for _, a := range attrs {
			row = append(row, formatMean(overall, a.Key))
		}
		table.AddRow(row...)
		_ = table.Render(w)
		fmt.Fprintln(w)
	}

	if len(result.ParseErrors) > 0 {
		fmt.Fprintf(w, "Dropped rows (%d):\n", len(result.ParseErrors))
		for _, pe := range result.ParseErrors {
			fmt.Fprintf(w, "  - row %d: %s\n", pe.Row, pe.Reason)
		}
	}
}

func labels(attrs models.AttributeSet) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.Label
	}
	return out
}

func checksByMetric(outcome *models.EvalOutcome) map[string]models.ThresholdCheck {
	out := make(map[string]models.ThresholdCheck, len(outcome.Checks))
	for _, c := range outcome.Checks {
		out[c.Metric] = c
	}
	return out
}

func statusIcon(s models.Status) string {
	switch s {
	case models.StatusPassed:
		return "✓"
	case models.StatusSkipped:
		return "-"
	default:
		return "✗"
	}
}

func printEvalSummary(w io.Writer, outcome *models.EvalOutcome) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " EVAL RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	d := outcome.Digest
	verdict := "PASSED"
	if !outcome.Passed {
		verdict = "FAILED"
	}
	fmt.Fprintf(w, "Verdict:        %s\n", verdict)
	fmt.Fprintf(w, "Total Docs:     %d\n", d.TotalDocuments)
	fmt.Fprintf(w, "Passed:         %d\n", d.Passed)
	fmt.Fprintf(w, "Failed:         %d\n", d.Failed)
	fmt.Fprintf(w, "Errors:         %d\n", d.Errors)
	fmt.Fprintf(w, "Duration:       %s\n", formatDuration(time.Duration(d.DurationMs)*time.Millisecond))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprintln(w, " PER-DOCUMENT BREAKDOWN")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	for _, r := range outcome.Records {
		fmt.Fprintf(w, "  %s %s [%s]\n", statusIcon(r.Status), r.ID, r.Status)
		if r.Failed() {
			fmt.Fprintf(w, "      %s: %s\n", r.ErrorKind, r.Error)
			continue
		}
		line := fmt.Sprintf("matched=%d", r.MatchedQuestions)
		if v, ok := r.Metrics[evaluation.ExtractionAccuracy]; ok {
			line += fmt.Sprintf("  extraction_accuracy=%.2f", v)
		}
		if v, ok := r.Metrics[evaluation.SectionDetection]; ok {
			line += fmt.Sprintf("  section_detection=%.2f", v)
		}
		fmt.Fprintf(w, "      %s\n", line)
	}
	fmt.Fprintln(w)

	if len(outcome.Aggregate) == 0 && len(outcome.Checks) == 0 {
		return
	}

	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))
	fmt.Fprintln(w, " AGGREGATE METRICS")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 50))

	checks := checksByMetric(outcome)
	table := &reporting.Table{Headers: []string{"Metric", "Mean", "StdDev", "CI95", "N", "Threshold", ""}}
	listed := make(map[string]bool, len(outcome.Aggregate))
	for _, m := range outcome.Aggregate {
		listed[m.Name] = true
		threshold, icon := "", ""
		if c, ok := checks[m.Name]; ok {
			threshold = fmt.Sprintf("%s %.2f", reporting.Comparator(c.Threshold), c.Value)
			icon = statusIcon(c.Status)
		}
		table.AddRow(m.Name,
			fmt.Sprintf("%.4f", m.Mean),
			fmt.Sprintf("%.4f", m.StdDev),
			fmt.Sprintf("[%.3f, %.3f]", m.CI95Lo, m.CI95Hi),
			fmt.Sprintf("%d", m.Count),
			threshold, icon)
	}
	for _, c := range outcome.Checks {
		if !listed[c.Metric] {
			table.AddRow(c.Metric, "-", "-", "-", "0",
				fmt.Sprintf("%s %.2f", reporting.Comparator(c.Threshold), c.Value), statusIcon(c.Status))
		}
	}
	_ = table.Render(w)
	fmt.Fprintln(w)
}

// FormatGitHubComment formats an EvalOutcome as a markdown comment for GitHub PRs
func FormatGitHubComment(outcome *models.EvalOutcome) string {
	var b strings.Builder

	d := outcome.Digest
	duration := time.Duration(d.DurationMs) * time.Millisecond

	b.WriteString("## 🧪 qscore Eval Results\n\n")

	status := "✅ Passed"
	if !outcome.Passed {
		status = "❌ Failed"
	}
	extraction := "n/a"
	if v, ok := outcome.AggregateValue(evaluation.ExtractionAccuracy); ok {
		extraction = fmt.Sprintf("%.2f", v)
	}
	fmt.Fprintf(&b, "**Status:** %s | **Extraction accuracy:** %s | **Duration:** %s\n\n",
		status, extraction, formatDuration(duration))

	fmt.Fprintf(&b, "- **Documents:** %d total, %d passed, %d failed, %d errors\n",
		d.TotalDocuments, d.Passed, d.Failed, d.Errors)
	fmt.Fprintf(&b, "- **Attributes:** %s\n\n", strings.Join(outcome.Attributes, ", "))

	if len(outcome.Checks) > 0 {
		b.WriteString("### Thresholds\n\n")
		b.WriteString("| Metric | Value | Threshold | Status |\n")
		b.WriteString("|--------|-------|-----------|--------|\n")
		for _, c := range outcome.Checks {
			value := "-"
			if c.Actual != nil {
				value = fmt.Sprintf("%.4f", *c.Actual)
			}
			icon := "✅"
			switch c.Status {
			case models.StatusFailed:
				icon = "❌"
			case models.StatusSkipped:
				icon = "⏭️"
			}
			fmt.Fprintf(&b, "| %s | %s | %s %.2f | %s |\n", c.Metric, value, reporting.Comparator(c.Threshold), c.Value, icon)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Documents\n\n")
	b.WriteString("| Document | Status | Matched | Extraction |\n")
	b.WriteString("|----------|--------|---------|------------|\n")
	for _, r := range outcome.Records {
		icon := "✅"
		if r.Status != models.StatusPassed {
			icon = "❌"
		}
		acc := "-"
		if v, ok := r.Metrics[evaluation.ExtractionAccuracy]; ok {
			acc = fmt.Sprintf("%.2f", v)
		}
		fmt.Fprintf(&b, "| %s | %s %s | %d | %s |\n", r.ID, icon, r.Status, r.MatchedQuestions, acc)
	}
	b.WriteString("\n")

	if d.Failed > 0 || d.Errors > 0 {
		thresholds := reporting.Thresholds(outcome)
		b.WriteString("### Failed Document Details\n\n")
		for _, r := range outcome.Records {
			if r.Status == models.StatusPassed {
				continue
			}
			fmt.Fprintf(&b, "#### %s\n\n", r.ID)
			if r.Failed() {
				fmt.Fprintf(&b, "- ❌ **%s**: %s\n\n", r.ErrorKind, r.Error)
				continue
			}
			for _, t := range thresholds {
				v, ok := r.Metrics[t.Metric]
				if ok && !evaluation.Meets(t, v) {
					fmt.Fprintf(&b, "- ❌ **%s** %.4f (want %s %.2f)\n", t.Metric, v, reporting.Comparator(t), t.Value)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "**Dataset:** %s | **Model:** %s (%s) | **Run:** %s\n",
		outcome.Dataset, outcome.Model, outcome.Provider, outcome.RunID)

	return b.String()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func printComparisonTable(w io.Writer, basePath, currentPath string, cmp *baseline.Comparison) error {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " EVAL COMPARISON")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	verdict := func(passed bool) string {
		if passed {
			return "passed"
		}
		return "failed"
	}
	fmt.Fprintf(w, "Base:     %s (%s, %s)\n", basePath, cmp.BaseModel, verdict(cmp.BasePassed))
	fmt.Fprintf(w, "Current:  %s (%s, %s)\n", currentPath, cmp.CurrentModel, verdict(cmp.CurrentPassed))
	fmt.Fprintln(w)

	table := &reporting.Table{Headers: []string{"Metric", "Base", "Current", "Delta", "Change", "Significant"}}
	for _, m := range cmp.Metrics {
		delta := "-"
		if m.Base != nil && m.Current != nil {
			delta = fmt.Sprintf("%+.4f", m.Delta)
		}
		sig := ""
		if m.Significant {
			sig = fmt.Sprintf("yes (n=%d)", m.Pairs)
		}
		table.AddRow(m.Metric, formatOptional(m.Base), formatOptional(m.Current), delta, string(m.Change), sig)
	}
	if err := table.Render(w); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if len(cmp.Documents) > 0 {
		fmt.Fprintln(w, "Document status changes:")
		for _, dc := range cmp.Documents {
			fmt.Fprintf(w, "  %s: %s -> %s\n", dc.ID, dc.Base, dc.Current)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Improvements: %d  Regressions: %d\n", cmp.Improvements, cmp.Regressions)
	return nil
}
