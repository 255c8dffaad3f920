// Package evaluation compares scoring results against ground truth and folds
// the per-document metrics into a pass/fail verdict.
package evaluation

import (
	"strings"

	"github.com/surveyeval/qscore/internal/metrics"
	"github.com/surveyeval/qscore/internal/models"
	"golang.org/x/text/cases"
)

// Metric names.
const (
	ExtractionAccuracy = "extraction_accuracy"
	SectionDetection   = "section_detection"
	SectionScoreMAE    = "section_score_mae"

	SuffixMAE     = "_mae"
	SuffixWithin1 = "_within_1"
)

// MAEMetric returns "{attr}_mae".
func MAEMetric(attr string) string { return attr + SuffixMAE }

// WithinMetric returns "{attr}_within_1".
func WithinMetric(attr string) string { return attr + SuffixWithin1 }

// NormalizeQuestion folds case and collapses whitespace. Two questions match
// only when their normalized text is identical.
func NormalizeQuestion(text string) string {
	return strings.Join(strings.Fields(cases.Fold().String(text)), " ")
}

// Result is the metric set for one document.
type Result struct {
	Metrics models.Metrics
	// Matched counts expected questions with an actual counterpart.
	Matched int
}

// Evaluate computes the document metrics. Metrics without a defined value
// are left out rather than reported as zero.
func Evaluate(expected models.ExpectedOutput, actual *models.ScoringResult, attrs models.AttributeSet) Result {
	res := Result{Metrics: models.Metrics{}}

	var actualQuestions []models.QuestionRecord
	var actualSections []string
	var actualAverages models.SectionAverages
	if actual != nil {
		actualQuestions = actual.Questions
		actualSections = actual.Sections
		actualAverages = actual.SectionAverages
	}

	byText := make(map[string]models.QuestionRecord, len(actualQuestions))
	for _, q := range actualQuestions {
		key := NormalizeQuestion(q.QuestionText)
		if _, dup := byText[key]; !dup {
			byText[key] = q
		}
	}

	if acc, ok := extractionAccuracy(expected.Questions, byText); ok {
		res.Metrics[ExtractionAccuracy] = acc
	}

	type pairs struct{ expected, actual []int }
	perAttr := make(map[string]*pairs, len(attrs))
	for _, a := range attrs {
		perAttr[a.Key] = &pairs{}
	}

	for _, eq := range expected.Questions {
		aq, ok := byText[NormalizeQuestion(eq.QuestionText)]
		if !ok {
			continue
		}
		res.Matched++
		for _, a := range attrs {
			ev, eok := eq.Score(a.Key)
			av, aok := aq.Score(a.Key)
			if !eok || !aok {
				continue
			}
			p := perAttr[a.Key]
			p.expected = append(p.expected, ev)
			p.actual = append(p.actual, av)
		}
	}

	for _, a := range attrs {
		p := perAttr[a.Key]
		if len(p.expected) == 0 {
			continue
		}
		res.Metrics[MAEMetric(a.Key)] = metrics.MeanAbsError(p.expected, p.actual)
		res.Metrics[WithinMetric(a.Key)] = metrics.WithinRate(p.expected, p.actual, 1)
	}

	if det, ok := sectionDetection(expected, actualSections); ok {
		res.Metrics[SectionDetection] = det
	}

	if mae, ok := sectionScoreMAE(expected.SectionAverages, actualAverages, attrs); ok {
		res.Metrics[SectionScoreMAE] = mae
	}

	return res
}

// extractionAccuracy is the share of distinct expected questions found in
// the actual output.
func extractionAccuracy(expected []models.QuestionRecord, actual map[string]models.QuestionRecord) (float64, bool) {
	want := make(map[string]struct{}, len(expected))
	for _, q := range expected {
		want[NormalizeQuestion(q.QuestionText)] = struct{}{}
	}
	if len(want) == 0 {
		return 0, false
	}
	found := 0
	for k := range want {
		if _, ok := actual[k]; ok {
			found++
		}
	}
	return float64(found) / float64(len(want)), true
}

// ExpectedSections lists the sections the ground truth claims, taken from
// the expected section averages when present, else from the expected questions.
func ExpectedSections(expected models.ExpectedOutput) []string {
	if len(expected.SectionAverages) > 0 {
		return expected.SectionAverages.Sections()
	}
	var out []string
	seen := make(map[string]bool)
	for _, q := range expected.Questions {
		if !seen[q.Section] {
			seen[q.Section] = true
			out = append(out, q.Section)
		}
	}
	return out
}

func sectionDetection(expected models.ExpectedOutput, actual []string) (float64, bool) {
	sections := ExpectedSections(expected)
	if len(sections) == 0 {
		return 0, false
	}
	have := make(map[string]bool, len(actual))
	for _, s := range actual {
		have[s] = true
	}
	found := 0
	for _, s := range sections {
		if have[s] {
			found++
		}
	}
	return float64(found) / float64(len(sections)), true
}

// sectionScoreMAE compares section means over the sections and attributes
// both sides report.
func sectionScoreMAE(expected, actual models.SectionAverages, attrs models.AttributeSet) (float64, bool) {
	if len(expected) == 0 {
		return 0, false
	}
	var diffs []float64
	for _, es := range expected {
		as, ok := actual.Get(es.Section)
		if !ok {
			continue
		}
		for _, a := range attrs {
			ev, eok := es.MeanScores[a.Key]
			av, aok := as.MeanScores[a.Key]
			if !eok || !aok {
				continue
			}
			d := ev - av
			if d < 0 {
				d = -d
			}
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return 0, false
	}
	return metrics.Mean(diffs), true
}
