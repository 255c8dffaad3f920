package models

import (
	"time"
)

// Status represents the outcome status of a document evaluation or a threshold check.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
	// StatusSkipped marks a threshold whose metric had no value to compare.
	StatusSkipped Status = "skipped"
	// StatusNA is used in comparison reports when a metric is missing from one side.
	StatusNA Status = "n/a"
)

// Metrics maps metric names (extraction_accuracy, clarity_mae, ...) to values.
// A metric that could not be computed is absent rather than zero.
type Metrics map[string]float64

// ExpectedOutput is the ground truth for one document.
type ExpectedOutput struct {
	Questions       []QuestionRecord `json:"questions"`
	SectionAverages SectionAverages  `json:"section_averages,omitempty"`
}

// EvalRecord is the evaluation of one document.
type EvalRecord struct {
	ID               string          `json:"id"`
	Document         string          `json:"document"`
	Status           Status          `json:"status"`
	Error            string          `json:"error,omitempty"`
	ErrorKind        string          `json:"error_kind,omitempty"`
	Expected         *ExpectedOutput `json:"expected,omitempty"`
	Actual           *ScoringResult  `json:"actual,omitempty"`
	Metrics          Metrics         `json:"metrics,omitempty"`
	MatchedQuestions int             `json:"matched_questions"`
	DurationMs       int64           `json:"duration_ms"`
}

// Failed reports whether the document could not be evaluated at all.
func (r *EvalRecord) Failed() bool {
	return r.Status == StatusError
}

// AggregateMetric is one metric folded across documents.
type AggregateMetric struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
	CI95Lo float64 `json:"ci95_lo"`
	CI95Hi float64 `json:"ci95_hi"`
}

// Threshold is a pass/fail bound on an aggregate metric.
type Threshold struct {
	Metric string  `json:"metric" yaml:"metric"`
	Value  float64 `json:"value" yaml:"value"`
	// LowerIsBetter is true for error metrics (the "_mae" family).
	LowerIsBetter bool `json:"lower_is_better" yaml:"lower_is_better"`
}

// ThresholdCheck is the verdict for one threshold.
type ThresholdCheck struct {
	Threshold
	Actual *float64 `json:"actual,omitempty"`
	Status Status   `json:"status"`
}

// EvalDigest summarizes document counts for a run.
type EvalDigest struct {
	TotalDocuments int   `json:"total_documents"`
	Passed         int   `json:"passed"`
	Failed         int   `json:"failed"`
	Errors         int   `json:"errors"`
	DurationMs     int64 `json:"duration_ms"`
}

// EvalOutcome is the full result of an eval run.
type EvalOutcome struct {
	RunID      string            `json:"run_id"`
	Dataset    string            `json:"dataset"`
	Model      string            `json:"model"`
	Provider   string            `json:"provider"`
	Attributes []string          `json:"attributes"`
	Timestamp  time.Time         `json:"timestamp"`
	Records    []EvalRecord      `json:"records"`
	Aggregate  []AggregateMetric `json:"aggregate"`
	Checks     []ThresholdCheck  `json:"checks"`
	Passed     bool              `json:"passed"`
	Digest     EvalDigest        `json:"summary"`
}

// AggregateValue returns the aggregate mean for a metric.
func (o *EvalOutcome) AggregateValue(name string) (float64, bool) {
	for _, m := range o.Aggregate {
		if m.Name == name {
			return m.Mean, true
		}
	}
	return 0, false
}
