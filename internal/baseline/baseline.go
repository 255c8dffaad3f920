// Package baseline compares two eval outcomes metric by metric.
package baseline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/surveyeval/qscore/internal/evaluation"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/statistics"
)

// Change classifies a metric delta from the point of view of quality.
type Change string

const (
	ChangeImproved  Change = "improved"
	ChangeRegressed Change = "regressed"
	ChangeUnchanged Change = "unchanged"
	ChangeNA        Change = "n/a"
)

const epsilon = 1e-9

// MetricDelta is one aggregate metric in both runs. Delta is current - base;
// Improved accounts for direction, so a falling _mae is an improvement.
type MetricDelta struct {
	Metric        string   `json:"metric"`
	Base          *float64 `json:"base,omitempty"`
	Current       *float64 `json:"current,omitempty"`
	Delta         float64  `json:"delta"`
	LowerIsBetter bool     `json:"lower_is_better"`
	Change        Change   `json:"change"`
	// Gain is the normalized gain, only for higher-is-better metrics in [0, 1].
	Gain *float64 `json:"gain,omitempty"`
	// Pairs counts documents scored in both runs that carry the metric.
	Pairs int `json:"pairs"`
	// Significant is true when the bootstrap interval over paired
	// per-document deltas excludes zero.
	Significant bool `json:"significant"`
}

// Improved reports whether the metric moved in the better direction.
func (d MetricDelta) Improved() bool { return d.Change == ChangeImproved }

// DocumentChange records a document whose status differs between runs.
type DocumentChange struct {
	ID      string        `json:"id"`
	Base    models.Status `json:"base"`
	Current models.Status `json:"current"`
}

// Comparison is the result of [Compare].
type Comparison struct {
	BaseRunID     string           `json:"base_run_id"`
	CurrentRunID  string           `json:"current_run_id"`
	BaseModel     string           `json:"base_model"`
	CurrentModel  string           `json:"current_model"`
	BasePassed    bool             `json:"base_passed"`
	CurrentPassed bool             `json:"current_passed"`
	Metrics       []MetricDelta    `json:"metrics"`
	Documents     []DocumentChange `json:"documents,omitempty"`
	Improvements  int              `json:"improvements"`
	Regressions   int              `json:"regressions"`
}

// LoadOutcome reads an eval outcome written by "qscore eval -o".
func LoadOutcome(path string) (*models.EvalOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outcome: %w", err)
	}
	var out models.EvalOutcome
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing outcome %s: %w", path, err)
	}
	return &out, nil
}

// Compare diffs the aggregate metrics of two outcomes. Metrics appear in the
// current run's order, followed by metrics only the base run has.
func Compare(base, current *models.EvalOutcome) *Comparison {
	c := &Comparison{
		BaseRunID:     base.RunID,
		CurrentRunID:  current.RunID,
		BaseModel:     base.Model,
		CurrentModel:  current.Model,
		BasePassed:    base.Passed,
		CurrentPassed: current.Passed,
	}

	var names []string
	seen := make(map[string]bool)
	for _, m := range current.Aggregate {
		names = append(names, m.Name)
		seen[m.Name] = true
	}
	for _, m := range base.Aggregate {
		if !seen[m.Name] {
			names = append(names, m.Name)
		}
	}

	for _, name := range names {
		d := compareMetric(name, base, current)
		switch d.Change {
		case ChangeImproved:
			c.Improvements++
		case ChangeRegressed:
			c.Regressions++
		}
		c.Metrics = append(c.Metrics, d)
	}

	c.Documents = documentChanges(base, current)
	return c
}

func compareMetric(name string, base, current *models.EvalOutcome) MetricDelta {
	d := MetricDelta{Metric: name, LowerIsBetter: evaluation.LowerIsBetter(name), Change: ChangeNA}

	bv, bok := base.AggregateValue(name)
	cv, cok := current.AggregateValue(name)
	if bok {
		d.Base = &bv
	}
	if cok {
		d.Current = &cv
	}
	if !bok || !cok {
		return d
	}

	d.Delta = cv - bv
	better := d.Delta
	if d.LowerIsBetter {
		better = -better
	}
	switch {
	case better > epsilon:
		d.Change = ChangeImproved
	case better < -epsilon:
		d.Change = ChangeRegressed
	default:
		d.Change = ChangeUnchanged
	}

	if !d.LowerIsBetter && bv >= 0 && bv <= 1 && cv >= 0 && cv <= 1 {
		g := statistics.NormalizedGain(bv, cv)
		d.Gain = &g
	}

	deltas := pairedDeltas(name, base, current, d.LowerIsBetter)
	d.Pairs = len(deltas)
	if len(deltas) >= 2 {
		d.Significant = statistics.IsSignificant(statistics.BootstrapCI(deltas, 0.95))
	}
	return d
}

// pairedDeltas matches records by ID and returns the per-document change,
// oriented so that positive means better.
func pairedDeltas(name string, base, current *models.EvalOutcome, lowerIsBetter bool) []float64 {
	baseByID := make(map[string]float64, len(base.Records))
	for _, r := range base.Records {
		if r.Failed() {
			continue
		}
		if v, ok := r.Metrics[name]; ok {
			baseByID[r.ID] = v
		}
	}

	var deltas []float64
	for _, r := range current.Records {
		if r.Failed() {
			continue
		}
		cv, ok := r.Metrics[name]
		if !ok {
			continue
		}
		bv, ok := baseByID[r.ID]
		if !ok {
			continue
		}
		delta := cv - bv
		if lowerIsBetter {
			delta = -delta
		}
		if math.Abs(delta) < epsilon {
			delta = 0
		}
		deltas = append(deltas, delta)
	}
	return deltas
}

func documentChanges(base, current *models.EvalOutcome) []DocumentChange {
	baseStatus := make(map[string]models.Status, len(base.Records))
	for _, r := range base.Records {
		baseStatus[r.ID] = r.Status
	}

	var out []DocumentChange
	for _, r := range current.Records {
		bs, ok := baseStatus[r.ID]
		if !ok {
			bs = models.StatusNA
		}
		if bs != r.Status {
			out = append(out, DocumentChange{ID: r.ID, Base: bs, Current: r.Status})
		}
	}
	return out
}
