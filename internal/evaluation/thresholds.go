package evaluation

import (
	"sort"
	"strings"

	"github.com/surveyeval/qscore/internal/metrics"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/statistics"
)

// LowerIsBetter reports whether smaller values of the metric are better.
func LowerIsBetter(metric string) bool {
	return strings.HasSuffix(metric, SuffixMAE)
}

var defaultThresholds = []models.Threshold{
	{Metric: ExtractionAccuracy, Value: 0.95},
	{Metric: "clarity_mae", Value: 0.5, LowerIsBetter: true},
	{Metric: "specificity_mae", Value: 0.5, LowerIsBetter: true},
	{Metric: "bias_mae", Value: 0.7, LowerIsBetter: true},
	{Metric: "actionability_mae", Value: 0.8, LowerIsBetter: true},
	{Metric: "clarity_within_1", Value: 0.85},
	{Metric: "specificity_within_1", Value: 0.85},
	{Metric: "bias_within_1", Value: 0.80},
	{Metric: "actionability_within_1", Value: 0.80},
}

// DefaultThresholds returns a copy of the built-in threshold table.
func DefaultThresholds() []models.Threshold {
	return append([]models.Threshold(nil), defaultThresholds...)
}

// Thresholds merges overrides into the default table. Overridden metrics
// keep their position; new metrics follow in name order. Direction is always
// derived from the metric name.
func Thresholds(overrides ...map[string]float64) []models.Threshold {
	out := DefaultThresholds()
	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.Metric] = i
	}

	for _, ov := range overrides {
		names := make([]string, 0, len(ov))
		for name := range ov {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := models.Threshold{Metric: name, Value: ov[name], LowerIsBetter: LowerIsBetter(name)}
			if i, ok := index[name]; ok {
				out[i] = t
				continue
			}
			index[name] = len(out)
			out = append(out, t)
		}
	}
	return out
}

// Meets reports whether value satisfies the threshold: <= for error metrics,
// >= for everything else.
func Meets(t models.Threshold, value float64) bool {
	if t.LowerIsBetter {
		return value <= t.Value
	}
	return value >= t.Value
}

// metricOrder sorts metric names: extraction first, then per-attribute
// metrics in attribute order, then the section metrics, then anything else.
func metricOrder(names []string, attrs models.AttributeSet) []string {
	rank := map[string]int{ExtractionAccuracy: 0}
	next := 1
	for _, a := range attrs {
		rank[MAEMetric(a.Key)] = next
		rank[WithinMetric(a.Key)] = next + 1
		next += 2
	}
	rank[SectionDetection] = next
	rank[SectionScoreMAE] = next + 1

	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// Aggregate folds the metrics of every non-error record into an unweighted
// mean per metric. Records missing a metric do not count towards it.
func Aggregate(records []models.EvalRecord, attrs models.AttributeSet) []models.AggregateMetric {
	values := make(map[string][]float64)
	for _, r := range records {
		if r.Failed() {
			continue
		}
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	out := make([]models.AggregateMetric, 0, len(names))
	for _, name := range metricOrder(names, attrs) {
		vs := values[name]
		ci := statistics.BootstrapCI(vs, 0.95)
		out = append(out, models.AggregateMetric{
			Name:   name,
			Mean:   metrics.Mean(vs),
			StdDev: metrics.StdDev(vs),
			Count:  len(vs),
			CI95Lo: ci.Lower,
			CI95Hi: ci.Upper,
		})
	}
	return out
}

// CheckThresholds evaluates every threshold against the aggregate. A
// threshold whose metric has no aggregate value is skipped.
func CheckThresholds(aggregate []models.AggregateMetric, thresholds []models.Threshold) []models.ThresholdCheck {
	means := make(map[string]float64, len(aggregate))
	for _, m := range aggregate {
		means[m.Name] = m.Mean
	}
	return check(means, thresholds)
}

// CheckMetrics evaluates thresholds against one document's metrics.
func CheckMetrics(m models.Metrics, thresholds []models.Threshold) []models.ThresholdCheck {
	return check(m, thresholds)
}

func check(values map[string]float64, thresholds []models.Threshold) []models.ThresholdCheck {
	out := make([]models.ThresholdCheck, 0, len(thresholds))
	for _, t := range thresholds {
		c := models.ThresholdCheck{Threshold: t, Status: models.StatusSkipped}
		if v, ok := values[t.Metric]; ok {
			c.Actual = &v
			c.Status = models.StatusFailed
			if Meets(t, v) {
				c.Status = models.StatusPassed
			}
		}
		out = append(out, c)
	}
	return out
}

// AllPassed reports whether no check failed. Skipped checks do not fail.
func AllPassed(checks []models.ThresholdCheck) bool {
	for _, c := range checks {
		if c.Status == models.StatusFailed {
			return false
		}
	}
	return true
}

// DocumentStatus is passed when the document's own metrics meet every
// applicable threshold.
func DocumentStatus(m models.Metrics, thresholds []models.Threshold) models.Status {
	if AllPassed(CheckMetrics(m, thresholds)) {
		return models.StatusPassed
	}
	return models.StatusFailed
}

// Digest counts record statuses.
func Digest(records []models.EvalRecord) models.EvalDigest {
	d := models.EvalDigest{TotalDocuments: len(records)}
	for _, r := range records {
		switch r.Status {
		case models.StatusPassed:
			d.Passed++
		case models.StatusFailed:
			d.Failed++
		case models.StatusError:
			d.Errors++
		}
		d.DurationMs += r.DurationMs
	}
	return d
}

// Verdict decides the run. It passes when no check failed and at least one
// document was evaluated. With strict, any errored document fails the run.
func Verdict(checks []models.ThresholdCheck, digest models.EvalDigest, strict bool) bool {
	if digest.Passed+digest.Failed == 0 {
		return false
	}
	if strict && digest.Errors > 0 {
		return false
	}
	return AllPassed(checks)
}
