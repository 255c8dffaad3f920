// Package scoring folds question records into per-section averages.
package scoring

import (
	"time"

	"github.com/surveyeval/qscore/internal/metrics"
	"github.com/surveyeval/qscore/internal/models"
)

// Precision is the number of decimals kept for section means.
const Precision = 2

// Aggregate computes the mean score per attribute for each section. Sections
// appear in the order they are first seen in questions; a section with no
// questions never appears. A question missing an attribute score is skipped
// for that attribute only.
func Aggregate(questions []models.QuestionRecord, attrs models.AttributeSet) models.SectionAverages {
	type bucket struct {
		count  int
		scores map[string][]int
	}

	var order []string
	buckets := make(map[string]*bucket)

	for _, q := range questions {
		b, ok := buckets[q.Section]
		if !ok {
			b = &bucket{scores: make(map[string][]int, len(attrs))}
			buckets[q.Section] = b
			order = append(order, q.Section)
		}
		b.count++
		for _, a := range attrs {
			if v, ok := q.Score(a.Key); ok {
				b.scores[a.Key] = append(b.scores[a.Key], v)
			}
		}
	}

	out := make(models.SectionAverages, 0, len(order))
	for _, section := range order {
		b := buckets[section]
		means := make(map[string]float64, len(attrs))
		for _, a := range attrs {
			vals := b.scores[a.Key]
			if len(vals) == 0 {
				continue
			}
			means[a.Key] = metrics.Round(metrics.MeanInts(vals), Precision)
		}
		out = append(out, models.SectionSummary{
			Section:       section,
			QuestionCount: b.count,
			MeanScores:    means,
		})
	}
	return out
}

// NewResult builds a ScoringResult whose sections and section averages are
// derived from the same question list.
func NewResult(document string, questions []models.QuestionRecord, attrs models.AttributeSet) *models.ScoringResult {
	avgs := Aggregate(questions, attrs)
	if questions == nil {
		questions = []models.QuestionRecord{}
	}
	return &models.ScoringResult{
		Document:        document,
		Attributes:      attrs.Keys(),
		Questions:       questions,
		Sections:        avgs.Sections(),
		SectionAverages: avgs,
		GeneratedAt:     time.Now().UTC(),
	}
}

// OverallMeans averages each attribute across every question, ignoring
// section boundaries.
func OverallMeans(questions []models.QuestionRecord, attrs models.AttributeSet) map[string]float64 {
	out := make(map[string]float64, len(attrs))
	for _, a := range attrs {
		var vals []int
		for _, q := range questions {
			if v, ok := q.Score(a.Key); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			out[a.Key] = metrics.Round(metrics.MeanInts(vals), Precision)
		}
	}
	return out
}
