// Package statistics provides resampling estimates for eval metrics folded
// across documents.
package statistics

import (
	"math"
	"math/rand"
	"sort"

	"github.com/surveyeval/qscore/internal/metrics"
)

// ConfidenceInterval is a percentile bootstrap interval around a mean.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

const (
	// DefaultBootstrapIterations is the number of resamples drawn.
	DefaultBootstrapIterations = 10000
	// DefaultSeed keeps eval reports stable between runs over the same data.
	DefaultSeed int64 = 1
)

// BootstrapCI computes a confidence interval with DefaultSeed.
// confidenceLevel should be in (0, 1), e.g. 0.95.
func BootstrapCI(values []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(values, confidenceLevel, DefaultSeed)
}

// BootstrapCIWithSeed resamples values with replacement and takes the
// percentile bounds of the resampled means. With fewer than two values the
// interval collapses to the mean. A negative seed draws a random one.
func BootstrapCIWithSeed(values []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	m := metrics.Mean(values)
	ci := ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: confidenceLevel}

	n := len(values)
	if n < 2 {
		return ci
	}

	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	means := make([]float64, DefaultBootstrapIterations)
	for i := range means {
		means[i] = resampleMean(rng, values)
	}
	sort.Float64s(means)

	ci.Lower, ci.Upper = percentileBounds(means, confidenceLevel)
	ci.NumBootstraps = len(means)
	return ci
}

func resampleMean(rng *rand.Rand, values []float64) float64 {
	sum := 0.0
	for range values {
		sum += values[rng.Intn(len(values))]
	}
	return sum / float64(len(values))
}

// percentileBounds reads the two-sided bounds from sorted resample means.
func percentileBounds(sorted []float64, confidenceLevel float64) (float64, float64) {
	n := len(sorted)
	alpha := 1.0 - confidenceLevel
	lo := int(math.Floor(alpha / 2.0 * float64(n)))
	hi := int(math.Floor((1.0 - alpha/2.0) * float64(n)))
	lo = max(0, min(lo, n-1))
	hi = max(0, min(hi, n-1))
	return sorted[lo], sorted[hi]
}

// IsSignificant reports whether the interval excludes zero. It is used on
// intervals over paired per-document deltas.
func IsSignificant(ci ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

// NormalizedGain is Hake's gain (post-pre)/(1-pre) for metrics bounded by
// 1.0, such as extraction_accuracy. It returns 0 when pre is already at the
// ceiling or nothing changed, and 1 when post reaches the ceiling.
func NormalizedGain(pre, post float64) float64 {
	if pre >= 1.0 {
		return 0.0
	}
	if post >= 1.0 {
		return 1.0
	}
	if math.Abs(post-pre) < 1e-12 {
		return 0.0
	}
	return (post - pre) / (1.0 - pre)
}
