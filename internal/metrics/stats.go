// Package metrics holds the small numeric helpers shared by the aggregator
// and the eval metrics.
package metrics

import "math"

// Mean computes the arithmetic mean of a float64 slice.
// Returns 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MeanInts is Mean over integer scores.
func MeanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// Variance computes the population variance of a float64 slice.
// Returns 0 for empty input.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// ConfidenceInterval95 returns the 95% confidence interval (low, high)
// using the normal approximation (z=1.96). Returns (mean, mean) when
// fewer than 2 data points are available.
func ConfidenceInterval95(values []float64) (float64, float64) {
	n := len(values)
	m := Mean(values)
	if n < 2 {
		return m, m
	}
	// sample standard deviation (Bessel's correction)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	sampleSD := math.Sqrt(sumSq / float64(n-1))
	margin := 1.96 * sampleSD / math.Sqrt(float64(n))
	return m - margin, m + margin
}

// MeanAbsError is the mean of |expected[i] - actual[i]|. The slices must be
// the same length; extra elements in the longer one are ignored.
func MeanAbsError(expected, actual []int) float64 {
	n := min(len(expected), len(actual))
	if n == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		sum += absInt(expected[i] - actual[i])
	}
	return float64(sum) / float64(n)
}

// WithinRate is the fraction of pairs whose absolute difference is at most tol.
func WithinRate(expected, actual []int, tol int) float64 {
	n := min(len(expected), len(actual))
	if n == 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		if absInt(expected[i]-actual[i]) <= tol {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
