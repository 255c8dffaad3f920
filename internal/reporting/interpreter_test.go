package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpretAccuracy(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1.0, "Excellent (>=95%)"},
		{0.95, "Excellent (>=95%)"},
		{0.9, "Good (85-95%)"},
		{0.75, "Needs Work (70-85%)"},
		{0.2, "Poor (<70%)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InterpretAccuracy(tt.v), "v=%f", tt.v)
	}
}

func TestInterpretMAE(t *testing.T) {
	assert.Equal(t, "Near-identical scores", InterpretMAE(0))
	assert.Contains(t, InterpretMAE(0.5), "half a point")
	assert.Contains(t, InterpretMAE(0.8), "within one point")
	assert.Contains(t, InterpretMAE(1.7), "Large disagreement")
}

func TestInterpretPassRate(t *testing.T) {
	assert.Equal(t, "No documents could be evaluated", InterpretPassRate(0, 0))
	assert.Equal(t, "All documents passed (100%)", InterpretPassRate(4, 4))
	assert.Equal(t, "Most documents passed (80%)", InterpretPassRate(4, 5))
	assert.Equal(t, "About half the documents passed (50%)", InterpretPassRate(1, 2))
	assert.Equal(t, "Few documents passed (25%)", InterpretPassRate(1, 4))
}

func TestInterpretMetric(t *testing.T) {
	assert.Equal(t, InterpretMAE(0.3), InterpretMetric("bias_mae", 0.3))
	assert.Equal(t, InterpretAccuracy(0.3), InterpretMetric("bias_within_1", 0.3))
}

func TestFormatSummaryReport(t *testing.T) {
	report := FormatSummaryReport(newTestOutcome())

	assert.Contains(t, report, "=== Interpretation ===")
	assert.Contains(t, report, "Verdict:    FAILED")
	assert.Contains(t, report, "About half the documents passed (50%)")
	assert.Contains(t, report, "1 passed, 1 failed, 1 errors out of 3 total")
	assert.Contains(t, report, "extraction_accuracy: 0.80 (n=2) Needs Work (70-85%)")
	assert.Contains(t, report, "✗ clarity_mae <= 0.50")
	assert.Contains(t, report, "✗ broken (timeout)")
}
