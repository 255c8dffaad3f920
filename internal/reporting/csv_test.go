package reporting

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, newTestOutcome()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"id", "document", "status", "error", "matched_questions", "duration_ms", "extraction_accuracy", "clarity_mae"}, rows[0])
	assert.Equal(t, []string{"intake", "docs/intake.docx", "passed", "", "10", "1200", "1.0000", "0.2000"}, rows[1])
	assert.Equal(t, "broken", rows[3][0])
	assert.Equal(t, "error", rows[3][2])
	assert.Equal(t, "", rows[3][6])
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval_results.csv")
	require.NoError(t, WriteCSVFile(newTestOutcome(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exit,docs/exit.pdf,failed")

	require.Error(t, WriteCSVFile(newTestOutcome(), filepath.Join(t.TempDir(), "no", "such", "dir.csv")))
}
