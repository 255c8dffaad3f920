package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/surveyeval/qscore/internal/models"
)

// CSVColumns returns the header of the per-document export: identity
// columns, then every aggregate metric in report order.
func CSVColumns(outcome *models.EvalOutcome) []string {
	cols := []string{"id", "document", "status", "error", "matched_questions", "duration_ms"}
	for _, m := range outcome.Aggregate {
		cols = append(cols, m.Name)
	}
	return cols
}

// WriteCSV writes one row per document. Metrics a document lacks are left blank.
func WriteCSV(w io.Writer, outcome *models.EvalOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns(outcome)); err != nil {
		return err
	}

	for _, r := range outcome.Records {
		row := []string{
			r.ID,
			r.Document,
			string(r.Status),
			r.Error,
			strconv.Itoa(r.MatchedQuestions),
			strconv.FormatInt(r.DurationMs, 10),
		}
		for _, m := range outcome.Aggregate {
			cell := ""
			if v, ok := r.Metrics[m.Name]; ok {
				cell = strconv.FormatFloat(v, 'f', 4, 64)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the per-document export to path.
func WriteCSVFile(outcome *models.EvalOutcome, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, outcome); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
