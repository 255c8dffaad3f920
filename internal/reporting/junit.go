// Package reporting renders eval outcomes for people and CI systems.
package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/surveyeval/qscore/internal/evaluation"
	"github.com/surveyeval/qscore/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is either the document suite or the threshold suite of a run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is one document or one threshold check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a missed threshold.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a document that could not be evaluated.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a check without a value.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit maps an outcome to two suites: one test case per document
// and one per threshold check.
func ConvertToJUnit(outcome *models.EvalOutcome) *JUnitTestSuites {
	thresholds := Thresholds(outcome)
	timestamp := outcome.Timestamp.Format(time.RFC3339)
	durationSec := float64(outcome.Digest.DurationMs) / 1000.0

	docs := JUnitTestSuite{
		Name:      outcome.Dataset + ".documents",
		Time:      durationSec,
		Timestamp: timestamp,
		Properties: []JUnitProperty{
			{Name: "run_id", Value: outcome.RunID},
			{Name: "provider", Value: outcome.Provider},
			{Name: "model", Value: outcome.Model},
			{Name: "attributes", Value: strings.Join(outcome.Attributes, ",")},
		},
	}
	for i := range outcome.Records {
		tc := convertRecord(outcome.Dataset, &outcome.Records[i], thresholds)
		docs.Tests++
		switch {
		case tc.Failure != nil:
			docs.Failures++
		case tc.Error != nil:
			docs.Errors++
		}
		docs.TestCases = append(docs.TestCases, tc)
	}

	checks := JUnitTestSuite{
		Name:      outcome.Dataset + ".thresholds",
		Timestamp: timestamp,
	}
	for _, c := range outcome.Checks {
		tc := convertCheck(outcome.Dataset, c)
		checks.Tests++
		switch {
		case tc.Failure != nil:
			checks.Failures++
		case tc.Skipped != nil:
			checks.Skipped++
		}
		checks.TestCases = append(checks.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      docs.Tests + checks.Tests,
		Failures:   docs.Failures + checks.Failures,
		Errors:     docs.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{docs, checks},
	}
}

func convertRecord(dataset string, r *models.EvalRecord, thresholds []models.Threshold) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      r.ID,
		Classname: dataset,
		Time:      float64(r.DurationMs) / 1000.0,
	}

	switch r.Status {
	case models.StatusError:
		tc.Error = &JUnitError{
			Message: r.Error,
			Type:    errorType(r.ErrorKind),
			Body:    r.Document,
		}
	case models.StatusFailed:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: metrics below threshold", r.ID),
			Type:    "ThresholdFailure",
			Body:    formatMissedThresholds(r.Metrics, thresholds),
		}
	}
	return tc
}

func errorType(kind string) string {
	if kind == "load" {
		return "LoadError"
	}
	return "ModelCallError"
}

func formatMissedThresholds(m models.Metrics, thresholds []models.Threshold) string {
	var b strings.Builder
	for _, t := range thresholds {
		v, ok := m[t.Metric]
		if !ok {
			continue
		}
		if !evaluation.Meets(t, v) {
			fmt.Fprintf(&b, "[FAIL] %s = %.4f (want %s %.2f)\n", t.Metric, v, Comparator(t), t.Value)
		}
	}
	return b.String()
}

func convertCheck(dataset string, c models.ThresholdCheck) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      fmt.Sprintf("%s %s %.2f", c.Metric, Comparator(c.Threshold), c.Value),
		Classname: dataset + ".thresholds",
	}
	switch c.Status {
	case models.StatusFailed:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s = %.4f", c.Metric, *c.Actual),
			Type:    "ThresholdFailure",
		}
	case models.StatusSkipped:
		tc.Skipped = &JUnitSkipped{Message: "no documents produced " + c.Metric}
	}
	return tc
}

// Thresholds recovers the threshold table an outcome was judged against.
func Thresholds(outcome *models.EvalOutcome) []models.Threshold {
	out := make([]models.Threshold, len(outcome.Checks))
	for i, c := range outcome.Checks {
		out[i] = c.Threshold
	}
	return out
}

// Comparator is "<=" for lower-is-better thresholds and ">=" otherwise.
func Comparator(t models.Threshold) string {
	if t.LowerIsBetter {
		return "<="
	}
	return ">="
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.EvalOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0o644)
}
