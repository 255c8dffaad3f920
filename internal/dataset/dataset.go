// Package dataset loads labelled eval datasets.
//
// Two layouts are accepted, in JSON or YAML:
//
//	[{"id": ..., "document": ..., "expected_output": {...}}]
//	{"name": ..., "attributes": ..., "thresholds": {...}, "cases": [...]}
//
// Every file is checked against the embedded dataset schema before decoding.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/parser"
	"github.com/surveyeval/qscore/internal/validation"
)

// Case is one labelled document.
type Case struct {
	ID string
	// Document is the document path, resolved against the dataset directory.
	Document string
	// ExpectedCSV is set when the ground truth came from a CSV file.
	ExpectedCSV string
	Expected    models.ExpectedOutput
}

// Dataset is a loaded eval dataset.
type Dataset struct {
	Name string
	Path string
	Dir  string
	// Profile is the attribute profile named by the file, or empty.
	Profile    string
	Attributes models.AttributeSet
	// Thresholds overrides entries of the default threshold table.
	Thresholds map[string]float64
	Cases      []Case
}

// Error reports an invalid dataset. Problems lists every schema violation
// or decoding failure found.
type Error struct {
	Path     string
	Problems []string
}

func (e *Error) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("dataset %s: %s", e.Path, e.Problems[0])
	}
	return fmt.Sprintf("dataset %s: %d problems:\n  %s", e.Path, len(e.Problems), strings.Join(e.Problems, "\n  "))
}

type rawDataset struct {
	Name        string             `mapstructure:"name"`
	Description string             `mapstructure:"description"`
	Attributes  string             `mapstructure:"attributes"`
	Thresholds  map[string]float64 `mapstructure:"thresholds"`
	Cases       []rawCase          `mapstructure:"cases"`
}

type rawCase struct {
	ID          string       `mapstructure:"id"`
	Document    string       `mapstructure:"document"`
	ExpectedCSV string       `mapstructure:"expected_csv"`
	Expected    *rawExpected `mapstructure:"expected_output"`
}

type rawExpected struct {
	Questions       []rawQuestion                 `mapstructure:"questions"`
	SectionAverages map[string]map[string]float64 `mapstructure:"section_averages"`
}

type rawQuestion struct {
	Section        string         `mapstructure:"section"`
	Number         string         `mapstructure:"number"`
	QuestionNumber string         `mapstructure:"question_number"`
	QuestionText   string         `mapstructure:"question_text"`
	Scores         map[string]int `mapstructure:"scores"`
	// Flat score keys such as "clarity": 5 land here, along with any
	// annotations; only attribute keys are kept.
	Rest map[string]any `mapstructure:",remain"`
}

// Load reads, validates and decodes the dataset at path. attrs is the
// attribute set used when the file does not name a profile.
func Load(path string, attrs models.AttributeSet) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	doc, err := validation.DecodeDocument(path, data)
	if err != nil {
		return nil, &Error{Path: path, Problems: []string{err.Error()}}
	}
	if problems := validation.ValidateDataset(doc); len(problems) > 0 {
		return nil, &Error{Path: path, Problems: problems}
	}

	// the legacy layout is a bare list of cases
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"cases": list}
	}

	var raw rawDataset
	if err := decode(doc, &raw); err != nil {
		return nil, &Error{Path: path, Problems: []string{err.Error()}}
	}

	ds := &Dataset{
		Name:       raw.Name,
		Path:       path,
		Dir:        filepath.Dir(path),
		Profile:    raw.Attributes,
		Thresholds: raw.Thresholds,
		Attributes: attrs,
	}
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if raw.Attributes != "" {
		ds.Attributes, err = models.AttributeProfile(raw.Attributes)
		if err != nil {
			return nil, &Error{Path: path, Problems: []string{err.Error()}}
		}
	}
	if len(ds.Attributes) == 0 {
		ds.Attributes = models.CoreAttributes()
	}

	var problems []string
	seen := make(map[string]bool, len(raw.Cases))
	for i, rc := range raw.Cases {
		if seen[rc.ID] {
			problems = append(problems, fmt.Sprintf("/cases/%d: duplicate id %q", i, rc.ID))
			continue
		}
		seen[rc.ID] = true

		c, err := ds.buildCase(rc)
		if err != nil {
			problems = append(problems, fmt.Sprintf("/cases/%d (%s): %v", i, rc.ID, err))
			continue
		}
		ds.Cases = append(ds.Cases, c)
	}
	if len(problems) > 0 {
		return nil, &Error{Path: path, Problems: problems}
	}
	return ds, nil
}

// Validate runs the schema check and full decode, returning every problem
// found. The error is non-nil only when the file cannot be read.
func Validate(path string) ([]string, error) {
	problems, err := validation.ValidateDatasetFile(path)
	if err != nil || len(problems) > 0 {
		return problems, err
	}
	if _, err := Load(path, nil); err != nil {
		var dsErr *Error
		if errors.As(err, &dsErr) {
			return dsErr.Problems, nil
		}
		return nil, err
	}
	return nil, nil
}

func (ds *Dataset) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ds.Dir, p)
}

func (ds *Dataset) buildCase(rc rawCase) (Case, error) {
	c := Case{ID: rc.ID, Document: ds.resolve(rc.Document)}

	if rc.ExpectedCSV != "" {
		c.ExpectedCSV = ds.resolve(rc.ExpectedCSV)
		exp, err := loadExpectedCSV(c.ExpectedCSV, ds.Attributes)
		if err != nil {
			return Case{}, err
		}
		c.Expected = exp
		return c, nil
	}

	if rc.Expected == nil {
		return Case{}, errors.New("no expected_output or expected_csv")
	}
	exp, err := rc.Expected.toModel()
	if err != nil {
		return Case{}, err
	}
	c.Expected = exp
	return c, nil
}

func loadExpectedCSV(path string, attrs models.AttributeSet) (models.ExpectedOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ExpectedOutput{}, fmt.Errorf("reading expected csv: %w", err)
	}
	res := parser.Parse(string(data), attrs)
	if err := res.Err(); err != nil {
		return models.ExpectedOutput{}, fmt.Errorf("expected csv %s: %w", filepath.Base(path), err)
	}
	questions := res.Questions
	if questions == nil {
		questions = []models.QuestionRecord{}
	}
	return models.ExpectedOutput{Questions: questions}, nil
}

// knownAttributes covers every profile, so a flat score key is recognised
// whichever profile the dataset uses.
var knownAttributes = models.ExtendedAttributes()

func (re *rawExpected) toModel() (models.ExpectedOutput, error) {
	out := models.ExpectedOutput{Questions: make([]models.QuestionRecord, 0, len(re.Questions))}

	for i, rq := range re.Questions {
		scores := make(map[string]int, len(rq.Scores)+len(rq.Rest))
		for k, v := range rq.Scores {
			scores[strings.ToLower(k)] = v
		}
		for k, v := range rq.Rest {
			k = strings.ToLower(k)
			if !knownAttributes.Has(k) {
				continue
			}
			var n int
			if err := decode(v, &n); err != nil {
				return models.ExpectedOutput{}, fmt.Errorf("question %d: field %q: %w", i+1, k, err)
			}
			scores[k] = n
		}
		for k, v := range scores {
			if v < models.MinScore || v > models.MaxScore {
				return models.ExpectedOutput{}, fmt.Errorf("question %d: %s score %d is outside %d-%d", i+1, k, v, models.MinScore, models.MaxScore)
			}
		}

		number := rq.Number
		if number == "" {
			number = rq.QuestionNumber
		}
		section := strings.TrimSpace(rq.Section)
		if section == "" {
			section = models.DefaultSection
		}
		out.Questions = append(out.Questions, models.NewQuestionRecord(section, number, strings.TrimSpace(rq.QuestionText), scores))
	}

	if len(re.SectionAverages) > 0 {
		names := make([]string, 0, len(re.SectionAverages))
		for name := range re.SectionAverages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out.SectionAverages = append(out.SectionAverages, models.NewSectionSummary(name, re.SectionAverages[name]))
		}
	}
	return out, nil
}

// decode runs mapstructure with weak typing so that a numeric question
// number decodes into a string field.
func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
