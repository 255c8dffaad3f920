// Package prompt renders the scoring instructions sent to the model.
package prompt

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/surveyeval/qscore/internal/models"
)

//go:embed scoring.tmpl
var defaultTemplate string

// Data is everything a template can reference.
type Data struct {
	Document       string
	Attributes     models.AttributeSet
	Header         string
	Examples       []string
	DefaultSection string
	MinScore       int
	MaxScore       int
}

// Builder renders prompts from a parsed template.
type Builder struct {
	tmpl *template.Template
	name string
}

// New returns a Builder using the embedded template.
func New() *Builder {
	b, err := Parse("scoring.tmpl", defaultTemplate)
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded template: %v", err))
	}
	return b
}

// FromFile returns a Builder for a custom template. An empty path yields the
// embedded template.
func FromFile(path string) (*Builder, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: reading template: %w", err)
	}
	return Parse(path, string(data))
}

// Parse compiles template text. Unknown fields fail at render time.
func Parse(name, text string) (*Builder, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("prompt: template is empty")
	}
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt: parse: %w", err)
	}
	return &Builder{tmpl: t, name: name}, nil
}

// Name identifies the template source (file path or embedded name).
func (b *Builder) Name() string {
	return b.name
}

// Build renders the prompt for one document's text.
func (b *Builder) Build(document string, attrs models.AttributeSet) (string, error) {
	if len(attrs) == 0 {
		return "", errors.New("prompt: no attributes")
	}
	data := Data{
		Document:       document,
		Attributes:     attrs,
		Header:         Header(attrs),
		Examples:       Examples(attrs),
		DefaultSection: models.DefaultSection,
		MinScore:       models.MinScore,
		MaxScore:       models.MaxScore,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return buf.String(), nil
}

// Header is the exact CSV header the model must emit.
func Header(attrs models.AttributeSet) string {
	cols := append([]string{"Section", "Question_Number", "Question_Text"}, attrs.Columns()...)
	return strings.Join(cols, ",")
}

var exampleRows = []struct {
	prefix string
	scores []int
	fill   int
}{
	{"Demographics,1,What is your age?", []int{5, 5, 5, 3}, 5},
	{"Demographics,2,How satisfied are you with our amazing product?", []int{4, 2, 2, 3}, 3},
}

// Examples returns sample CSV rows sized to the attribute set.
func Examples(attrs models.AttributeSet) []string {
	out := make([]string, 0, len(exampleRows))
	for _, ex := range exampleRows {
		fields := []string{ex.prefix}
		for i := range attrs {
			v := ex.fill
			if i < len(ex.scores) {
				v = ex.scores[i]
			}
			fields = append(fields, strconv.Itoa(v))
		}
		out = append(out, strings.Join(fields, ","))
	}
	return out
}
