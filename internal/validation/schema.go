// Package validation checks qscore input files against their JSON Schemas.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/surveyeval/qscore/schemas"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

var printer = message.NewPrinter(language.English)

var datasetSchema = compileEmbedded("dataset.schema.json", schemas.DatasetSchemaJSON)

// compileEmbedded panics on failure: the schema ships inside the binary, so a
// broken one is a build defect.
func compileEmbedded(name, raw string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// DecodeDocument parses dataset bytes into generic JSON values. Files ending
// in .json are read as JSON, anything else as YAML.
func DecodeDocument(path string, data []byte) (any, error) {
	var doc any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	return jsonValue(doc), nil
}

// ValidateDatasetFile validates the dataset at path. The error is non-nil
// only when the file cannot be read.
func ValidateDatasetFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return ValidateDatasetBytes(path, data), nil
}

// ValidateDatasetBytes validates raw dataset bytes. path only selects the parser.
func ValidateDatasetBytes(path string, data []byte) []string {
	doc, err := DecodeDocument(path, data)
	if err != nil {
		return []string{err.Error()}
	}
	return ValidateDataset(doc)
}

// ValidateDataset validates an already decoded dataset document.
func ValidateDataset(doc any) []string {
	return validateAgainstSchema(datasetSchema, doc)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{"schema: " + err.Error()}
	}
	return leafProblems(ve)
}

// leafProblems flattens the cause tree into "pointer: message" lines, one per
// leaf, in the validator's order.
func leafProblems(root *jsonschema.ValidationError) []string {
	var out []string
	stack := []*jsonschema.ValidationError{root}
	for len(stack) > 0 {
		ve := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(ve.Causes) > 0 {
			for i := len(ve.Causes) - 1; i >= 0; i-- {
				stack = append(stack, ve.Causes[i])
			}
			continue
		}
		out = append(out, "/"+strings.Join(ve.InstanceLocation, "/")+": "+ve.ErrorKind.LocalizedString(printer))
	}
	return out
}

// jsonValue rewrites yaml.v3 output into the shapes encoding/json would
// produce. Non-string map keys are stringified.
func jsonValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = jsonValue(item)
		}
		return val
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = jsonValue(item)
		}
		return m
	case []any:
		for i, item := range val {
			val[i] = jsonValue(item)
		}
		return val
	}
	return v
}
