package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultSection is used when the model does not report a section for a question.
const DefaultSection = "General"

// QuestionRecord is one extracted question and its per-attribute scores.
// Records are built once by the response parser and never mutated.
type QuestionRecord struct {
	Section      string         `json:"section" yaml:"section"`
	Number       string         `json:"number,omitempty" yaml:"number,omitempty"`
	QuestionText string         `json:"question_text" yaml:"question_text"`
	Scores       map[string]int `json:"scores" yaml:"scores"`
}

// NewQuestionRecord copies scores so the caller's map cannot alias the record.
func NewQuestionRecord(section, number, text string, scores map[string]int) QuestionRecord {
	cp := make(map[string]int, len(scores))
	for k, v := range scores {
		cp[k] = v
	}
	return QuestionRecord{
		Section:      section,
		Number:       number,
		QuestionText: text,
		Scores:       cp,
	}
}

// Score returns the score for an attribute key.
func (q QuestionRecord) Score(key string) (int, bool) {
	v, ok := q.Scores[key]
	return v, ok
}

// SectionSummary holds the mean score per attribute for one section.
type SectionSummary struct {
	Section       string             `json:"section"`
	QuestionCount int                `json:"question_count"`
	MeanScores    map[string]float64 `json:"mean_scores"`
}

// QuestionCountKey carries SectionSummary.QuestionCount inside a section's
// JSON object, next to the attribute means.
const QuestionCountKey = "question_count"

// NewSectionSummary builds a summary from a decoded section object, moving
// the question_count entry out of the means.
func NewSectionSummary(section string, means map[string]float64) SectionSummary {
	sum := SectionSummary{Section: section, MeanScores: means}
	if n, ok := means[QuestionCountKey]; ok {
		sum.QuestionCount = int(n)
		delete(means, QuestionCountKey)
	}
	return sum
}

// SectionAverages is the ordered list of section summaries. Order is the
// first-encounter order of sections in the question list, and it is kept
// when marshalled to JSON as {"section": {"question_count": n, "attribute": mean}}.
// question_count is left out when zero.
type SectionAverages []SectionSummary

// Get looks up a section by exact name.
func (s SectionAverages) Get(section string) (SectionSummary, bool) {
	for _, sum := range s {
		if sum.Section == section {
			return sum, true
		}
	}
	return SectionSummary{}, false
}

// Sections returns section names in order.
func (s SectionAverages) Sections() []string {
	out := make([]string, len(s))
	for i, sum := range s {
		out[i] = sum.Section
	}
	return out
}

// MarshalJSON implements [json.Marshaler].
func (s SectionAverages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sum := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sum.Section)
		if err != nil {
			return nil, err
		}
		means := sum.MeanScores
		if means == nil {
			means = map[string]float64{}
		}
		val, err := json.Marshal(means)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if sum.QuestionCount > 0 {
			fmt.Fprintf(&buf, `{"%s":%d`, QuestionCountKey, sum.QuestionCount)
			if len(means) > 0 {
				buf.WriteByte(',')
			}
			buf.Write(val[1:])
			continue
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements [json.Unmarshaler], preserving key order.
func (s *SectionAverages) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("section_averages: expected object, got %v", tok)
	}

	var out SectionAverages
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("section_averages: unexpected key %v", keyTok)
		}
		var means map[string]float64
		if err := dec.Decode(&means); err != nil {
			return fmt.Errorf("section_averages[%q]: %w", key, err)
		}
		out = append(out, NewSectionSummary(key, means))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// RowIssue records a model reply row that was dropped during parsing.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// TokenUsage reports what the model call consumed.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ScoringResult is the output for one document.
type ScoringResult struct {
	RunID           string           `json:"run_id,omitempty"`
	Document        string           `json:"document"`
	Model           string           `json:"model,omitempty"`
	Attributes      []string         `json:"attributes"`
	Questions       []QuestionRecord `json:"questions"`
	Sections        []string         `json:"sections"`
	SectionAverages SectionAverages  `json:"section_averages"`
	ParseErrors     []RowIssue       `json:"parse_errors,omitempty"`
	Usage           *TokenUsage      `json:"usage,omitempty"`
	DurationMs      int64            `json:"duration_ms,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// HasSection reports whether the result contains the exact section name.
func (r *ScoringResult) HasSection(section string) bool {
	for _, s := range r.Sections {
		if s == section {
			return true
		}
	}
	return false
}
