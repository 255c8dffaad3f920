package models

import (
	"fmt"
	"strings"
)

// Attribute is one scoring dimension the model rates on a 1-5 scale.
type Attribute struct {
	// Key is the lowercase identifier used in results and metric names (e.g. "clarity").
	Key string `json:"key" yaml:"key"`
	// Column is the CSV header the model is asked to emit (e.g. "Clarity").
	Column string `json:"column" yaml:"column"`
	// Label is the human-readable name.
	Label string `json:"label" yaml:"label"`
	// Question is the rubric question shown to the model.
	Question string `json:"question" yaml:"question"`
	// High, Mid and Low describe what a 5, 3 and 1 mean.
	High string `json:"high" yaml:"high"`
	Mid  string `json:"mid" yaml:"mid"`
	Low  string `json:"low" yaml:"low"`
}

// AttributeSet is the fixed, ordered list of attributes for a run. Every
// question record carries a score for each attribute in the set and nothing else.
type AttributeSet []Attribute

const (
	ProfileCore     = "core"
	ProfileExtended = "extended"
)

// MinScore and MaxScore bound every attribute score.
const (
	MinScore = 1
	MaxScore = 5
)

var coreAttributes = AttributeSet{
	{
		Key:      "clarity",
		Column:   "Clarity",
		Label:    "Clarity",
		Question: "Is the question unambiguous and easy to understand?",
		High:     "Crystal clear, no room for misinterpretation",
		Mid:      "Somewhat clear but could be improved",
		Low:      "Confusing or vague",
	},
	{
		Key:      "specificity",
		Column:   "Specificity",
		Label:    "Specificity",
		Question: "Does it ask for concrete, specific information?",
		High:     "Very specific, narrow scope",
		Mid:      "Moderately specific",
		Low:      "Extremely broad or general",
	},
	{
		Key:      "bias",
		Column:   "Bias",
		Label:    "Bias",
		Question: "Is the question neutrally worded?",
		High:     "Completely neutral",
		Mid:      "Slightly leading or contains mild bias",
		Low:      "Heavily biased or leading",
	},
	{
		Key:      "actionability",
		Column:   "Actionability",
		Label:    "Actionability",
		Question: "Can responses drive concrete decisions?",
		High:     "Directly actionable insights",
		Mid:      "Somewhat useful for decisions",
		Low:      "Not actionable",
	},
}

var extendedAttributes = AttributeSet{
	{
		Key:      "narrative_value",
		Column:   "Narrative_Value",
		Label:    "Narrative Value",
		Question: "How valuable is the question to the target story?",
		High:     "Essential to the story",
		Mid:      "Somewhat useful for the story",
		Low:      "Completely irrelevant to the story",
	},
	{
		Key:      "research_value",
		Column:   "Research_Value",
		Label:    "Research Value",
		Question: "How valuable is this information to our product or marketing research?",
		High:     "Essential to the research",
		Mid:      "Somewhat useful for the research",
		Low:      "Completely irrelevant to the research",
	},
	{
		Key:      "pivot_value",
		Column:   "Pivot_Value",
		Label:    "Pivot Value",
		Question: "Is this question likely to be one that creates useful segments of the target audience?",
		High:     "Yes a core pivot question",
		Mid:      "Would be a pivot for a smaller segment of the target audience",
		Low:      "Not a pivot question",
	},
}

// CoreAttributes returns clarity, specificity, bias and actionability.
func CoreAttributes() AttributeSet {
	return append(AttributeSet(nil), coreAttributes...)
}

// ExtendedAttributes returns the core set followed by the narrative, research
// and pivot value attributes.
func ExtendedAttributes() AttributeSet {
	out := CoreAttributes()
	return append(out, extendedAttributes...)
}

// AttributeProfile resolves a profile name to its attribute set. An empty
// name selects the core profile.
func AttributeProfile(name string) (AttributeSet, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileCore:
		return CoreAttributes(), nil
	case ProfileExtended:
		return ExtendedAttributes(), nil
	default:
		return nil, fmt.Errorf("unknown attribute profile %q (supported: %s, %s)", name, ProfileCore, ProfileExtended)
	}
}

// Keys returns the attribute keys in order.
func (s AttributeSet) Keys() []string {
	keys := make([]string, len(s))
	for i, a := range s {
		keys[i] = a.Key
	}
	return keys
}

// Columns returns the CSV column names in order.
func (s AttributeSet) Columns() []string {
	cols := make([]string, len(s))
	for i, a := range s {
		cols[i] = a.Column
	}
	return cols
}

// Has reports whether key names an attribute in the set.
func (s AttributeSet) Has(key string) bool {
	for _, a := range s {
		if a.Key == key {
			return true
		}
	}
	return false
}

// ByColumn finds the attribute for a CSV header, matching either the column
// name or the key case-insensitively.
func (s AttributeSet) ByColumn(column string) (Attribute, bool) {
	c := strings.TrimSpace(column)
	for _, a := range s {
		if strings.EqualFold(a.Column, c) || strings.EqualFold(a.Key, c) {
			return a, true
		}
	}
	return Attribute{}, false
}
