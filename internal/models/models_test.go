package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeProfile(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		wantKeys []string
		wantErr  bool
	}{
		{"empty defaults to core", "", []string{"clarity", "specificity", "bias", "actionability"}, false},
		{"core", "core", []string{"clarity", "specificity", "bias", "actionability"}, false},
		{"extended mixed case", " Extended ", []string{"clarity", "specificity", "bias", "actionability", "narrative_value", "research_value", "pivot_value"}, false},
		{"unknown", "fancy", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs, err := AttributeProfile(tt.profile)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, attrs.Keys())
		})
	}
}

func TestAttributeSet_ByColumn(t *testing.T) {
	attrs := ExtendedAttributes()

	a, ok := attrs.ByColumn("narrative_value")
	require.True(t, ok)
	assert.Equal(t, "Narrative_Value", a.Column)

	a, ok = attrs.ByColumn(" CLARITY ")
	require.True(t, ok)
	assert.Equal(t, "clarity", a.Key)

	_, ok = CoreAttributes().ByColumn("Pivot_Value")
	assert.False(t, ok)
}

func TestCoreAttributes_ReturnsCopy(t *testing.T) {
	a := CoreAttributes()
	a[0].Key = "mutated"
	assert.Equal(t, "clarity", CoreAttributes()[0].Key)
}

func TestNewQuestionRecord_CopiesScores(t *testing.T) {
	scores := map[string]int{"clarity": 4}
	q := NewQuestionRecord("Demographics", "1", "What is your age?", scores)
	scores["clarity"] = 1

	got, ok := q.Score("clarity")
	require.True(t, ok)
	assert.Equal(t, 4, got)
}

func TestSectionAverages_JSONKeepsOrder(t *testing.T) {
	avgs := SectionAverages{
		{Section: "Zeta", MeanScores: map[string]float64{"clarity": 4}},
		{Section: "Alpha", MeanScores: map[string]float64{"clarity": 2.5}},
		{Section: "Middle", MeanScores: map[string]float64{"clarity": 3}},
	}

	data, err := json.Marshal(avgs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Zeta":{"clarity":4},"Alpha":{"clarity":2.5},"Middle":{"clarity":3}}`, string(data))
	assert.Less(t, strings.Index(string(data), "Zeta"), strings.Index(string(data), "Alpha"))

	var back SectionAverages
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"Zeta", "Alpha", "Middle"}, back.Sections())

	sum, ok := back.Get("Alpha")
	require.True(t, ok)
	assert.InDelta(t, 2.5, sum.MeanScores["clarity"], 1e-9)
}

func TestSectionAverages_JSONKeepsQuestionCount(t *testing.T) {
	avgs := SectionAverages{
		{Section: "Usage", QuestionCount: 3, MeanScores: map[string]float64{"clarity": 4.33, "bias": 5}},
		{Section: "Empty", QuestionCount: 2},
		{Section: "Expected", MeanScores: map[string]float64{"clarity": 2}},
	}

	data, err := json.Marshal(avgs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Usage":{"question_count":3,"bias":5,"clarity":4.33},"Empty":{"question_count":2},"Expected":{"clarity":2}}`, string(data))

	var back SectionAverages
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, avgs[0], back[0])
	assert.Equal(t, 2, back[1].QuestionCount)
	assert.Empty(t, back[1].MeanScores)
	assert.Equal(t, avgs[2], back[2])
}

func TestSectionAverages_UnmarshalNullAndInvalid(t *testing.T) {
	var s SectionAverages
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Nil(t, s)

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &s))
}

func TestScoringResult_HasSection(t *testing.T) {
	r := &ScoringResult{Sections: []string{"Demographics", "Usage"}}
	assert.True(t, r.HasSection("Usage"))
	assert.False(t, r.HasSection("usage"))
}
