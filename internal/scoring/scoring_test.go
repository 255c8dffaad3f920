package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyeval/qscore/internal/models"
)

func q(section, text string, clarity, specificity, bias, actionability int) models.QuestionRecord {
	return models.NewQuestionRecord(section, "", text, map[string]int{
		"clarity":       clarity,
		"specificity":   specificity,
		"bias":          bias,
		"actionability": actionability,
	})
}

func TestAggregate_MeansPerSection(t *testing.T) {
	questions := []models.QuestionRecord{
		q("Usage", "Q1", 5, 4, 5, 3),
		q("Usage", "Q2", 5, 4, 5, 3),
		q("Usage", "Q3", 5, 2, 5, 3),
		q("Usage", "Q4", 3, 2, 4, 2),
	}

	avgs := Aggregate(questions, models.CoreAttributes())
	require.Len(t, avgs, 1)

	sum := avgs[0]
	assert.Equal(t, "Usage", sum.Section)
	assert.Equal(t, 4, sum.QuestionCount)
	assert.InDelta(t, 4.00, sum.MeanScores["clarity"], 1e-9)
	assert.InDelta(t, 3.00, sum.MeanScores["specificity"], 1e-9)
	assert.InDelta(t, 4.75, sum.MeanScores["bias"], 1e-9)
	assert.InDelta(t, 2.75, sum.MeanScores["actionability"], 1e-9)
}

func TestAggregate_RoundsToTwoDecimals(t *testing.T) {
	questions := []models.QuestionRecord{
		q("A", "Q1", 1, 1, 1, 1),
		q("A", "Q2", 2, 2, 2, 2),
		q("A", "Q3", 2, 2, 2, 2),
	}
	avgs := Aggregate(questions, models.CoreAttributes())
	assert.InDelta(t, 1.67, avgs[0].MeanScores["clarity"], 1e-9)
}

func TestAggregate_FirstEncounterOrder(t *testing.T) {
	questions := []models.QuestionRecord{
		q("Zeta", "Q1", 1, 1, 1, 1),
		q("Alpha", "Q2", 2, 2, 2, 2),
		q("Zeta", "Q3", 3, 3, 3, 3),
		q("Middle", "Q4", 4, 4, 4, 4),
	}

	avgs := Aggregate(questions, models.CoreAttributes())
	assert.Equal(t, []string{"Zeta", "Alpha", "Middle"}, avgs.Sections())

	data, err := json.Marshal(avgs)
	require.NoError(t, err)
	assert.Equal(t,
		`{"Zeta":{"actionability":2,"bias":2,"clarity":2,"specificity":2},`+
			`"Alpha":{"actionability":2,"bias":2,"clarity":2,"specificity":2},`+
			`"Middle":{"actionability":4,"bias":4,"clarity":4,"specificity":4}}`,
		string(data))
}

func TestAggregate_OnlySectionsFromInput(t *testing.T) {
	avgs := Aggregate([]models.QuestionRecord{q("Usage", "Q1", 3, 3, 3, 3)}, models.CoreAttributes())
	_, ok := avgs.Get("Demographics")
	assert.False(t, ok)
	_, ok = avgs.Get(models.DefaultSection)
	assert.False(t, ok)

	assert.Empty(t, Aggregate(nil, models.CoreAttributes()))
}

func TestNewResult_SectionsMatchAverages(t *testing.T) {
	questions := []models.QuestionRecord{
		q("Demographics", "What is your age?", 5, 5, 5, 3),
		q(models.DefaultSection, "Anything else?", 4, 2, 5, 2),
		q("Demographics", "Where do you live?", 4, 4, 5, 3),
	}

	res := NewResult("survey.docx", questions, models.CoreAttributes())

	assert.Equal(t, "survey.docx", res.Document)
	assert.Equal(t, []string{"clarity", "specificity", "bias", "actionability"}, res.Attributes)
	assert.Equal(t, []string{"Demographics", models.DefaultSection}, res.Sections)
	assert.Equal(t, res.Sections, res.SectionAverages.Sections())
	for _, qr := range res.Questions {
		assert.True(t, res.HasSection(qr.Section), qr.Section)
	}
	assert.False(t, res.GeneratedAt.IsZero())
}

func TestNewResult_EmptyQuestions(t *testing.T) {
	res := NewResult("empty.txt", nil, models.CoreAttributes())
	assert.NotNil(t, res.Questions)
	assert.Empty(t, res.Sections)
	assert.Empty(t, res.SectionAverages)
}

func TestOverallMeans(t *testing.T) {
	questions := []models.QuestionRecord{
		q("A", "Q1", 5, 1, 1, 1),
		q("B", "Q2", 3, 1, 1, 1),
	}
	means := OverallMeans(questions, models.CoreAttributes())
	assert.InDelta(t, 4.0, means["clarity"], 1e-9)
	assert.InDelta(t, 1.0, means["bias"], 1e-9)
	assert.Empty(t, OverallMeans(nil, models.CoreAttributes()))
}
