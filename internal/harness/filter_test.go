package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyeval/qscore/internal/dataset"
)

func TestFilterCases(t *testing.T) {
	cases := []dataset.Case{{ID: "intake-2024"}, {ID: "intake-2025"}, {ID: "exit-2025"}}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"no patterns", nil, []string{"intake-2024", "intake-2025", "exit-2025"}},
		{"prefix glob", []string{"intake-*"}, []string{"intake-2024", "intake-2025"}},
		{"several patterns", []string{"*-2024", "exit-*"}, []string{"intake-2024", "exit-2025"}},
		{"no match", []string{"none"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterCases(cases, tt.patterns)
			require.NoError(t, err)
			var ids []string
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterCases_BadPattern(t *testing.T) {
	_, err := FilterCases([]dataset.Case{{ID: "a"}}, []string{"[a-"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid case filter pattern")
}
