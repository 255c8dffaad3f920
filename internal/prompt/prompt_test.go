package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyeval/qscore/internal/models"
)

func TestBuild_EmbeddedTemplate(t *testing.T) {
	out, err := New().Build("## Demographics\nWhat is your age?", models.CoreAttributes())
	require.NoError(t, err)

	assert.Contains(t, out, "## Demographics\nWhat is your age?")
	assert.Contains(t, out, "Section,Question_Number,Question_Text,Clarity,Specificity,Bias,Actionability\n")
	assert.Contains(t, out, "Demographics,1,What is your age?,5,5,5,3")
	assert.Contains(t, out, `use "General" as the section name`)
	assert.Contains(t, out, "All scores must be integers 1-5")
	assert.Contains(t, out, "- Clarity: Is the question unambiguous and easy to understand?")
	assert.NotContains(t, out, "Pivot_Value")
	assert.NotContains(t, out, "<no value>")
}

func TestBuild_ExtendedProfile(t *testing.T) {
	out, err := New().Build("text", models.ExtendedAttributes())
	require.NoError(t, err)
	assert.Contains(t, out, "Clarity,Specificity,Bias,Actionability,Narrative_Value,Research_Value,Pivot_Value")
	assert.Contains(t, out, "Demographics,1,What is your age?,5,5,5,3,5,5,5")
	assert.Contains(t, out, "Demographics,2,How satisfied are you with our amazing product?,4,2,2,3,3,3,3")
}

func TestBuild_NoAttributes(t *testing.T) {
	_, err := New().Build("text", nil)
	require.Error(t, err)
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "Section,Question_Number,Question_Text,Clarity,Specificity,Bias,Actionability", Header(models.CoreAttributes()))
}

func TestFromFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr string
	}{
		{
			name:    "custom template",
			content: "Score this:\n{{.Document}}\nColumns: {{.Header}}",
			want:    "Score this:\nhello\nColumns: Section,Question_Number,Question_Text,Clarity,Specificity,Bias,Actionability",
		},
		{
			name:    "parse error",
			content: "{{.Document",
			wantErr: "parse",
		},
		{
			name:    "unknown field",
			content: "{{.Nope}}",
			wantErr: "render",
		},
		{
			name:    "empty",
			content: "  \n",
			wantErr: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prompt.tmpl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			b, err := FromFile(path)
			if err == nil {
				var out string
				out, err = b.Build("hello", models.CoreAttributes())
				if tt.wantErr == "" {
					require.NoError(t, err)
					assert.Equal(t, tt.want, out)
					assert.Equal(t, path, b.Name())
					return
				}
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestFromFile_EmptyPathUsesEmbedded(t *testing.T) {
	b, err := FromFile("")
	require.NoError(t, err)
	assert.Equal(t, "scoring.tmpl", b.Name())
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.tmpl"))
	require.Error(t, err)
}
