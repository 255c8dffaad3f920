package loader

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newLoader() *Loader {
	return New(slog.New(slog.DiscardHandler))
}

func TestLoad_Text(t *testing.T) {
	path := writeFile(t, "survey.txt", "Section 1: Demographics\r\nWhat is your age?   \r\n\r\n\r\n\r\nWhere do you live?\r\n")

	doc, err := newLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, FormatText, doc.Format)
	assert.Equal(t, "survey.txt", doc.Name)
	assert.Equal(t, "survey", doc.Stem())
	assert.Equal(t, "Section 1: Demographics\nWhat is your age?\n\nWhere do you live?", doc.Text)
}

func TestLoad_Markdown(t *testing.T) {
	src := "# Demographics\n\nWhat is your *age*?\n\n- Under 18\n- 18-34\n\n### Usage\n\nHow often do you log in?\n"
	path := writeFile(t, "survey.md", src)

	doc, err := newLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, doc.Format)
	assert.Contains(t, doc.Text, "## Demographics")
	assert.Contains(t, doc.Text, "What is your age?")
	assert.Contains(t, doc.Text, "Under 18")
	assert.Contains(t, doc.Text, "## Usage")
	assert.NotContains(t, doc.Text, "###")
	assert.Less(t, strings.Index(doc.Text, "## Demographics"), strings.Index(doc.Text, "## Usage"))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		path   string
		target error
	}{
		{"unsupported extension", writeFile(t, "survey.xlsx", "data"), ErrUnsupported},
		{"no extension", writeFile(t, "survey", "data"), ErrUnsupported},
		{"missing file", filepath.Join(dir, "missing.txt"), os.ErrNotExist},
		{"empty text", writeFile(t, "empty.txt", " \n\t\n"), ErrNoText},
		{"empty markdown", writeFile(t, "empty.md", "\n\n"), ErrNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader().Load(context.Background(), tt.path)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.path, loadErr.Path)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "folder.txt")
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := newLoader().Load(context.Background(), dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoad_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", "this is not a pdf")

	_, err := newLoader().Load(context.Background(), path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoad_CanceledContext(t *testing.T) {
	path := writeFile(t, "survey.txt", "What is your age?")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLoader().Load(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.docx", FormatDOCX},
		{"A.DOCX", FormatDOCX},
		{"a.odt", FormatODT},
		{"a.pdf", FormatPDF},
		{"a.md", FormatMarkdown},
		{"a.markdown", FormatMarkdown},
		{"a.txt", FormatText},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := DetectFormat("a.doc")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestHeadingsToLevelTwo(t *testing.T) {
	in := "# Title\nplain\n### Section 2: Usage\n#hashtag\n  ## Indented"
	want := "## Title\nplain\n## Section 2: Usage\n#hashtag\n## Indented"
	assert.Equal(t, want, headingsToLevelTwo(in))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\n\nb", normalize("\n\na  \n\n\n\nb\n\n"))
	assert.Equal(t, "", normalize(" \r\n \r\n"))
}
