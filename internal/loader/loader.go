// Package loader extracts plain text from survey documents.
//
// Supported formats are .docx and .odt (via tabula), .pdf (via
// ledongthuc/pdf, falling back to tabula), .md (via goldmark) and .txt.
// Headings are kept as "## " prefixed lines so the model can see section
// boundaries.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Format identifies the document kind by extension.
type Format string

const (
	FormatDOCX     Format = "docx"
	FormatODT      Format = "odt"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ErrUnsupported is wrapped by LoadError for unknown extensions.
var ErrUnsupported = errors.New("unsupported file type")

// ErrNoText is wrapped by LoadError when a document yields nothing.
var ErrNoText = errors.New("document contains no text")

// Document is a loaded survey document.
type Document struct {
	Path   string
	Name   string
	Format Format
	Text   string
	// Warnings are non-fatal extraction issues.
	Warnings []string
}

// Stem is the file name without its extension.
func (d *Document) Stem() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}

// LoadError reports a document that could not be turned into text.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader reads documents from disk.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader. A nil logger discards output.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// DetectFormat maps a path's extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDOCX, nil
	case ".odt":
		return FormatODT, nil
	case ".pdf":
		return FormatPDF, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w %q (supported: .docx, .odt, .pdf, .md, .txt)", ErrUnsupported, filepath.Ext(path))
	}
}

// Load reads the document at path.
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: errors.New("is a directory")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	doc := &Document{Path: path, Name: filepath.Base(path), Format: format}

	switch format {
	case FormatDOCX, FormatODT:
		doc.Text, doc.Warnings, err = l.readTabula(path)
	case FormatPDF:
		doc.Text, err = readPDF(path)
		if err != nil || strings.TrimSpace(doc.Text) == "" {
			l.logger.Debug("pdf text layer empty, retrying with tabula", "path", path, "error", err)
			doc.Text, doc.Warnings, err = l.readTabula(path)
		}
	case FormatMarkdown:
		doc.Text, err = readMarkdown(path)
	case FormatText:
		var data []byte
		data, err = os.ReadFile(path)
		doc.Text = string(data)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	doc.Text = normalize(doc.Text)
	if doc.Text == "" {
		return nil, &LoadError{Path: path, Err: ErrNoText}
	}

	l.logger.Debug("document loaded", "path", path, "format", format, "chars", len(doc.Text), "warnings", len(doc.Warnings))
	return doc, nil
}

func (l *Loader) readTabula(path string) (string, []string, error) {
	md, warnings, err := tabula.Open(path).ToMarkdown()
	if err != nil {
		return "", nil, err
	}
	var msgs []string
	for _, w := range warnings {
		l.logger.Debug("extraction warning", "path", path, "warning", w.Message)
		msgs = append(msgs, w.Message)
	}
	return headingsToLevelTwo(md), msgs, nil
}

// headingsToLevelTwo rewrites every markdown heading as "## title".
func headingsToLevelTwo(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		title := strings.TrimLeft(trimmed, "#")
		if title == "" || title[0] != ' ' {
			continue
		}
		lines[i] = "## " + strings.TrimSpace(title)
	}
	return strings.Join(lines, "\n")
}

func readPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func readMarkdown(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return markdownText(src), nil
}

// markdownText flattens markdown into heading-marked plain text.
func markdownText(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			b.WriteString("## ")
			b.Write(bytes.TrimSpace(inlineText(n, src)))
			b.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			b.Write(inlineText(n, src))
			b.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// inlineText collects the text of a block's inline children. Soft line
// breaks become newlines so choice lists stay on their own lines.
func inlineText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.CodeSpan:
			for cc := v.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if t, ok := cc.(*ast.Text); ok {
					buf.Write(t.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.Bytes()
}

// normalize unifies line endings, trims trailing spaces and collapses runs of
// blank lines.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
