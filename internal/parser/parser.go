// Package parser turns the model's CSV reply into question records.
//
// The reply is expected to be one row per question:
//
//	Section,Question_Number,Question_Text,Clarity,Specificity,Bias,Actionability
//
// Rows that do not match the schema are dropped and reported as [ParseError]s;
// the rest of the reply is still parsed.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/surveyeval/qscore/internal/models"
)

// ParseError describes one rejected row of the model reply.
type ParseError struct {
	// Row is the 1-based line number where the row starts.
	Row    int
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Result is the output of [Parse].
type Result struct {
	Questions []models.QuestionRecord
	Errors    []*ParseError
	// DataRows counts non-blank, non-header rows seen, accepted or not.
	DataRows    int
	HeaderFound bool
}

// Err joins all row errors, or returns nil when every row parsed.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Issues converts the row errors into their serializable form.
func (r *Result) Issues() []models.RowIssue {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]models.RowIssue, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = models.RowIssue{Row: e.Row, Reason: e.Reason, Raw: e.Raw}
	}
	return out
}

// layout maps CSV columns to record fields. Indices are -1 when absent.
type layout struct {
	section  int
	number   int
	question int
	scores   []int
	width    int
}

func positionalLayout(attrs models.AttributeSet) layout {
	l := layout{section: 0, number: 1, question: 2, width: 3 + len(attrs)}
	l.scores = make([]int, len(attrs))
	for i := range attrs {
		l.scores[i] = 3 + i
	}
	return l
}

// headerLayout builds a layout from a header row. It returns an error naming
// the first required column that is missing.
func headerLayout(header []string, attrs models.AttributeSet) (layout, error) {
	l := layout{section: -1, number: -1, question: -1, width: len(header)}
	l.scores = make([]int, len(attrs))
	for i := range l.scores {
		l.scores[i] = -1
	}

	for i, h := range header {
		switch normalizeHeader(h) {
		case "section":
			l.section = i
		case "question_number", "number", "question_no", "no":
			l.number = i
		case "question_text", "question", "text":
			l.question = i
		default:
			if a, ok := attrs.ByColumn(normalizeHeader(h)); ok {
				for j, want := range attrs {
					if want.Key == a.Key {
						l.scores[j] = i
					}
				}
			}
		}
	}

	if l.section < 0 {
		return l, errors.New("header is missing the Section column")
	}
	if l.question < 0 {
		return l, errors.New("header is missing the Question_Text column")
	}
	for j, idx := range l.scores {
		if idx < 0 {
			return l, fmt.Errorf("header is missing the %s column", attrs[j].Column)
		}
	}
	return l, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// CleanReply trims the reply and removes a surrounding markdown code fence.
func CleanReply(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Parse reads the model reply against the attribute set. It never fails as a
// whole: malformed rows are skipped and returned in Result.Errors.
func Parse(text string, attrs models.AttributeSet) *Result {
	res := &Result{}
	cleaned := CleanReply(text)
	lines := strings.Split(cleaned, "\n")

	r := csv.NewReader(strings.NewReader(cleaned))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	p := &rowParser{res: res, attrs: attrs, lay: positionalLayout(attrs), first: true}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if !errors.As(err, &csvErr) {
				res.Errors = append(res.Errors, &ParseError{Reason: err.Error()})
				break
			}
			// A stray quote inside one line is read the lenient way; a
			// quoted field that spans lines and then breaks is dropped.
			if csvErr.StartLine == csvErr.Line && csvErr.StartLine <= len(lines) {
				p.handle(splitLenient(lines[csvErr.StartLine-1]), csvErr.StartLine)
				continue
			}
			res.DataRows++
			res.Errors = append(res.Errors, &ParseError{Row: csvErr.StartLine, Reason: csvErr.Err.Error()})
			continue
		}

		line, _ := r.FieldPos(0)
		p.handle(record, line)
	}

	return res
}

type rowParser struct {
	res   *Result
	attrs models.AttributeSet
	lay   layout
	first bool
}

func (p *rowParser) handle(record []string, line int) {
	if isBlank(record) {
		return
	}

	if p.first {
		p.first = false
		if normalizeHeader(record[0]) == "section" {
			p.res.HeaderFound = true
			hl, herr := headerLayout(record, p.attrs)
			if herr != nil {
				p.res.Errors = append(p.res.Errors, &ParseError{Row: line, Raw: strings.Join(record, ","), Reason: herr.Error()})
			} else {
				p.lay = hl
			}
			return
		}
	}

	p.res.DataRows++
	q, perr := parseRow(record, p.lay, p.attrs)
	if perr != nil {
		perr.Row = line
		perr.Raw = strings.Join(record, ",")
		p.res.Errors = append(p.res.Errors, perr)
		return
	}
	p.res.Questions = append(p.res.Questions, q)
}

// splitLenient splits one line the way a forgiving CSV reader does: a quote
// only opens a quoted section at the start of a field, "" inside it is a
// literal quote, and text after the closing quote stays in the same field.
func splitLenient(line string) []string {
	var fields []string
	var b strings.Builder
	quoted, start := false, true

	rs := []rune(line)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch {
		case quoted && c == '"':
			if i+1 < len(rs) && rs[i+1] == '"' {
				b.WriteRune('"')
				i++
			} else {
				quoted = false
			}
		case quoted:
			b.WriteRune(c)
		case c == ',':
			fields = append(fields, b.String())
			b.Reset()
			start = true
		case start && (c == ' ' || c == '\t'):
		case start && c == '"':
			quoted, start = true, false
		default:
			b.WriteRune(c)
			start = false
		}
	}
	return append(fields, b.String())
}

func parseRow(record []string, lay layout, attrs models.AttributeSet) (models.QuestionRecord, *ParseError) {
	if len(record) != lay.width {
		return models.QuestionRecord{}, &ParseError{
			Reason: fmt.Sprintf("wrong number of fields: got %d, want %d", len(record), lay.width),
		}
	}

	section := strings.TrimSpace(record[lay.section])
	if section == "" {
		section = models.DefaultSection
	}

	text := strings.TrimSpace(record[lay.question])
	if text == "" {
		return models.QuestionRecord{}, &ParseError{Reason: "question text is empty"}
	}

	var number string
	if lay.number >= 0 {
		number = strings.TrimSpace(record[lay.number])
	}

	scores := make(map[string]int, len(attrs))
	for i, a := range attrs {
		raw := strings.TrimSpace(record[lay.scores[i]])
		v, err := strconv.Atoi(raw)
		if err != nil {
			return models.QuestionRecord{}, &ParseError{
				Reason: fmt.Sprintf("%s score %q is not an integer", a.Column, raw),
			}
		}
		if v < models.MinScore || v > models.MaxScore {
			return models.QuestionRecord{}, &ParseError{
				Reason: fmt.Sprintf("%s score %d is outside %d-%d", a.Column, v, models.MinScore, models.MaxScore),
			}
		}
		scores[a.Key] = v
	}

	return models.NewQuestionRecord(section, number, text, scores), nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
