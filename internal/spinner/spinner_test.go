package spinner

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStart_NonTerminalPrintsLines(t *testing.T) {
	var buf bytes.Buffer
	s := Start(&buf, "scoring a.docx")
	s.Update("scoring a.docx")
	s.Update("scoring b.pdf")
	s.Stop()
	s.Stop()

	assert.Equal(t, "scoring a.docx\nscoring b.pdf\n", buf.String())
}

func TestStart_InteractiveAnimatesAndClears(t *testing.T) {
	buf := &syncBuffer{}
	s := start(buf, "scoring", true)
	time.Sleep(3 * interval)
	s.Update("scoring case 2/3")
	time.Sleep(3 * interval)
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "\r"+frames[0]+" scoring")
	assert.Contains(t, out, "scoring case 2/3")
	assert.True(t, strings.HasSuffix(out, "\r"), "line is cleared on stop")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(io.Discard))
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
