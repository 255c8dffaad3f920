// Package spinner shows a one-line progress indicator while documents are
// scored.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates a message on a terminal. On anything else it prints each
// message once on its own line.
type Spinner struct {
	w           io.Writer
	interactive bool

	mu      sync.Mutex
	message string
	width   int

	done    chan struct{}
	cleared chan struct{}
	once    sync.Once
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start begins drawing message on w. Call Stop to clear the line.
func Start(w io.Writer, message string) *Spinner {
	return start(w, message, IsTerminal(w))
}

func start(w io.Writer, message string, interactive bool) *Spinner {
	s := &Spinner{
		w:           w,
		interactive: interactive,
		message:     message,
		done:        make(chan struct{}),
		cleared:     make(chan struct{}),
	}
	if !interactive {
		fmt.Fprintln(w, message) //nolint:errcheck
		close(s.cleared)
		return s
	}
	go s.loop()
	return s
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width)) //nolint:errcheck
			s.mu.Unlock()
			close(s.cleared)
			return
		case <-ticker.C:
			s.mu.Lock()
			line := frames[i%len(frames)] + " " + s.message
			pad := max(s.width-runewidth.StringWidth(line), 0)
			fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", pad)) //nolint:errcheck
			s.width = max(s.width, runewidth.StringWidth(line))
			s.mu.Unlock()
			i++
		}
	}
}

// Update replaces the message.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message == message {
		return
	}
	s.message = message
	if !s.interactive {
		fmt.Fprintln(s.w, message) //nolint:errcheck
	}
}

// Stop clears the line and waits for the animation to end. It is safe to
// call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		if s.interactive {
			close(s.done)
		}
	})
	<-s.cleared
}
