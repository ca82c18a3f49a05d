package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// ErrPromptTimeout is returned when the prompt sentinel does not
// reappear within the run's deadline. There is no structured completion
// signal from the shell; the deadline is the only bound.
var ErrPromptTimeout = errors.New("timed out waiting for shell prompt")

// collect tails the output log from the start of the current collection
// window, line by line, until the prompt sentinel reappears. Escape
// sequences are stripped from every line. The prompt line itself is
// dropped. When no new output is available the collector sleeps one
// poll interval rather than busy-spinning. Returns the collected
// output and whether it was trimmed to the retention budget.
func (s *Session) collect(ctx context.Context) (string, bool, error) {
	f, err := os.Open(s.logPath)
	if err != nil {
		return "", false, fmt.Errorf("opening output log: %w", err)
	}
	defer f.Close()

	w := newTailWindow(s.maxOutput)
	var pending []byte
	buf := make([]byte, 4096)

	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := cleanLine(pending[:i])
				pending = pending[i+1:]
				if s.promptReturned(line) {
					return w.String(), w.truncated, nil
				}
				w.add(line + "\n")
			}
			// The prompt never ends in a newline, so the trailing
			// partial line must be checked too.
			if s.promptReturned(cleanLine(pending)) {
				return w.String(), w.truncated, nil
			}
		}
		if rerr != nil && rerr != io.EOF {
			return "", false, fmt.Errorf("reading output log: %w", rerr)
		}
		if n > 0 && rerr == nil {
			continue // drain available data before sleeping
		}
		if err := sleepCtx(ctx, s.pollInterval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", false, ErrPromptTimeout
			}
			return "", false, err
		}
	}
}

// cleanLine strips terminal escape sequences and a trailing CR.
func cleanLine(b []byte) string {
	return ansi.Strip(strings.TrimSuffix(string(b), "\r"))
}

// promptReturned reports whether line is the shell prompt: the sentinel
// anchored at the start of the stripped line. Anchoring avoids false
// completion when ordinary output mentions user@host mid-line.
func (s *Session) promptReturned(line string) bool {
	return s.sentinel != "" && strings.HasPrefix(line, s.sentinel)
}

// tailWindow accumulates lines but retains only the most recent ones
// whose total size fits the budget, protecting the caller and transport
// from unbounded payloads on chatty commands.
type tailWindow struct {
	budget    int
	lines     []string
	size      int
	truncated bool
}

func newTailWindow(budget int) *tailWindow {
	return &tailWindow{budget: budget}
}

func (w *tailWindow) add(line string) {
	w.lines = append(w.lines, line)
	w.size += len(line)
	for w.size > w.budget && len(w.lines) > 1 {
		w.size -= len(w.lines[0])
		w.lines = w.lines[1:]
		w.truncated = true
	}
	if w.size > w.budget {
		// A single line larger than the whole budget: keep its tail.
		keep := w.lines[0][w.size-w.budget:]
		w.lines[0] = keep
		w.size = len(keep)
		w.truncated = true
	}
}

func (w *tailWindow) String() string {
	return strings.Join(w.lines, "")
}
