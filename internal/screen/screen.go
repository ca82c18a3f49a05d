// Package screen wraps GNU screen session operations via subprocess.
// It is the control channel for keystroke injection and the owner of
// the session's output log mirroring.
package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// validSessionNameRe validates session names before they are passed to
// screen on a command line.
var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ErrInvalidSessionName is returned for session names that screen would
// mangle or that could escape argument boundaries.
var ErrInvalidSessionName = errors.New("invalid session name")

// Screen controls one named GNU screen session.
type Screen struct {
	// Name is the screen session name (-S).
	Name string
}

// New validates name and returns a Screen for it.
func New(name string) (*Screen, error) {
	if name == "" || !validSessionNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, validSessionNameRe.String())
	}
	return &Screen{Name: name}, nil
}

// Exists reports whether the session is known to the screen server.
func (s *Screen) Exists(ctx context.Context) bool {
	// `screen -S name -Q select .` exits 0 only when the session exists.
	cmd := exec.CommandContext(ctx, "screen", "-S", s.Name, "-Q", "select", ".")
	return cmd.Run() == nil
}

// Create starts a new detached session running the given shell.
func (s *Screen) Create(ctx context.Context, shell string) error {
	return s.run(ctx, exec.CommandContext(ctx, "screen", "-dmS", s.Name, "-s", shell))
}

// Kill terminates the session.
func (s *Screen) Kill(ctx context.Context) error {
	return s.run(ctx, s.command(ctx, "quit"))
}

// Stuff injects raw keystrokes into the session's input. The bytes are
// delivered verbatim; a newline submits the pending input line.
func (s *Screen) Stuff(ctx context.Context, keys string) error {
	return s.run(ctx, s.command(ctx, "stuff", keys))
}

// MirrorOutput points the session's log at path and enables logging
// with per-second flushing, so that everything the terminal renders
// appears in the file almost immediately.
func (s *Screen) MirrorOutput(ctx context.Context, path string) error {
	steps := [][]string{
		{"logfile", path},
		{"log", "on"},
		{"deflog", "on"},
		{"logfile", "flush", strconv.Itoa(1)},
	}
	for _, args := range steps {
		if err := s.run(ctx, s.command(ctx, args...)); err != nil {
			return fmt.Errorf("configuring log mirror (%s): %w", strings.Join(args, " "), err)
		}
	}
	return nil
}

// command builds a `screen -S name -X ...` control command.
func (s *Screen) command(ctx context.Context, args ...string) *exec.Cmd {
	argv := append([]string{"-S", s.Name, "-X"}, args...)
	return exec.CommandContext(ctx, "screen", argv...)
}

// run executes cmd, folding captured stderr into the returned error.
func (s *Screen) run(_ context.Context, cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("screen %s: %w: %s", s.Name, err, msg)
		}
		return fmt.Errorf("screen %s: %w", s.Name, err)
	}
	return nil
}
