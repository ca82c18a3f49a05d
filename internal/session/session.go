// Package session drives an interactive shell through a terminal
// multiplexer: it injects keystrokes at a human pace, detects command
// completion by watching for the prompt sentinel in the mirrored output
// log, and extracts exactly the output produced since submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend delivers raw keystrokes to the shell session's input.
// *screen.Screen is the production implementation.
type Backend interface {
	Stuff(ctx context.Context, keys string) error
}

// Config carries the knobs for a Session. Zero values fall back to the
// same defaults the config file uses.
type Config struct {
	LogPath        string        // mirrored output log path
	Sentinel       string        // user@host prompt marker
	PollInterval   time.Duration // collector sleep when no new output
	MaxOutput      int           // output retention budget, in characters
	DefaultTimeout time.Duration // used when a run does not specify one
	HistorySize    int           // bounded history cap
}

// Session owns one shell session: its control backend, output log,
// sentinel, and command history. At most one command is in flight at a
// time; Run serializes callers over the full submit+collect span.
type Session struct {
	backend  Backend
	logPath  string
	sentinel string

	pollInterval   time.Duration
	maxOutput      int
	defaultTimeout time.Duration

	history *History
	log     *zap.SugaredLogger

	mu  sync.Mutex // guards the submit+collect window
	rng *rand.Rand // typing cadence; guarded by mu
}

// New builds a Session over the given backend.
func New(backend Backend, cfg Config, logger *zap.SugaredLogger) *Session {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 300 * time.Millisecond
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = 40_000
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	return &Session{
		backend:        backend,
		logPath:        cfg.LogPath,
		sentinel:       cfg.Sentinel,
		pollInterval:   cfg.PollInterval,
		maxOutput:      cfg.MaxOutput,
		defaultTimeout: cfg.DefaultTimeout,
		history:        NewHistory(cfg.HistorySize),
		log:            logger,
		rng:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Sentinel returns the prompt marker the session watches for.
func (s *Session) Sentinel() string { return s.sentinel }

// History returns the session's bounded command history.
func (s *Session) History() *History { return s.history }

// RunOptions control a single command execution.
type RunOptions struct {
	Timeout time.Duration // 0 means the session default
	Fast    bool          // larger chunks, shorter delays
}

// Run types command into the session, submits it, and collects output
// until the prompt sentinel reappears or the timeout elapses. Failures
// are folded into the returned Result rather than surfaced as an error:
// Success is false and Output carries the description, with no partial
// output.
func (s *Session) Run(ctx context.Context, command string, opts RunOptions) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	runID := uuid.New().String()
	start := time.Now()
	s.log.Debugw("executing command",
		"run_id", runID, "command", command, "timeout", timeout, "fast", opts.Fast)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.typeCommand(ctx, command, opts.Fast); err != nil {
		return s.failed(runID, command, start, err)
	}
	if err := s.submit(ctx); err != nil {
		return s.failed(runID, command, start, err)
	}

	output, truncated, err := s.collect(ctx)
	if err != nil {
		if errors.Is(err, ErrPromptTimeout) {
			err = fmt.Errorf("%w (%s elapsed, no prompt %q seen)", ErrPromptTimeout, timeout, s.sentinel)
		}
		return s.failed(runID, command, start, err)
	}

	duration := time.Since(start)
	s.log.Debugw("command completed",
		"run_id", runID, "duration", duration, "output_chars", len(output), "truncated", truncated)
	s.history.Add(command)

	return &Result{
		Success:    true,
		Output:     output,
		ReturnCode: -1,
		Duration:   duration.String(),
		Command:    command,
	}
}

// submit resets the output log and presses Enter. The reset must happen
// before the newline reaches the shell: once execution starts, every
// byte in the log belongs to the new collection window.
func (s *Session) submit(ctx context.Context) error {
	f, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("resetting output log: %w", err)
	}
	_ = f.Close()

	if err := s.backend.Stuff(ctx, "\n"); err != nil {
		return fmt.Errorf("submitting command: %w", err)
	}
	return nil
}

func (s *Session) failed(runID, command string, start time.Time, err error) *Result {
	duration := time.Since(start)
	s.log.Warnw("command failed", "run_id", runID, "error", err, "duration", duration)
	return &Result{
		Success:    false,
		Output:     err.Error(),
		ReturnCode: -1,
		Duration:   duration.String(),
		Command:    command,
	}
}

// sleepCtx sleeps for d or until ctx is done, returning the context
// error in the latter case.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
