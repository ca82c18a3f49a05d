// Package bootstrap brings the terminal session up: one-time shell
// profile edits, the detached screen session with output mirroring,
// and the optional browser-facing ttyd daemon.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/daniel-bvm/xterm-agent/internal/screen"
)

// Profile lines required for clean log mirroring: screen must not use
// the terminal's alternate buffer, and the inner shell must advertise a
// color-capable terminal so the prompt renders user@host as usual.
const (
	screenrcLine = "termcapinfo xterm* ti@:te@"
	bashrcLine   = "export TERM=xterm-256color"
)

// Bootstrap prepares a shell session for the agent.
type Bootstrap struct {
	Screen   *screen.Screen
	Shell    string // shell to start inside the session
	LogPath  string // mirrored output log
	TTYDPort int    // 0 disables ttyd
	Home     string // defaults to os.UserHomeDir

	Log *zap.SugaredLogger
}

// Up makes the session ready for the first command. It is idempotent:
// an already-running session is reused, and profile lines are only
// appended when absent. The returned stop function terminates ttyd (the
// screen session itself is left running so shell state survives agent
// restarts).
func (b *Bootstrap) Up(ctx context.Context) (func(), error) {
	logger := b.Log
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	home := b.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
	}

	if err := ensureProfileLine(filepath.Join(home, ".screenrc"), screenrcLine); err != nil {
		return nil, err
	}
	if err := ensureProfileLine(filepath.Join(home, ".bashrc"), bashrcLine); err != nil {
		return nil, err
	}

	if b.Screen.Exists(ctx) {
		logger.Infow("reusing existing screen session", "session", b.Screen.Name)
	} else {
		if err := b.Screen.Create(ctx, b.Shell); err != nil {
			return nil, fmt.Errorf("starting screen session: %w", err)
		}
		logger.Infow("started screen session", "session", b.Screen.Name, "shell", b.Shell)
	}

	if err := b.Screen.MirrorOutput(ctx, b.LogPath); err != nil {
		return nil, err
	}
	logger.Infow("output mirroring enabled", "log", b.LogPath)

	stop := func() {}
	if b.TTYDPort > 0 {
		ttyd, err := b.startTTYD(ctx, logger)
		if err != nil {
			// The agent works without the browser view.
			logger.Warnw("ttyd unavailable", "error", err)
		} else {
			stop = func() {
				_ = ttyd.Process.Kill()
				_ = ttyd.Wait()
			}
		}
	}
	return stop, nil
}

// startTTYD launches ttyd attached to the screen session and waits for
// it to accept HTTP connections.
func (b *Bootstrap) startTTYD(ctx context.Context, logger *zap.SugaredLogger) (*exec.Cmd, error) {
	cmd := exec.Command("ttyd",
		"-p", strconv.Itoa(b.TTYDPort),
		"--writable",
		"screen", "-x", b.Screen.Name,
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ttyd: %w", err)
	}

	client := resty.New().
		SetBaseURL(fmt.Sprintf("http://127.0.0.1:%d", b.TTYDPort)).
		SetTimeout(2 * time.Second).
		SetRetryCount(10).
		SetRetryWaitTime(300 * time.Millisecond).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil
		})
	if _, err := client.R().SetContext(ctx).Get("/"); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("ttyd did not become ready: %w", err)
	}

	logger.Infow("ttyd listening", "port", b.TTYDPort)
	return cmd, nil
}

// ensureProfileLine appends line to path unless it is already present.
func ensureProfileLine(path, line string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("appending to %s: %w", path, err)
		}
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}
