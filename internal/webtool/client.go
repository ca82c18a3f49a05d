// Package webtool provides outbound HTTP helpers that run through the
// terminal session itself: every request is a curl command typed into
// the shell, so it inherits the session's network identity, proxies,
// and credentials.
package webtool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/daniel-bvm/xterm-agent/internal/session"
)

// ErrNoProxy is returned by the search helpers when no search proxy
// base URL is configured.
var ErrNoProxy = errors.New("no search proxy configured (set PROXY_URL)")

// Runner submits a shell command and returns its collected output.
// Implemented by *session.Session.
type Runner interface {
	Run(ctx context.Context, command string, opts session.RunOptions) *session.Result
}

// Client issues web requests through a shell session.
type Client struct {
	Runner   Runner
	ProxyURL string // search proxy base URL; empty disables search
}

// runCurl executes a curl command through the session in fast typing
// mode (URLs gain nothing from a human cadence) and returns its output.
func (c *Client) runCurl(ctx context.Context, cmd string) (string, error) {
	res := c.Runner.Run(ctx, cmd, session.RunOptions{Fast: true})
	if !res.Success {
		return "", fmt.Errorf("request failed: %s", res.Output)
	}
	return strings.TrimSpace(res.Output), nil
}

// Quote wraps s in single quotes, escaping embedded single quotes the
// POSIX way so the shell receives s verbatim.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
