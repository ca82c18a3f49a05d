package mcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/daniel-bvm/xterm-agent/internal/session"
)

type executeParams struct {
	Command string `json:"command" jsonschema:"the command line to execute in the terminal"`
	Timeout *int   `json:"timeout,omitempty" jsonschema:"command timeout in seconds. Default: the configured session timeout (300s)."`
	Filter  string `json:"filter,omitempty" jsonschema:"optional RE2 regular expression; only output lines matching it are returned"`
	Fast    *bool  `json:"fast,omitempty" jsonschema:"type the command with larger chunks and shorter pauses. Default: false."`
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params executeParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Command) == "" {
		return errorResult("command is required")
	}

	var filter *regexp.Regexp
	if params.Filter != "" {
		var err error
		filter, err = regexp.Compile(params.Filter)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid filter: %v", err))
		}
	}

	opts := session.RunOptions{}
	if params.Timeout != nil && *params.Timeout > 0 {
		opts.Timeout = time.Duration(*params.Timeout) * time.Second
	}
	if params.Fast != nil {
		opts.Fast = *params.Fast
	}

	res := h.session.Run(ctx, params.Command, opts)
	if !res.Success {
		return errorResult(formatExecution(res))
	}

	if filter != nil {
		res = filterOutput(res, filter)
	}
	return textResult(formatExecution(res))
}

// filterOutput returns a copy of res with only the output lines that
// match re.
func filterOutput(res *session.Result, re *regexp.Regexp) *session.Result {
	var kept []string
	for _, line := range strings.Split(strings.TrimRight(res.Output, "\n"), "\n") {
		if re.MatchString(line) {
			kept = append(kept, line)
		}
	}
	out := *res
	out.Output = strings.Join(kept, "\n")
	if out.Output != "" {
		out.Output += "\n"
	}
	return &out
}

func formatExecution(res *session.Result) string {
	var b strings.Builder
	if res.Success {
		fmt.Fprintf(&b, "Command successfully executed in %s\n", res.Duration)
	} else {
		fmt.Fprintf(&b, "Command failed after %s\n", res.Duration)
	}
	if res.Output != "" {
		fmt.Fprintf(&b, "\nOutput:\n%s", res.Output)
	}
	return b.String()
}

type historyParams struct {
	Count *int `json:"count,omitempty" jsonschema:"number of recent commands to return. Default: 10."`
}

func (h *handler) historyHandler(ctx context.Context, req *mcp.CallToolRequest, params historyParams) (*mcp.CallToolResult, any, error) {
	count := 10
	if params.Count != nil && *params.Count > 0 {
		count = *params.Count
	}

	entries := h.session.History().Recent(count)
	if len(entries) == 0 {
		return textResult("No command execution history.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent %d command history:\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, e.Timestamp, e.Command)
	}
	return textResult(b.String())
}
