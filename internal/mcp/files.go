package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/daniel-bvm/xterm-agent/internal/session"
	"github.com/daniel-bvm/xterm-agent/internal/webtool"
)

type pwdParams struct{}

func (h *handler) pwdHandler(ctx context.Context, req *mcp.CallToolRequest, _ pwdParams) (*mcp.CallToolResult, any, error) {
	res := h.session.Run(ctx, "pwd", session.RunOptions{Fast: true})
	if !res.Success {
		return errorResult(formatExecution(res))
	}
	return textResult(res.Output)
}

type cdParams struct {
	Path string `json:"path" jsonschema:"directory path to switch to"`
}

func (h *handler) cdHandler(ctx context.Context, req *mcp.CallToolRequest, params cdParams) (*mcp.CallToolResult, any, error) {
	path := strings.Trim(params.Path, "\"' \t\n\r")
	if path == "" {
		return errorResult("path is required")
	}

	res := h.session.Run(ctx, fmt.Sprintf("cd %s", webtool.Quote(path)), session.RunOptions{Fast: true})
	if !res.Success {
		return errorResult(formatExecution(res))
	}
	if res.Output == "" {
		return textResult(fmt.Sprintf("Changed directory to %s", path))
	}
	return textResult(res.Output)
}

type lsParams struct {
	Path string `json:"path,omitempty" jsonschema:"directory path to list. Default: the current directory."`
}

func (h *handler) lsHandler(ctx context.Context, req *mcp.CallToolRequest, params lsParams) (*mcp.CallToolResult, any, error) {
	path := strings.Trim(params.Path, "\"' \t\n\r")
	if path == "" {
		path = "."
	}

	res := h.session.Run(ctx, fmt.Sprintf("ls -la %s", webtool.Quote(path)), session.RunOptions{Fast: true})
	if !res.Success {
		return errorResult(formatExecution(res))
	}
	return textResult(res.Output)
}

type writeFileParams struct {
	Path    string `json:"path" jsonschema:"path of the file to write"`
	Content string `json:"content" jsonschema:"content to write"`
	Mode    string `json:"mode,omitempty" jsonschema:"write mode: overwrite or append. Default: overwrite."`
}

func (h *handler) writeFileHandler(ctx context.Context, req *mcp.CallToolRequest, params writeFileParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult("path is required")
	}
	redir := ">"
	switch strings.ToLower(params.Mode) {
	case "", "overwrite":
	case "append":
		redir = ">>"
	default:
		return errorResult(fmt.Sprintf("invalid mode %q: want overwrite or append", params.Mode))
	}

	var b strings.Builder

	// Create the parent directory when it does not exist. The local
	// stat is a shortcut: the shell and the agent share a filesystem.
	abs, err := filepath.Abs(params.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("resolving path: %v", err))
	}
	if dir := filepath.Dir(abs); dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			res := h.session.Run(ctx, fmt.Sprintf("mkdir -p %s", webtool.Quote(dir)), session.RunOptions{Fast: true})
			if !res.Success {
				return errorResult(formatExecution(res))
			}
			b.WriteString(res.Output)
		}
	}

	content := params.Content
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	// The command is typed into a live terminal, so raw control bytes
	// are unsafe: a newline would submit the line early and a tab would
	// trigger shell completion. Escape them and let printf %b expand.
	cmd := fmt.Sprintf("printf %%b %s %s %s", webtool.Quote(printfEscape(content)), redir, webtool.Quote(params.Path))
	res := h.session.Run(ctx, cmd, session.RunOptions{Fast: true})
	if !res.Success {
		return errorResult(formatExecution(res))
	}
	b.WriteString(res.Output)

	fmt.Fprintf(&b, "Wrote %d bytes to %s\n", len(content), params.Path)
	return textResult(b.String())
}

// printfEscape encodes backslashes and control bytes as printf %b
// escape sequences.
func printfEscape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"\n", `\n`,
		"\t", `\t`,
		"\r", `\r`,
	)
	return r.Replace(s)
}
