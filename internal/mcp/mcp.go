// Package mcp provides the xterm-agent MCP server, registering the
// terminal tools and publishing model instructions.
package mcp

import (
	_ "embed"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	xtermagent "github.com/daniel-bvm/xterm-agent"
	"github.com/daniel-bvm/xterm-agent/internal/session"
	"github.com/daniel-bvm/xterm-agent/internal/webtool"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	session *session.Session
	web     *webtool.Client
	log     *zap.SugaredLogger
}

// NewServer creates an MCP server with all terminal tools registered.
func NewServer(sess *session.Session, web *webtool.Client, logger *zap.SugaredLogger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h := &handler{session: sess, web: web, log: logger}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "xterm-agent", Version: xtermagent.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "execute_command",
		Description: `Execute a command in the real terminal session.

The command is typed into a persistent interactive shell, so state (cwd, environment,
background jobs) carries over between calls. Output is everything the terminal rendered
until the prompt returned, bounded to the most recent 40,000 characters.`,
	}, h.executeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_command_history",
		Description: "Get recent command execution history for this session.",
	}, h.historyHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_current_directory",
		Description: "Get the shell's current working directory.",
	}, h.pwdHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "change_directory",
		Description: "Change the shell's current working directory.",
	}, h.cdHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_directory",
		Description: "List files and subdirectories of a directory (defaults to the current one).",
	}, h.lsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "write_file",
		Description: `Write content to a file through the shell.

Creates parent directories when needed. mode is "overwrite" (default) or "append".`,
	}, h.writeFileHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fetch_url",
		Description: "Fetch a URL through the shell (curl). HTML pages are reduced to readable text.",
	}, h.fetchHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "internet_search",
		Description: "Search the web via the configured search proxy. Requires PROXY_URL.",
	}, h.searchHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "news_search",
		Description: "Search recent news via the configured search proxy. Requires PROXY_URL.",
	}, h.newsHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
