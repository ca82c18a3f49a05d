package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-bvm/xterm-agent/internal/session"
	"github.com/daniel-bvm/xterm-agent/internal/webtool"
)

const testSentinel = "alice@box"

// scriptedShell is a session backend that plays a shell: typed bytes
// accumulate until a newline submits them, then a scripted response is
// appended to the output log.
type scriptedShell struct {
	mu       sync.Mutex
	logPath  string
	typed    strings.Builder
	commands []string
	respond  func(cmd string) string
}

func (f *scriptedShell) Stuff(ctx context.Context, keys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if keys != "\n" {
		f.typed.WriteString(keys)
		return nil
	}
	cmd := f.typed.String()
	f.typed.Reset()
	f.commands = append(f.commands, cmd)
	out := f.respond(cmd)
	go func() {
		time.Sleep(5 * time.Millisecond)
		fl, err := os.OpenFile(f.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer fl.Close()
		_, _ = fl.WriteString(out)
	}()
	return nil
}

func (f *scriptedShell) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func prompt() string { return testSentinel + ":~$ " }

// setup builds the full MCP server over in-memory transports, backed by
// a scripted shell.
func setup(t *testing.T, respond func(cmd string) string) (*mcp.ClientSession, *scriptedShell) {
	t.Helper()
	ctx := context.Background()

	shell := &scriptedShell{
		logPath: filepath.Join(t.TempDir(), "out.log"),
		respond: respond,
	}
	sess := session.New(shell, session.Config{
		LogPath:        shell.logPath,
		Sentinel:       testSentinel,
		PollInterval:   10 * time.Millisecond,
		DefaultTimeout: 5 * time.Second,
	}, nil)
	web := &webtool.Client{Runner: sess}

	server := NewServer(sess, web, nil)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err, "server.Connect")

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err, "client.Connect")

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs, shell
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool(%s)", name)
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func echoShell(cmd string) string {
	switch {
	case cmd == "pwd":
		return "/home/alice\r\n" + prompt()
	case strings.HasPrefix(cmd, "ls "):
		return "total 0\r\ndrwxr-xr-x  2 alice alice  64 .\r\n" + prompt()
	case cmd == "multi":
		return "info: starting\r\nerror: disk full\r\ninfo: done\r\n" + prompt()
	default:
		return "ok\r\n" + prompt()
	}
}

// --- execute_command ---

func TestExecuteCommand(t *testing.T) {
	cs, shell := setup(t, echoShell)
	res := callTool(t, cs, "execute_command", map[string]any{"command": "echo hi"})
	text := resultText(res)
	require.False(t, res.IsError, "unexpected error: %s", text)
	assert.Contains(t, text, "Command successfully executed")
	assert.Contains(t, text, "Output:\nok")
	assert.Equal(t, []string{"echo hi"}, shell.submitted())
}

func TestExecuteCommand_Filter(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "execute_command", map[string]any{
		"command": "multi",
		"filter":  "^error:",
	})
	text := resultText(res)
	require.False(t, res.IsError, "unexpected error: %s", text)
	assert.Contains(t, text, "error: disk full")
	assert.NotContains(t, text, "info: starting")
}

func TestExecuteCommand_InvalidFilter(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "execute_command", map[string]any{
		"command": "echo hi",
		"filter":  "([",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "invalid filter")
}

func TestExecuteCommand_Empty(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "execute_command", map[string]any{"command": "  "})
	assert.True(t, res.IsError)
}

func TestExecuteCommand_Timeout(t *testing.T) {
	cs, _ := setup(t, func(string) string { return "no prompt here\r\n" })
	res := callTool(t, cs, "execute_command", map[string]any{
		"command": "sleep 999",
		"timeout": 1,
		"fast":    true,
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "timed out waiting for shell prompt")
}

// --- get_command_history ---

func TestHistory_EmptyThenPopulated(t *testing.T) {
	cs, _ := setup(t, echoShell)

	res := callTool(t, cs, "get_command_history", nil)
	assert.Contains(t, resultText(res), "No command execution history.")

	callTool(t, cs, "execute_command", map[string]any{"command": "echo one"})
	callTool(t, cs, "execute_command", map[string]any{"command": "echo two"})

	res = callTool(t, cs, "get_command_history", map[string]any{"count": 1})
	text := resultText(res)
	assert.Contains(t, text, "echo two")
	assert.NotContains(t, text, "echo one")
}

// --- directory tools ---

func TestGetCurrentDirectory(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "get_current_directory", nil)
	text := resultText(res)
	require.False(t, res.IsError, "unexpected error: %s", text)
	assert.Contains(t, text, "/home/alice")
}

func TestChangeDirectory_QuotesPath(t *testing.T) {
	cs, shell := setup(t, echoShell)
	res := callTool(t, cs, "change_directory", map[string]any{"path": `"/tmp/my dir"`})
	require.False(t, res.IsError)

	cmds := shell.submitted()
	require.Len(t, cmds, 1)
	assert.Equal(t, "cd '/tmp/my dir'", cmds[0])
}

func TestListDirectory_DefaultsToDot(t *testing.T) {
	cs, shell := setup(t, echoShell)
	res := callTool(t, cs, "list_directory", nil)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(res), "total 0")

	cmds := shell.submitted()
	require.Len(t, cmds, 1)
	assert.Equal(t, "ls -la '.'", cmds[0])
}

// --- write_file ---

func TestWriteFile(t *testing.T) {
	cs, shell := setup(t, echoShell)
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")

	res := callTool(t, cs, "write_file", map[string]any{
		"path":    path,
		"content": "hello world",
	})
	text := resultText(res)
	require.False(t, res.IsError, "unexpected error: %s", text)
	assert.Contains(t, text, "Wrote 12 bytes")

	cmds := shell.submitted()
	require.Len(t, cmds, 1, "directory exists, no mkdir needed")
	assert.Contains(t, cmds[0], `printf %b 'hello world\n'`)
	assert.Contains(t, cmds[0], "> '"+path+"'")
}

func TestWriteFile_Append(t *testing.T) {
	cs, shell := setup(t, echoShell)
	path := filepath.Join(t.TempDir(), "log.txt")

	res := callTool(t, cs, "write_file", map[string]any{
		"path":    path,
		"content": "line\n",
		"mode":    "append",
	})
	require.False(t, res.IsError)

	cmds := shell.submitted()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], ">> '"+path+"'")
}

func TestWriteFile_CreatesParentDirectory(t *testing.T) {
	cs, shell := setup(t, echoShell)
	path := filepath.Join(t.TempDir(), "deep", "nested", "file.txt")

	res := callTool(t, cs, "write_file", map[string]any{
		"path":    path,
		"content": "x",
	})
	require.False(t, res.IsError)

	cmds := shell.submitted()
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0], "mkdir -p")
	assert.Contains(t, cmds[1], "printf")
}

func TestWriteFile_InvalidMode(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "write_file", map[string]any{
		"path":    "/tmp/x",
		"content": "y",
		"mode":    "sideways",
	})
	assert.True(t, res.IsError)
}

// --- web tools ---

func TestInternetSearch_NoProxy(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "internet_search", map[string]any{"query": "anything"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "no search proxy")
}

func TestFetchURL_BadScheme(t *testing.T) {
	cs, _ := setup(t, echoShell)
	res := callTool(t, cs, "fetch_url", map[string]any{"url": "gopher://old.example"})
	assert.True(t, res.IsError)
}

func TestFetchURL_ThroughShell(t *testing.T) {
	cs, shell := setup(t, func(cmd string) string {
		if strings.HasPrefix(cmd, "curl ") {
			return "response body\r\n" + prompt()
		}
		return prompt()
	})
	res := callTool(t, cs, "fetch_url", map[string]any{"url": "https://example.com/data.txt"})
	text := resultText(res)
	require.False(t, res.IsError, "unexpected error: %s", text)
	assert.Contains(t, text, "response body")

	cmds := shell.submitted()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "curl -sL")
}
