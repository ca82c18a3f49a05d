// Command xterm-agent drives a persistent interactive shell and exposes
// it over MCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	xtermagent "github.com/daniel-bvm/xterm-agent"
	"github.com/daniel-bvm/xterm-agent/internal/bootstrap"
	"github.com/daniel-bvm/xterm-agent/internal/config"
	agentmcp "github.com/daniel-bvm/xterm-agent/internal/mcp"
	"github.com/daniel-bvm/xterm-agent/internal/screen"
	"github.com/daniel-bvm/xterm-agent/internal/session"
	"github.com/daniel-bvm/xterm-agent/internal/webtool"
)

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(sugar, args)
	case "exec":
		err = execMain(sugar, args)
	case "bootstrap":
		err = bootstrapMain(sugar, args)
	case "version":
		fmt.Println(xtermagent.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "xterm-agent: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		sugar.Fatalw("command failed", "command", cmd, "error", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: xterm-agent <command> [flags]

Commands:
  mcp         Bring the terminal session up and start the MCP server
  exec        Run one command through the session and print its output
  bootstrap   Bring the terminal session up and exit
  version     Print the version
  help        Show this help

Use "xterm-agent <command> -h" for command-specific flags.`)
}

// newLogger builds a zap logger writing to stderr only: stdout is the
// MCP stdio transport and must stay clean.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xterm-agent: building logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// deps bundles everything built from configuration.
type deps struct {
	cfg  *config.Config
	sess *session.Session
	web  *webtool.Client
	boot *bootstrap.Bootstrap
}

// build loads configuration and constructs the session stack.
func build(sugar *zap.SugaredLogger, configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	env, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	scr, err := screen.New(cfg.Session())
	if err != nil {
		return nil, err
	}

	sentinel := cfg.Sentinel(env)
	sugar.Infow("session configured",
		"session", cfg.Session(), "log", cfg.LogFile(), "sentinel", sentinel)

	sess := session.New(scr, session.Config{
		LogPath:        cfg.LogFile(),
		Sentinel:       sentinel,
		PollInterval:   cfg.PollInterval(),
		MaxOutput:      cfg.MaxOutput(),
		DefaultTimeout: cfg.Timeout(),
		HistorySize:    cfg.HistorySize(),
	}, sugar)

	web := &webtool.Client{Runner: sess, ProxyURL: cfg.SearchProxy(env)}

	boot := &bootstrap.Bootstrap{
		Screen:   scr,
		Shell:    cfg.Shell(),
		LogPath:  cfg.LogFile(),
		TTYDPort: cfg.TTYDPort(),
		Log:      sugar,
	}

	return &deps{cfg: cfg, sess: sess, web: web, boot: boot}, nil
}

// --- mcp ---

func mcpMain(sugar *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the .xterm-agent config file")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090) instead of stdio")
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(agentmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := build(sugar, *configPath)
	if err != nil {
		return err
	}

	stopTTYD, err := d.boot.Up(ctx)
	if err != nil {
		return fmt.Errorf("bootstrapping session: %w", err)
	}
	defer stopTTYD()

	server := agentmcp.NewServer(d.sess, d.web, sugar)

	if *httpAddr != "" {
		return serveHTTP(ctx, sugar, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, sugar *zap.SugaredLogger, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	sugar.Infow("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- exec ---

func execMain(sugar *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the .xterm-agent config file")
	timeout := fs.Duration("timeout", 0, "override the configured command timeout (e.g. 30s)")
	fast := fs.Bool("fast", false, "type with larger chunks and shorter pauses")
	_ = fs.Parse(args)

	command := fs.Args()
	if len(command) == 0 {
		return fmt.Errorf("usage: xterm-agent exec [flags] <command...>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := build(sugar, *configPath)
	if err != nil {
		return err
	}

	stopTTYD, err := d.boot.Up(ctx)
	if err != nil {
		return fmt.Errorf("bootstrapping session: %w", err)
	}
	defer stopTTYD()

	res := d.sess.Run(ctx, strings.Join(command, " "), session.RunOptions{
		Timeout: *timeout,
		Fast:    *fast,
	})
	fmt.Print(res.Output)
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

// --- bootstrap ---

func bootstrapMain(sugar *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the .xterm-agent config file")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := build(sugar, *configPath)
	if err != nil {
		return err
	}

	// ttyd is not started here: it would die with this process.
	d.boot.TTYDPort = 0
	if _, err := d.boot.Up(ctx); err != nil {
		return fmt.Errorf("bootstrapping session: %w", err)
	}
	fmt.Printf("session %q ready, output mirrored to %s\n", d.cfg.Session(), d.cfg.LogFile())
	return nil
}
