// Package config loads the optional .xterm-agent YAML file and the
// environment values the agent derives its identity from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Default values for session configuration.
const (
	DefaultSession      = "terminal"
	DefaultShell        = "bash"
	DefaultLogFile      = "/tmp/xterm-agent.log"
	DefaultTimeout      = 5 * time.Minute
	DefaultPollInterval = 300 * time.Millisecond
	DefaultMaxOutput    = 40_000 // characters retained per command
	DefaultHistorySize  = 50
	DefaultTTYDPort     = 7681
)

// Config holds the parsed .xterm-agent configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version     int    `yaml:"version"`
	RawSession  string `yaml:"session"`       // screen session name
	RawShell    string `yaml:"shell"`         // shell started inside the session
	RawLogFile  string `yaml:"log_file"`      // path of the mirrored output log
	RawSentinel string `yaml:"sentinel"`      // prompt sentinel override (default: user@host)
	RawTimeout  string `yaml:"timeout"`       // e.g. "5m", "30s"
	RawPoll     string `yaml:"poll_interval"` // e.g. "300ms"
	RawMax      int    `yaml:"max_output"`    // characters
	RawHistory  int    `yaml:"history_size"`  // entries
	TTYD        TTYD   `yaml:"ttyd"`
	ProxyURL    string `yaml:"proxy_url"` // search proxy base URL; env PROXY_URL wins
}

// TTYD controls the optional browser-facing terminal daemon.
type TTYD struct {
	Disabled bool `yaml:"disabled"`
	Port     int  `yaml:"port"`
}

// Session returns the configured screen session name or the default.
func (c *Config) Session() string {
	if c.RawSession != "" {
		return c.RawSession
	}
	return DefaultSession
}

// Shell returns the configured shell or the default.
func (c *Config) Shell() string {
	if c.RawShell != "" {
		return c.RawShell
	}
	return DefaultShell
}

// LogFile returns the configured output log path or the default.
func (c *Config) LogFile() string {
	if c.RawLogFile != "" {
		return c.RawLogFile
	}
	return DefaultLogFile
}

// Timeout returns the configured command timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// PollInterval returns the configured log poll interval or the default.
func (c *Config) PollInterval() time.Duration {
	if c.RawPoll != "" {
		d, err := time.ParseDuration(c.RawPoll)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultPollInterval
}

// MaxOutput returns the configured output retention budget or the default.
func (c *Config) MaxOutput() int {
	if c.RawMax > 0 {
		return c.RawMax
	}
	return DefaultMaxOutput
}

// HistorySize returns the configured history cap or the default.
func (c *Config) HistorySize() int {
	if c.RawHistory > 0 {
		return c.RawHistory
	}
	return DefaultHistorySize
}

// TTYDPort returns the ttyd listen port, or 0 when ttyd is disabled.
func (c *Config) TTYDPort() int {
	if c.TTYD.Disabled {
		return 0
	}
	if c.TTYD.Port > 0 {
		return c.TTYD.Port
	}
	return DefaultTTYDPort
}

// Env holds the process environment values the agent reads at startup.
type Env struct {
	User     string `envconfig:"USER"`
	Hostname string `envconfig:"HOSTNAME"`
	Home     string `envconfig:"HOME"`
	ProxyURL string `envconfig:"PROXY_URL"`
}

// FromEnv reads the relevant environment variables.
func FromEnv() (*Env, error) {
	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &e, nil
}

// Sentinel resolves the prompt sentinel: a configured override wins,
// otherwise it is "user@host" from the environment. The sentinel must
// match the leading part of the shell's rendered prompt, so both halves
// fall back aggressively rather than ending up empty.
func (c *Config) Sentinel(env *Env) string {
	if c.RawSentinel != "" {
		return c.RawSentinel
	}

	user := env.User
	if user == "" && env.Home != "" {
		user = filepath.Base(env.Home)
	}
	host := env.Hostname
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		}
	}
	return user + "@" + host
}

// SearchProxy resolves the search proxy base URL. The environment wins
// over the config file. Empty means the search tools are unavailable.
func (c *Config) SearchProxy(env *Env) string {
	if env.ProxyURL != "" {
		return strings.TrimRight(env.ProxyURL, "/")
	}
	return strings.TrimRight(c.ProxyURL, "/")
}

// Load reads the .xterm-agent file from path. When path is empty the
// user's home directory is searched. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(home, ".xterm-agent")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
