// Package xtermagent holds metadata shared by the CLI and the MCP server.
package xtermagent

// Version is the xterm-agent release version.
const Version = "0.3.0"
