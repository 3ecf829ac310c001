// Package mcp connects chatrelay to MCP (Model Context Protocol) servers.
// It discovers the tools each server offers and registers them in a
// tools.Registry, so the model can call them like built-in tools.
//
// The package wraps the official MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
// Servers are described by ServerConfig: a name, a transport type (SSE or
// streamable-http), a URL and optional static headers.
package mcp
