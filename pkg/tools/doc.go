// Package tools holds the tool registry: a tagged mapping from tool name to
// a capability descriptor (name, description, JSON schema) and a handler.
//
// The registry advertises tool definitions to the completion provider and
// executes tool calls on behalf of the stream translator. Built-in tools
// live under builtins/, tools discovered on MCP servers are registered by
// the mcp subpackage.
package tools
