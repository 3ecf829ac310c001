package mcp

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical name for this server, used for logging and as
	// the tool source label.
	Name string `json:"name"`

	// Transport is the transport type to use: "sse" or "streamable-http".
	// If empty, defaults to "streamable-http".
	Transport string `json:"transport"`

	// URL is the MCP server endpoint URL.
	URL string `json:"url"`

	// Headers contains additional HTTP headers to send with requests,
	// typically used for authentication (API keys, bearer tokens, etc.).
	Headers map[string]string `json:"headers,omitempty"`
}
