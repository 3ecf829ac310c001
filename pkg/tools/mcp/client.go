package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// ErrToolReportedError is returned when the server flags a tool result as
// an error.
var ErrToolReportedError = errors.New("MCP tool reported an error")

// Client wraps an MCP SDK client session for a single server.
type Client struct {
	cfg     ServerConfig
	session *mcp.ClientSession
}

// NewClient creates a Client for the given server configuration.
// Call Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Connect establishes the MCP connection to the server, performing the
// protocol handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the MCP connection using the given
// transport. If transport is nil, a transport is created from the
// server configuration.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	client := mcp.NewClient(
		&mcp.Implementation{Name: "chatrelay", Version: "1.0.0"},
		&mcp.ClientOptions{Capabilities: &mcp.ClientCapabilities{}},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := http.DefaultClient
	if len(c.cfg.Headers) > 0 {
		httpClient = &http.Client{
			Transport: &headerTransport{base: http.DefaultTransport, headers: c.cfg.Headers},
		}
	}

	switch c.cfg.Transport {
	case "sse":
		return &mcp.SSEClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	case "streamable-http", "":
		return &mcp.StreamableClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// headerTransport adds static headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// Tools lists the server's tools as registry tools whose handlers call
// back into this session.
func (c *Client) Tools(ctx context.Context) ([]tools.Tool, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var out []tools.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		schema, err := convertSchema(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, err)
		}
		name := tool.Name
		out = append(out, tools.Tool{
			Definition: tools.Definition{
				Name:        name,
				Description: tool.Description,
				Parameters:  schema,
			},
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				return c.CallTool(ctx, name, args)
			},
			Source: "mcp:" + c.cfg.Name,
		})
	}
	return out, nil
}

// CallTool executes a tool on the server. Structured content is returned as
// is when present, otherwise the text content joined by newlines.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	debug.Log("mcp", "calling tool", "server", c.cfg.Name, "tool", name)
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP server %q: %w", c.cfg.Name, err)
	}

	text := joinText(result.Content)
	if result.IsError {
		return nil, fmt.Errorf("%w: %s", ErrToolReportedError, text)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	return text, nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertSchema turns an MCP input schema, which arrives as a generic JSON
// value, into a jsonschema.Schema.
func convertSchema(in any) (*jsonschema.Schema, error) {
	if in == nil {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshaling input schema: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding input schema: %w", err)
	}
	return &s, nil
}

func joinText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
