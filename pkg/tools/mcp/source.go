package mcp

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/chatrelay/pkg/tools"
)

// maxConcurrentConnects bounds parallel handshakes at startup.
const maxConcurrentConnects = 8

// Source is the set of connected MCP servers.
type Source struct {
	clients []*Client
}

// NewSource wraps already connected clients.
func NewSource(clients ...*Client) *Source {
	return &Source{clients: clients}
}

// ConnectAll connects to all servers concurrently. A server that fails
// to connect is logged and left out; ConnectAll itself never fails.
func ConnectAll(ctx context.Context, servers []ServerConfig) *Source {
	clients := make([]*Client, len(servers))

	var g errgroup.Group
	g.SetLimit(maxConcurrentConnects)
	for i, cfg := range servers {
		g.Go(func() error {
			c := NewClient(cfg)
			if err := c.Connect(ctx); err != nil {
				slog.Warn("skipping MCP server", "server", cfg.Name, "url", cfg.URL, "error", err)
				return nil
			}
			slog.Info("connected to MCP server", "server", cfg.Name, "transport", cfg.Transport)
			clients[i] = c
			return nil
		})
	}
	_ = g.Wait()

	// Keep configuration order for deterministic registration.
	s := &Source{}
	for _, c := range clients {
		if c != nil {
			s.clients = append(s.clients, c)
		}
	}
	return s
}

// Len returns the number of connected servers.
func (s *Source) Len() int {
	return len(s.clients)
}

// RegisterTools discovers the tools of every connected server and adds
// them to reg. Discovery failures and name conflicts are logged and the
// affected tools are skipped. It returns the number of tools registered.
func (s *Source) RegisterTools(ctx context.Context, reg *tools.Registry) int {
	registered := 0
	for _, c := range s.clients {
		discovered, err := c.Tools(ctx)
		if err != nil {
			slog.Error("failed to discover tools from MCP server", "server", c.Name(), "error", err)
			continue
		}
		for _, t := range discovered {
			if err := reg.Register(t); err != nil {
				slog.Warn("skipping MCP tool", "server", c.Name(), "tool", t.Name, "error", err)
				continue
			}
			registered++
		}
	}
	return registered
}

// Close closes all sessions.
func (s *Source) Close() error {
	var lastErr error
	for _, c := range s.clients {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close MCP client", "server", c.Name(), "error", err)
			lastErr = err
		}
	}
	return lastErr
}
