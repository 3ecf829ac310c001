package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/chatrelay/pkg/config"
	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/engine"
	"github.com/rhuss/chatrelay/pkg/provider/openai"
	"github.com/rhuss/chatrelay/pkg/tools"
	"github.com/rhuss/chatrelay/pkg/tools/builtins/weather"
	"github.com/rhuss/chatrelay/pkg/tools/mcp"
	transporthttp "github.com/rhuss/chatrelay/pkg/transport/http"
)

type serveOptions struct {
	port int
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) *slog.Logger {
	return debug.Setup(debug.Options{
		Categories: cfg.Log.Debug,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
	})
}

func runServe(ctx context.Context, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	logger := setupLogging(cfg)

	reg, mcpSource, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer mcpSource.Close()

	srv, err := newServer(cfg, reg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting chatrelay",
		slog.String("name", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("debug", cfg.App.Debug),
		slog.Int("port", cfg.Server.Port),
		slog.String("model", cfg.Provider.Model),
		slog.Any("tools", reg.Names()),
	)

	return srv.Run(ctx)
}

// newServer wires the provider, engine and HTTP server from cfg.
func newServer(cfg *config.Config, reg *tools.Registry, logger *slog.Logger) (*transporthttp.Server, error) {
	prov := openai.New(openai.Config{
		APIKey:        cfg.Provider.APIKey,
		BaseURL:       cfg.Provider.BaseURL,
		Model:         cfg.Provider.Model,
		HeaderTimeout: cfg.Provider.Timeout,
	})

	eng, err := engine.New(prov, reg, engine.Config{
		DefaultModel: cfg.Provider.Model,
		SystemPrompt: cfg.Provider.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	return transporthttp.NewServer(eng,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(logger),
	), nil
}

// buildRegistry registers the built-in tools and connects the configured
// MCP servers. The returned source must be closed by the caller.
func buildRegistry(ctx context.Context, cfg *config.Config) (*tools.Registry, *mcp.Source, error) {
	reg := tools.NewRegistry()

	if w := cfg.Tools.Weather; w.Enabled {
		err := reg.Register(weather.New(weather.Config{
			GeocodingURL: w.GeocodingURL,
			ForecastURL:  w.ForecastURL,
			Timeout:      w.Timeout,
		}))
		if err != nil {
			return nil, nil, fmt.Errorf("registering weather tool: %w", err)
		}
	}

	servers := make([]mcp.ServerConfig, 0, len(cfg.MCP.Servers))
	for _, s := range cfg.MCP.Servers {
		servers = append(servers, mcp.ServerConfig{
			Name:      s.Name,
			Transport: s.Transport,
			URL:       s.URL,
			Headers:   s.Headers,
		})
	}

	source := mcp.ConnectAll(ctx, servers)
	if n := source.RegisterTools(ctx, reg); n > 0 {
		slog.Info("MCP tools registered", slog.Int("servers", source.Len()), slog.Int("tools", n))
	}

	return reg, source, nil
}
