// Package config provides unified configuration for chatrelay.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. .env.local loaded into the process environment
//  4. Environment variable overrides
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Config holds all configuration for chatrelay.
type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Tools         ToolsConfig         `yaml:"tools"`
	MCP           MCPConfig           `yaml:"mcp"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// AppConfig describes the running application.
type AppConfig struct {
	Name        string `yaml:"name"`        // default: "AI Chat API"
	Version     string `yaml:"version"`     // default: "1.0.0"
	Description string `yaml:"description"` // default: "Streaming chat relay"
	Environment string `yaml:"environment"` // "development", "staging" or "production"
	Debug       bool   `yaml:"debug"`       // default: true in development
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8000
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0 (streams are unbounded)
	MaxBodySize  int64         `yaml:"max_body_size"` // default: 10MB
	CORSOrigins  []string      `yaml:"cors_origins"`  // default: ["*"]
}

// ProviderConfig holds the upstream completion API settings.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`     // optional, defaults to the OpenAI API
	APIKey       string        `yaml:"api_key"`      // required
	APIKeyFile   string        `yaml:"api_key_file"` // _file variant for api_key
	Model        string        `yaml:"model"`        // default: "gpt-4o"
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"` // default: 120s
}

// ToolsConfig holds built-in tool settings.
type ToolsConfig struct {
	Weather WeatherConfig `yaml:"weather"`
}

// WeatherConfig configures the get_current_weather tool.
type WeatherConfig struct {
	Enabled      bool          `yaml:"enabled"`       // default: true
	GeocodingURL string        `yaml:"geocoding_url"` // default: Open-Meteo geocoding API
	ForecastURL  string        `yaml:"forecast_url"`  // default: Open-Meteo forecast API
	Timeout      time.Duration `yaml:"timeout"`       // default: 10s
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url" json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers,omitempty"`
}

// LogConfig holds logging settings. CHATRELAY_DEBUG and CHATRELAY_LOG_LEVEL
// take precedence at startup.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma separated debug categories
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Default system prompt sent ahead of the client conversation.
const DefaultSystemPrompt = "You are a helpful assistant. Use the available tools when they help answer the user's question."

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		App: AppConfig{
			Name:        "AI Chat API",
			Version:     "1.0.0",
			Description: "Streaming chat relay",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Port:        8000,
			ReadTimeout: 30 * time.Second,
			MaxBodySize: 10 << 20,
			CORSOrigins: []string{"*"},
		},
		Provider: ProviderConfig{
			Model:        "gpt-4o",
			SystemPrompt: DefaultSystemPrompt,
			Timeout:      120 * time.Second,
		},
		Tools: ToolsConfig{
			Weather: WeatherConfig{
				Enabled:      true,
				GeocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
				ForecastURL:  "https://api.open-meteo.com/v1/forecast",
				Timeout:      10 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
