package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// All failures are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Provider.APIKey == "" {
		errs = append(errs, fmt.Errorf("provider.api_key is required (set OPENAI_API_KEY or provider.api_key_file)"))
	}
	if c.Provider.Model == "" {
		errs = append(errs, fmt.Errorf("provider.model is required"))
	}
	if c.Provider.BaseURL != "" {
		if err := validateURL(c.Provider.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("provider.base_url: %w", err))
		}
	}

	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("app.environment must be \"development\", \"staging\", or \"production\", got %q", c.App.Environment))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if c.Tools.Weather.Enabled {
		if err := validateURL(c.Tools.Weather.GeocodingURL); err != nil {
			errs = append(errs, fmt.Errorf("tools.weather.geocoding_url: %w", err))
		}
		if err := validateURL(c.Tools.Weather.ForecastURL); err != nil {
			errs = append(errs, fmt.Errorf("tools.weather.forecast_url: %w", err))
		}
	}

	seen := make(map[string]bool)
	for i, s := range c.MCP.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true

		switch s.Transport {
		case "sse", "streamable-http":
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, s.Transport))
		}
		if err := validateURL(s.URL); err != nil {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url: %w", i, err))
		}
	}

	switch c.Log.Format {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
