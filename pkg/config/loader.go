package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DotEnvFile is loaded into the environment before overrides are applied.
// Variables already present in the environment are not replaced.
const DotEnvFile = ".env.local"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CHATRELAY_CONFIG env, ./config.yaml, /etc/chatrelay/config.yaml)
//  3. .env.local in the working directory, if present
//  4. Environment variable overrides
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CHATRELAY_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/chatrelay/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("CHATRELAY_CONFIG"); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/chatrelay/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadDotEnv loads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// applyEnvOverrides maps environment variables to config fields. Empty
// variables are ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("PROJECT_NAME"); v != "" {
		cfg.App.Name = v
	}
	if v := os.Getenv("VERSION"); v != "" {
		cfg.App.Version = v
	}
	if v := os.Getenv("DESCRIPTION"); v != "" {
		cfg.App.Description = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.App.Environment = v
		// DEBUG follows the environment unless set explicitly.
		cfg.App.Debug = v == "development"
	}
	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		cfg.App.Debug = b
	}
	if v := os.Getenv("BACKEND_CORS_ORIGINS"); v != "" {
		origins, err := parseOrigins(v)
		if err != nil {
			return fmt.Errorf("BACKEND_CORS_ORIGINS: %w", err)
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("CHATRELAY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATRELAY_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	// CHATRELAY_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("CHATRELAY_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err != nil {
			return err
		}
		cfg.MCP.Servers = servers
	}
	return nil
}

// parseOrigins accepts either a JSON array (`["http://a","http://b"]`) or a
// comma separated list.
func parseOrigins(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") {
		var origins []string
		if err := json.Unmarshal([]byte(v), &origins); err != nil {
			return nil, err
		}
		return origins, nil
	}
	var origins []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins, nil
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var servers []MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields when those are empty.
func resolveFileReferences(cfg *Config) error {
	if cfg.Provider.APIKeyFile != "" && cfg.Provider.APIKey == "" {
		val, err := readSecretFile(cfg.Provider.APIKeyFile)
		if err != nil {
			return fmt.Errorf("provider.api_key_file: %w", err)
		}
		cfg.Provider.APIKey = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
