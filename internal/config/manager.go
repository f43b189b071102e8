package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ServiceName prefixes config file names and environment variables
const ServiceName = "docconvert"

// listKeys are split on commas when read from the environment
var listKeys = map[string]bool{
	"events.kafka.brokers": true,
}

// Manager handles configuration loading and parsing.
type Manager struct {
	k           *koanf.Koanf
	envPrefix   string
	configPaths []string
	explicit    string
	dotenv      []string
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConfigFile loads path after the default locations. Unlike the
// defaults, a missing explicit file is an error.
func WithConfigFile(path string) ManagerOption {
	return func(m *Manager) { m.explicit = path }
}

// WithConfigPaths replaces the default config file locations
func WithConfigPaths(paths ...string) ManagerOption {
	return func(m *Manager) { m.configPaths = paths }
}

// WithDotEnv sets the .env files loaded before reading the environment
func WithDotEnv(files ...string) ManagerOption {
	return func(m *Manager) { m.dotenv = files }
}

// NewManager creates a new configuration manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		k:           koanf.New("."),
		envPrefix:   strings.ToUpper(ServiceName) + "_",
		configPaths: getDefaultConfigPaths(),
		dotenv:      []string{".env"},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load resolves defaults, config files, .env and environment variables, in
// that order of precedence, then applies overrides and validates.
func (m *Manager) Load(overrides map[string]any) (*Config, error) {
	cfg := Defaults()

	// 1. Load defaults from struct
	if err := m.k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load from config files, later files win
	for _, path := range m.configPaths {
		if err := m.loadFromFile(path); err != nil {
			// Skip if file doesn't exist, error on parse failures
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}
	if m.explicit != "" {
		if err := m.loadFromFile(m.explicit); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", m.explicit, err)
		}
	}

	// 3. Load from .env and environment variables
	if err := m.loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := m.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// 4. Command line overrides
	for key, value := range overrides {
		if err := m.k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	// 5. Unmarshal into the config struct
	if err := m.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a file.
func (m *Manager) loadFromFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return m.k.Load(file.Provider(path), parser)
}

// loadDotEnv loads .env files into the process environment without
// overriding variables that are already set.
func (m *Manager) loadDotEnv() error {
	for _, path := range m.dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// loadFromEnv loads configuration from environment variables.
func (m *Manager) loadFromEnv() error {
	return m.k.Load(env.ProviderWithValue(m.envPrefix, ".", func(key, value string) (string, any) {
		// DOCCONVERT_TRANSPORT__S3__BUCKET -> transport.s3.bucket
		key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, m.envPrefix), "__", "."))
		if listKeys[key] {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return key, parts
		}
		return key, value
	}), nil)
}

// getDefaultConfigPaths returns the default config paths to check.
func getDefaultConfigPaths() []string {
	paths := []string{
		fmt.Sprintf("%s.yaml", ServiceName),
		fmt.Sprintf("%s.json", ServiceName),
		fmt.Sprintf("configs/%s.yaml", ServiceName),
	}

	if configPath := os.Getenv("DOCCONVERT_CONFIG"); configPath != "" {
		paths = append(paths, configPath)
	}

	return paths
}
