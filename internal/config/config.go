// Package config loads and persists the application configuration from
// ~/.aide/config.yaml, with environment variable overrides under the AIDE
// prefix (for example AIDE_LLM_PROVIDERS_GEMINI_API_KEY).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Gateways GatewaysConfig `mapstructure:"gateways" yaml:"gateways"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig contains configuration for the model providers.
type LLMConfig struct {
	// DefaultProvider names the provider that leads the fallback chain
	// ("gemini" or "playai"). A stored user preference overrides it.
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`

	// Providers maps provider names to their configuration.
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// ProviderConfig contains configuration for a specific model provider.
type ProviderConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model    string `mapstructure:"model" yaml:"model,omitempty"`
	// UserID is required by providers that scope conversations per user.
	UserID string `mapstructure:"user_id" yaml:"user_id,omitempty"`
}

// GatewaysConfig groups the external data gateway settings.
type GatewaysConfig struct {
	Weather GatewayConfig `mapstructure:"weather" yaml:"weather"`
	News    GatewayConfig `mapstructure:"news" yaml:"news"`
	Stocks  GatewayConfig `mapstructure:"stocks" yaml:"stocks"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Music   MusicConfig   `mapstructure:"music" yaml:"music"`
}

// GatewayConfig is an endpoint plus credential pair.
type GatewayConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// SearchConfig configures the two web-search backends.
type SearchConfig struct {
	SearXNGEndpoint string `mapstructure:"searxng_endpoint" yaml:"searxng_endpoint,omitempty"`
	ExaEndpoint     string `mapstructure:"exa_endpoint" yaml:"exa_endpoint,omitempty"`
	ExaAPIKey       string `mapstructure:"exa_api_key" yaml:"exa_api_key,omitempty"`
}

// MusicConfig configures the music catalog gateway.
type MusicConfig struct {
	AuthEndpoint string `mapstructure:"auth_endpoint" yaml:"auth_endpoint,omitempty"`
	APIEndpoint  string `mapstructure:"api_endpoint" yaml:"api_endpoint,omitempty"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	// DBPath is the path to the SQLite database holding events, bookmarks
	// and preferences.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`
	// File is an optional log file path; empty logs to stderr only.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers: map[string]ProviderConfig{
				"gemini": {
					Endpoint: "https://generativelanguage.googleapis.com/v1beta",
					Model:    "gemini-1.5-pro",
				},
				"playai": {
					Endpoint: "https://api.play.ai/api/v1",
					Model:    "gpt-4o",
				},
			},
		},
		Gateways: GatewaysConfig{
			Weather: GatewayConfig{Endpoint: "https://api.weatherstack.com"},
			News:    GatewayConfig{Endpoint: "https://newsdata.io/api/1"},
			Stocks:  GatewayConfig{Endpoint: "https://www.alphavantage.co"},
			Search: SearchConfig{
				SearXNGEndpoint: "http://localhost:8888",
				ExaEndpoint:     "https://api.exa.ai",
			},
			Music: MusicConfig{
				AuthEndpoint: "https://accounts.spotify.com",
				APIEndpoint:  "https://api.spotify.com",
			},
		},
		Storage: StorageConfig{
			DBPath: "~/.aide/aide.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from ~/.aide/config.yaml, creating it with
// defaults when missing, and merges environment variable overrides.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".aide", "config.yaml"))
}

// LoadFromPath reads configuration from a specific file path. If the file
// doesn't exist it is created with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// example: AIDE_GATEWAYS_WEATHER_API_KEY
	v.SetEnvPrefix("AIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return c.SaveToPath(filepath.Join(homeDir, ".aide", "config.yaml"))
}

// SaveToPath writes the configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider cannot be empty")
	}
	if _, exists := c.LLM.Providers[c.LLM.DefaultProvider]; !exists {
		return fmt.Errorf("default provider '%s' not found in providers map", c.LLM.DefaultProvider)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// GetDataDir returns the application data directory.
func (c *Config) GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".aide"
	}
	return filepath.Join(homeDir, ".aide")
}

// EnsureDirectories creates the directories referenced by the
// configuration if they don't exist.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(expandPath(c.Storage.DBPath))}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(expandPath(c.Logging.File)))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// writeConfigFile writes a Config struct to a YAML file. Uses yaml.v3
// directly so the yaml struct tags drive serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
