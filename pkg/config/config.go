package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	LocalBaseURL    string
	LocalAPIKey     string
	Roles           *RoleTable
	ConfigDir       string
}

// FileConfig represents the structure of ~/.hedgegate/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
	Local   LocalConfig   `yaml:"local"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// LocalConfig points at a self-hosted OpenAI-compatible endpoint.
type LocalConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration. A .env
// file in the working directory is loaded first, without overriding
// variables already set in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		LocalBaseURL:    getEnvOrDefault("LOCAL_BASE_URL", fileConfig.Local.BaseURL),
		LocalAPIKey:     getEnvOrDefault("LOCAL_API_KEY", fileConfig.Local.APIKey),
		ConfigDir:       configDir,
	}

	rolesPath := filepath.Join(configDir, "roles.yaml")
	if _, err := os.Stat(rolesPath); err == nil {
		roles, err := LoadRoleTable(rolesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load role table: %w", err)
		}
		cfg.Roles = roles
	} else {
		cfg.Roles = DefaultRoleTable()
	}

	return cfg, nil
}

// LoadWithRolesFile loads config with a specific role table file.
func LoadWithRolesFile(rolesPath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	roles, err := LoadRoleTable(rolesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load role table from %s: %w", rolesPath, err)
	}
	cfg.Roles = roles
	return cfg, nil
}

// HasBackend returns true if the given backend is usable with the loaded keys.
func (c *Config) HasBackend(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "local":
		return c.LocalBaseURL != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".hedgegate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
