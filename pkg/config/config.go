package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the orgdrift settings read from ~/.orgdrift/config.yaml.
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
}

// GitHubConfig carries the GitHub connection settings. Every field is
// optional: the token may come from the environment instead, the
// organization from the manifest or a flag, and the base URL defaults
// to the public API.
type GitHubConfig struct {
	Token        string `yaml:"token,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	APIBaseURL   string `yaml:"api_base_url,omitempty"`
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".orgdrift", "config.yaml"), nil
}

// LoadConfig reads the file at the default location.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath reads the file at the given path. A missing file
// is not an error since every setting is optional.
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the configuration to the default location.
func (c *Config) SaveConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return c.SaveConfigToPath(configPath)
}

// SaveConfigToPath writes the configuration to the given path,
// creating the parent directory when needed. The file may hold a
// GitHub token, so both the directory and the file stay private.
func (c *Config) SaveConfigToPath(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the settings that can be checked without talking to
// GitHub.
func (c *Config) Validate() error {
	if c.GitHub.APIBaseURL != "" {
		u, err := url.Parse(c.GitHub.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("github.api_base_url must be a valid URL: %s", c.GitHub.APIBaseURL)
		}
	}
	return nil
}

// ValidateGitHub additionally requires a token, for flows that are
// about to call the API.
func (c *Config) ValidateGitHub() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GitHub token is required")
	}
	return nil
}
