package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/claippy/claippy/internal/constants"
)

// ConfigFileName is the name of the config file
const ConfigFileName = "config.yaml"

// FileConfig represents the configuration file structure.
type FileConfig struct {
	Model        string   `yaml:"model,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty"`
	MaxTokens    int      `yaml:"max_tokens,omitempty"`
	Temperature  float64  `yaml:"temperature,omitempty"`
	APIKeys      []string `yaml:"api_keys,omitempty"`
	DataDir      string   `yaml:"data_dir,omitempty"`

	// Default flags
	Defaults *DefaultsConfig `yaml:"defaults,omitempty"`
}

// DefaultsConfig holds default flag values.
type DefaultsConfig struct {
	Stream bool `yaml:"stream,omitempty"`
	Render bool `yaml:"render,omitempty"`
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	var paths []string

	// 1. Current worktree
	paths = append(paths, filepath.Join(".", constants.StoreDirName, ConfigFileName))

	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "claippy", ConfigFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "claippy", ConfigFileName))
	}

	return paths
}

// LoadConfigFile attempts to load configuration from the first file found.
func LoadConfigFile() (*FileConfig, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return loadConfigFromPath(path)
		}
	}

	// No config file found, return empty config
	return &FileConfig{}, nil
}

func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &fc, nil
}

// applyFileConfig applies file configuration to the main Config. File config
// has lower priority than environment variables and CLI flags. The file's
// API keys are returned rather than applied; Validate decides whether env
// keys take precedence.
func (c *Config) applyFileConfig(fc *FileConfig) []string {
	if fc == nil {
		return nil
	}

	if c.Model == "" && fc.Model != "" {
		c.Model = fc.Model
	}
	if c.Endpoint == "" && fc.Endpoint != "" {
		c.Endpoint = fc.Endpoint
	}
	if c.SystemPrompt == "" && fc.SystemPrompt != "" {
		c.SystemPrompt = fc.SystemPrompt
	}
	if c.MaxTokens == 0 && fc.MaxTokens > 0 {
		c.MaxTokens = fc.MaxTokens
	}
	if c.Temperature == 0 && fc.Temperature > 0 {
		c.Temperature = fc.Temperature
	}
	if c.DataDir == "" && fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}

	// Since a bool flag left at false is indistinguishable from one never
	// set, file defaults only ever turn flags on.
	if fc.Defaults != nil {
		if fc.Defaults.Stream && !c.Stream {
			c.Stream = true
		}
		if fc.Defaults.Render && !c.Render {
			c.Render = true
		}
	}

	return fc.APIKeys
}
