// Package config loads application configuration from, in increasing
// priority: the config file, environment variables, and CLI flags.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/claippy/claippy/internal/constants"
)

// Environment variable names
const (
	EnvAPIKeys      = "ANTHROPIC_API_KEYS"
	EnvEndpoint     = "CLAIPPY_ENDPOINT"
	EnvModel        = "CLAIPPY_MODEL"
	EnvSystemPrompt = "CLAIPPY_SYSTEM_PROMPT"
	EnvMaxTokens    = "CLAIPPY_MAX_TOKENS"
	EnvTemperature  = "CLAIPPY_TEMPERATURE"
)

// Errors
var (
	ErrAPIKeyNotFound = errors.New("API key not found. Set ANTHROPIC_API_KEYS or api_keys in config.yaml")
	ErrInvalidNumber  = errors.New("invalid numeric setting")
)

// RotatableErrorCodes are HTTP status codes that should trigger key rotation.
var RotatableErrorCodes = []int{401, 403, 429}

// KeyRotator manages a pool of API keys with rotation support
type KeyRotator struct {
	keys       []string
	currentIdx int
}

// NewKeyRotator creates a KeyRotator from a list of keys.
func NewKeyRotator(keys []string) *KeyRotator {
	var cleaned []string
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key != "" {
			cleaned = append(cleaned, key)
		}
	}
	return &KeyRotator{keys: cleaned}
}

// NewKeyRotatorFromEnv creates a KeyRotator from a comma-separated
// environment variable.
func NewKeyRotatorFromEnv(envVar string) *KeyRotator {
	return NewKeyRotator(strings.Split(os.Getenv(envVar), ","))
}

// CurrentKey returns the current active API key.
func (kr *KeyRotator) CurrentKey() string {
	if len(kr.keys) == 0 {
		return ""
	}
	return kr.keys[kr.currentIdx]
}

// KeyCount returns the total number of keys.
func (kr *KeyRotator) KeyCount() int {
	return len(kr.keys)
}

// HasKeys returns true if there are any keys configured.
func (kr *KeyRotator) HasKeys() bool {
	return len(kr.keys) > 0
}

// Rotate moves to the next available API key, reporting false when the pool
// is exhausted.
func (kr *KeyRotator) Rotate() (string, bool) {
	if kr.currentIdx+1 >= len(kr.keys) {
		return "", false
	}
	kr.currentIdx++
	return kr.keys[kr.currentIdx], true
}

// ShouldRotateKey checks if the status code indicates trying another key.
func ShouldRotateKey(statusCode int) bool {
	for _, code := range RotatableErrorCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// Config holds the application configuration.
type Config struct {
	// Model API settings
	Model        string
	Endpoint     string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	APIKeys      *KeyRotator

	// Store location override; empty means worktree discovery
	DataDir string

	// Flags
	Stream  bool
	Render  bool
	Verbose bool
}

// NewConfig creates a new Config with zero values; call Validate to load.
func NewConfig() *Config {
	return &Config{}
}

// Validate layers the config file and environment onto the Config and fills
// in defaults. Flag values already set take precedence over both.
func (c *Config) Validate() error {
	// Config file first (lowest priority). Load errors are ignored so a
	// malformed optional file never blocks the CLI.
	fileKeys := []string(nil)
	if fc, err := LoadConfigFile(); err == nil {
		fileKeys = c.applyFileConfig(fc)
	}

	if c.Model == "" {
		c.Model = os.Getenv(EnvModel)
	}
	if c.Model == "" {
		c.Model = constants.DefaultModel
	}

	if c.Endpoint == "" {
		c.Endpoint = os.Getenv(EnvEndpoint)
	}
	if c.Endpoint == "" {
		c.Endpoint = constants.DefaultEndpoint
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")

	if c.SystemPrompt == "" {
		c.SystemPrompt = os.Getenv(EnvSystemPrompt)
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = constants.DefaultSystemPrompt
	}

	if c.MaxTokens == 0 {
		if v := os.Getenv(EnvMaxTokens); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return ErrInvalidNumber
			}
			c.MaxTokens = n
		}
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = constants.DefaultMaxTokens
	}

	if c.Temperature == 0 {
		if v := os.Getenv(EnvTemperature); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return ErrInvalidNumber
			}
			c.Temperature = f
		}
	}
	if c.Temperature == 0 {
		c.Temperature = constants.DefaultTemperature
	}

	// Env keys override file keys entirely; key pools don't merge.
	if envRotator := NewKeyRotatorFromEnv(EnvAPIKeys); envRotator.HasKeys() {
		c.APIKeys = envRotator
	} else if c.APIKeys == nil || !c.APIKeys.HasKeys() {
		c.APIKeys = NewKeyRotator(fileKeys)
	}

	return nil
}
