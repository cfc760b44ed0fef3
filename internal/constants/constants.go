// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// Timeout constants used across the application
const (
	// DefaultAPITimeout is the timeout for model API requests (streaming can take a while)
	DefaultAPITimeout = 120 * time.Second
	// DefaultFetchTimeout is the timeout for fetching URL context entries
	DefaultFetchTimeout = 30 * time.Second
)

// Application defaults
const (
	DefaultModel        = "claude-3-sonnet-20240229"
	DefaultEndpoint     = "https://api.anthropic.com/v1/messages"
	DefaultSystemPrompt = "You are a concise assistant for software engineers. " +
		"Wrap any generated file or code artifact in <Artifact></Artifact> tags."
	DefaultMaxTokens   = 4096
	DefaultTemperature = 1.0

	// AnthropicVersion is the API version header sent with every request
	AnthropicVersion = "2023-06-01"
)

// StoreDirName is the per-worktree directory holding conversation records.
const StoreDirName = ".claippy"
