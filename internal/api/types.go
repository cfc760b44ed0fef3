// Package api provides the query executor interface and its HTTP
// implementation for the Anthropic Messages API, with SSE streaming,
// key rotation, and retry logic for transient failures.
package api

import "context"

// Message is one turn of the wire-format conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the prompt payload handed to a query executor: the system
// prompt (including any context block) plus the message history ending in
// the new user message.
type Request struct {
	System   string
	Messages []Message
}

// QueryExecutor is the collaborator that turns a prompt payload into
// generated text. onChunk, when non-nil, receives content fragments as they
// stream in; the full response is returned either way.
type QueryExecutor interface {
	Generate(ctx context.Context, req Request, onChunk func(content string)) (string, error)
	Close()
}
