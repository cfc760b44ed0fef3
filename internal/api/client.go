package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claippy/claippy/internal/config"
	"github.com/claippy/claippy/internal/constants"
	"github.com/claippy/claippy/internal/logging"
)

// Ensure the concrete client implements the executor interface
var _ QueryExecutor = (*Client)(nil)

// messagesRequest is the Messages API request body.
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
}

// Client is a streaming Messages API client with API key rotation and
// retry on transient failures.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewClient creates a query executor from the configuration. It fails when
// no API key is configured.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.APIKeys == nil || !cfg.APIKeys.HasKeys() {
		return nil, config.ErrAPIKeyNotFound
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: constants.DefaultAPITimeout,
		},
	}, nil
}

// Generate sends the prompt payload and streams the response, returning the
// accumulated text. Provider errors are surfaced verbatim in the returned
// error; nothing is retried beyond transient HTTP failures.
func (c *Client) Generate(ctx context.Context, req Request, onChunk func(content string)) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System:      req.System,
		Messages:    req.Messages,
		Stream:      true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.send(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	processor := NewSSEProcessor(resp.Body)
	if err := processor.Process(ctx, onChunk); err != nil {
		return "", fmt.Errorf("stream interrupted: %w", err)
	}
	return processor.Content(), nil
}

// send issues the HTTP request, rotating keys on auth/rate-limit responses
// and backing off on transient server errors. The response body is open on
// success; the caller owns closing it.
func (c *Client) send(ctx context.Context, body []byte) (*http.Response, error) {
	var lastStatus int
	var lastBody string

	for attempt := 0; attempt < MaxRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := CalculateBackoff(attempt - 1)
			logging.Debug("retrying request", logging.Fields{
				"attempt": attempt,
				"backoff": backoff.String(),
			})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.cfg.APIKeys.CurrentKey())
		httpReq.Header.Set("anthropic-version", constants.AnthropicVersion)
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		lastStatus = resp.StatusCode
		lastBody = string(errBody)
		logging.Warn("model API error", logging.Fields{
			"status": lastStatus,
			"body":   lastBody,
		})

		if config.ShouldRotateKey(resp.StatusCode) {
			if key, ok := c.cfg.APIKeys.Rotate(); ok {
				logging.Info("rotated API key", logging.Fields{"key_suffix": suffix(key)})
				continue
			}
		}
		if !ShouldRetry(resp.StatusCode) {
			break
		}
	}

	return nil, fmt.Errorf("model API returned status %d: %s", lastStatus, lastBody)
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// suffix returns the last few characters of a key for log identification.
func suffix(key string) string {
	if len(key) <= 4 {
		return key
	}
	return "..." + key[len(key)-4:]
}
