// Package llm wraps the text-generation backend: a daily request gate, a
// non-blocking narrator with deterministic fallbacks, and the HTTP client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1/messages"
	DefaultModel   = "claude-haiku-4-5-20251001"
	apiVersion     = "2023-06-01"
)

// Backend failure classes. Every error returned by a Backend wraps one of these
// or a context error.
var (
	ErrAuth        = errors.New("backend rejected credentials")
	ErrRateLimited = errors.New("backend rate limited")
	ErrNetwork     = errors.New("backend unreachable")
	ErrMalformed   = errors.New("backend response malformed")
	ErrDisabled    = errors.New("backend not configured")
)

// Backend sends one prompt and returns the generated text.
type Backend interface {
	Send(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Client wraps the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithModel(m string) ClientOption {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// NewClient creates a client. Returns nil if apiKey is empty (generation
// disabled; the narrator then uses fallbacks only).
func NewClient(apiKey string, opts ...ClientOption) *Client {
	if apiKey == "" {
		return nil
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		// Per-call deadlines come from the context.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Send issues one Messages call.
func (c *Client) Send(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("API call: %w", ctxErr)
		}
		return "", fmt.Errorf("API call: %w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w: %w", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("API error %d: %w", resp.StatusCode, ErrAuth)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("API error %d: %w", resp.StatusCode, ErrRateLimited)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("API error %d: %w", resp.StatusCode, ErrNetwork)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("API error %d: %w: %s", resp.StatusCode, ErrMalformed, truncate(string(respBody), 200))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w: %w", ErrMalformed, err)
	}

	var b strings.Builder
	for _, part := range apiResp.Content {
		if part.Type == "" || part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("empty response: %w", ErrMalformed)
	}

	slog.Debug("backend call",
		"model", c.model,
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
