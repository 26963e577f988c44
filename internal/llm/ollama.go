// Package llm talks to the external text-generation backend.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bank-analytics/internal/domain"
)

// Backend completes a (system instructions, user message) pair into free-form
// text. Implementations make a single attempt and never retry.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	Endpoint    string        // base URL, e.g. http://localhost:11434
	Model       string        // e.g. mistral
	Timeout     time.Duration // bounds the whole request
	Temperature float64
}

// OllamaClient calls the Ollama chat API.
type OllamaClient struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllamaClient creates a client. Zero-valued config fields take defaults.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &OllamaClient{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string { return c.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options"`
	Messages []chatMessage  `json:"messages"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Complete implements Backend.
func (c *OllamaClient) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:   c.cfg.Model,
		Stream:  false,
		Options: map[string]any{"temperature": c.cfg.Temperature},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.ErrBackend(err, "backend unreachable at %s", c.cfg.Endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", domain.ErrBackend(err, "read backend response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.ErrBackend(nil, "backend returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", domain.ErrBackend(err, "decode backend response")
	}
	if out.Error != "" {
		return "", domain.ErrBackend(nil, "backend error: %s", out.Error)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", domain.ErrBackend(nil, "backend returned empty content")
	}
	return out.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
