// Package llm provides the chat-completion client for the remote model
// backend. The backend speaks the OpenAI-compatible wire format; the
// default deployment targets DashScope's compatible-mode endpoint with
// the qwen-plus model.
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

	"github.com/starling/clipnote/internal/apperr"
)

// Client is the single operation the content pipeline needs from the
// model backend.
type Client interface {
	// Chat sends a system message and a user prompt and returns the raw
	// text of the first completion choice.
	Chat(ctx context.Context, system, user string) (string, error)
}

// Config holds the backend connection and sampling parameters.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// OpenAI is an http Client implementation for OpenAI-compatible
// chat-completions APIs.
type OpenAI struct {
	cfg  Config
	http *http.Client
}

// NewOpenAI creates a client. Timeout bounds the whole request; zero
// falls back to 30 seconds.
func NewOpenAI(cfg Config) *OpenAI {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat performs one chat-completion round trip. Every failure mode —
// transport error, non-2xx status, undecodable body, empty choices —
// returns a *apperr.RemoteError so callers can tell backend trouble
// apart from a reply that merely failed to parse downstream.
func (c *OpenAI) Chat(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	})
	if err != nil {
		return "", &apperr.RemoteError{Op: "chat", Err: err}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &apperr.RemoteError{Op: "chat", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &apperr.RemoteError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log line, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &apperr.RemoteError{
			Op:         "chat",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("backend: %s", strings.TrimSpace(string(snippet))),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &apperr.RemoteError{Op: "chat", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Choices) == 0 {
		return "", &apperr.RemoteError{Op: "chat", Err: fmt.Errorf("no completion choices returned")}
	}
	return decoded.Choices[0].Message.Content, nil
}
