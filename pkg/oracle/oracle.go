// Package oracle wraps the generative-model service (Ollama) behind a small
// chat interface. The core treats the model as an opaque collaborator: a
// structured conversation goes in, free text or an error comes out, and
// every call is bounded by the configured timeout. Retries, if anyone ever
// wants them, belong here and not in the classifiers.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fraud165/triage/pkg/httputil"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation turn. Ordering is chronological and
// significant; turns are never mutated after creation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the oracle boundary consumed by the classifiers.
type Client interface {
	// Chat sends an ordered conversation and returns the model's reply text.
	Chat(ctx context.Context, turns []Turn) (string, error)
	// Generate runs a bare completion over a single prompt (used by the
	// LINE brief-analysis path, which carries no conversation state).
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaClient talks to an Ollama server's native chat/generate endpoints.
type OllamaClient struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOllamaClient creates a client for the given server and model. A
// non-positive timeout gets a 10s default.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  httputil.Client(httputil.TierMedium),
	}
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []Turn `json:"messages"`
	Stream   bool   `json:"stream"`
}

type chatResponse struct {
	Message Turn `json:"message"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Chat implements Client.
func (c *OllamaClient) Chat(ctx context.Context, turns []Turn) (string, error) {
	body, err := c.post(ctx, "/api/chat", chatRequest{Model: c.model, Messages: turns, Stream: false})
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// Generate implements Client.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, "/api/generate", generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return strings.TrimSpace(resp.Response), nil
}

func (c *OllamaClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle call: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
