// Package llm provides the multimodal chat completion client used to answer
// questions over assembled manual context.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manualbridge/manualbridge/internal/domain"
)

// Completer is the interface the answer service depends on.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      RetryPolicy
}

// Config holds LLM client configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Message represents a chat message.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image in the message. Detail bounds how many image
// tokens the provider spends on it.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part.
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url, Detail: detail}}
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new LLM client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		retry: RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelay,
		},
	}
}

// Complete sends the conversation and returns the assistant's markdown reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", domain.ValidationError("Failed to marshal completion request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.TransportError("Failed to read completion response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.TransportError(fmt.Sprintf("Completion API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", domain.ParseError("Failed to decode completion response", err)
	}
	if parsed.Error != nil {
		return "", domain.TransportError("Completion API error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.TransportError("Completion API returned no choices", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

var _ Completer = (*Client)(nil)

// MockCompleter returns canned responses for tests.
type MockCompleter struct {
	Response string
	Err      error
	Calls    [][]Message
}

// Complete records the call and returns the configured response.
func (m *MockCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	m.Calls = append(m.Calls, messages)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

var _ Completer = (*MockCompleter)(nil)
