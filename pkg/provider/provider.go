// Package provider implements suggest.Provider against a chat-completions HTTP endpoint.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

const (
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7

	continueInstruction = "Please continue this text naturally:\n\n"
	// error bodies larger than this are not worth decoding
	maxErrorBody = 64 << 10
)

// ErrEmptyEndpoint is returned when a request has no endpoint to post to.
var ErrEmptyEndpoint = errors.New("provider: empty API endpoint")

// HTTPProvider posts chat-completion requests. The zero value is not usable, use New.
type HTTPProvider struct {
	client      *http.Client
	maxTokens   int
	temperature float64
	logger      *log.Logger
}

// Option configures an HTTPProvider.
type Option func(*HTTPProvider)

// WithClient replaces the pooled cleanhttp client.
func WithClient(c *http.Client) Option {
	return func(p *HTTPProvider) { p.client = c }
}

func WithMaxTokens(n int) Option {
	return func(p *HTTPProvider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(p *HTTPProvider) {
		if t >= 0 {
			p.temperature = t
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *HTTPProvider) { p.logger = l }
}

// New creates a provider backed by a pooled cleanhttp client.
func New(opts ...Option) *HTTPProvider {
	p := &HTTPProvider{
		client:      cleanhttp.DefaultPooledClient(),
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// BuildPrompt assembles the user message for a prefix and optional context.
func BuildPrompt(prefix, context string) string {
	if context == "" {
		return continueInstruction + prefix
	}
	return "Context:\n" + context + "\n\n" + continueInstruction + prefix
}

// Complete implements suggest.Provider. A response without a first choice yields an empty completion.
func (p *HTTPProvider) Complete(ctx context.Context, req suggest.Request) (string, error) {
	if strings.TrimSpace(req.Endpoint) == "" {
		return "", ErrEmptyEndpoint
	}

	body, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: BuildPrompt(req.Prefix, req.Context)},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		p.logger.Debug("Response carried no choices", "model", req.Model)
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e errorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Error.Message != "" {
		return errors.New(e.Error.Message)
	}
	return fmt.Errorf("API request failed: %d", resp.StatusCode)
}
