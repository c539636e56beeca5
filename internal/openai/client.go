// Package openai adapts go-openai to the two calls the engine needs: batch
// embeddings and single-prompt chat completions.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// APIError and RequestError are the error types returned for non-2xx responses.
// APIError carries a decoded error body; RequestError is used when the body is not one.
type (
	APIError     = goopenai.APIError
	RequestError = goopenai.RequestError
)

// Client calls an OpenAI-compatible API. Any server that implements
// POST {base}/embeddings and POST {base}/chat/completions works.
type Client struct {
	api *goopenai.Client
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL sets the API base URL, e.g. "http://localhost:11434/v1".
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.httpClient.Timeout = timeout }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// NewClient creates a client. apiKey may be empty for local servers.
func NewClient(apiKey string, opts ...Option) *Client {
	o := &options{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = o.baseURL
	cfg.HTTPClient = o.httpClient
	return &Client{api: goopenai.NewClientWithConfig(cfg)}
}

// Embeddings returns one embedding per input, in input order.
func (c *Client) Embeddings(ctx context.Context, model string, input []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
		Input: input,
		Model: goopenai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings: %w", err)
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(input))
	}
	out := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("openai: bad embedding index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Complete sends a single user prompt (with an optional system prompt) and returns
// the first choice's content. Temperature is left at the server default.
func (c *Client) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{Model: model}
	if system != "" {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
