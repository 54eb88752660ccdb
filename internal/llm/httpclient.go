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
)

// Compile-time interface check.
var _ Generator = (*HTTPGenerator)(nil)

// HTTPGenerator calls an OpenAI-compatible chat completions endpoint.
type HTTPGenerator struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// GeneratorOption configures an HTTPGenerator.
type GeneratorOption func(*HTTPGenerator)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *HTTPGenerator) {
		g.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) GeneratorOption {
	return func(g *HTTPGenerator) {
		g.http = hc
	}
}

// NewHTTPGenerator creates a Generator backed by an OpenAI-compatible API.
// baseURL is the service root (e.g. "https://api.openai.com"); model is the
// default model used when a Request does not name one.
func NewHTTPGenerator(baseURL, apiKey, model string, opts ...GeneratorOption) *HTTPGenerator {
	g := &HTTPGenerator{
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// chatMessage is one entry in the chat completions messages array.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatResponse is the subset of the chat completions response we consume.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate performs one chat completion call.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, &ProviderError{Message: "marshal request", Err: err}
	}

	url := g.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Message: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		// Let context errors through untouched so cancellation and
		// deadlines keep their identity for the caller.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ProviderError{Message: "chat completion call failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ProviderError{Message: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ProviderError{Message: "response contained no choices"}
	}

	return &Completion{
		Text:       parsed.Choices[0].Message.Content,
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

// Canned returns a Generator that always produces the given text. It is used
// for dry-run mode and in tests where no model backend is available.
func Canned(text string) Generator {
	return GenerateFunc(func(_ context.Context, req Request) (*Completion, error) {
		return &Completion{
			Text:  fmt.Sprintf("%s\n\n_(canned completion for a %d-character prompt)_", text, len(req.Prompt)),
			Model: "canned",
		}, nil
	})
}
