package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Client = (*SerperClient)(nil)

// defaultSerperURL is the hosted Serper search endpoint.
const defaultSerperURL = "https://google.serper.dev/search"

// SerperClient queries the Serper.dev Google search API.
type SerperClient struct {
	http   *http.Client
	url    string
	apiKey string
}

// SerperOption configures a SerperClient.
type SerperOption func(*SerperClient)

// WithEndpoint overrides the search endpoint URL (used in tests).
func WithEndpoint(url string) SerperOption {
	return func(c *SerperClient) {
		c.url = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) SerperOption {
	return func(c *SerperClient) {
		c.http.Timeout = d
	}
}

// NewSerperClient creates a search Client backed by Serper.dev.
func NewSerperClient(apiKey string, opts ...SerperOption) *SerperClient {
	c := &SerperClient{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		url:    defaultSerperURL,
		apiKey: apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// serperRequest is the Serper search request body.
type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
}

// serperResponse is the subset of the Serper response we consume.
type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search performs one search call and maps organic hits to Results.
func (c *SerperClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	body, err := json.Marshal(serperRequest{Query: query, Num: limit})
	if err != nil {
		return nil, &ToolError{Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &ToolError{Message: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ToolError{Message: "search call failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ToolError{Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ToolError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var parsed serperResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ToolError{Message: "decode response", Err: err}
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, hit := range parsed.Organic {
		results = append(results, Result{
			Title:   hit.Title,
			URL:     hit.Link,
			Snippet: hit.Snippet,
		})
	}
	return results, nil
}
