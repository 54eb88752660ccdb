// Package search defines the web retrieval boundary used by the research
// stage. Only the Client interface crosses into the rest of the system.
package search

import (
	"context"
	"fmt"
)

// Result is one ranked search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client is the capability interface for the search tool.
type Client interface {
	// Search returns up to limit ranked results for the query.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// SearchFunc adapts a function to the Client interface.
type SearchFunc func(ctx context.Context, query string, limit int) ([]Result, error)

// Search calls f.
func (f SearchFunc) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	return f(ctx, query, limit)
}

// ToolError is returned when a search call fails. The pipeline's retry
// policy treats it as transient.
type ToolError struct {
	// Status is the HTTP status code, zero for transport-level failures.
	Status int

	// Message is a human-readable description of the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("search: tool error: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("search: tool error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// Stub returns a Client that always answers with the given results. It is
// used for dry-run mode and in tests.
func Stub(results ...Result) Client {
	return SearchFunc(func(_ context.Context, _ string, limit int) ([]Result, error) {
		if limit > 0 && limit < len(results) {
			return results[:limit], nil
		}
		return results, nil
	})
}
