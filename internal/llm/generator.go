// Package llm defines the model backend boundary. The pipeline and the
// specialist agents only ever see the Generator interface; the concrete
// backend (an OpenAI-compatible HTTP service, or a canned generator for
// offline runs) is chosen at wiring time.
package llm

import (
	"context"
	"fmt"
)

// Request describes one completion call to the model backend.
type Request struct {
	// System is the system prompt framing the agent's role. Optional.
	System string

	// Prompt is the user-role prompt.
	Prompt string

	// Model overrides the client's default model when non-empty.
	Model string

	// MaxTokens bounds the completion length. Zero means backend default.
	MaxTokens int

	// Temperature controls sampling. Zero means backend default.
	Temperature float64
}

// Completion is the model backend's answer to a Request.
type Completion struct {
	// Text is the generated content.
	Text string

	// Model is the model that actually served the request.
	Model string

	// TokensUsed is the total token count reported by the backend,
	// zero if the backend does not report usage.
	TokensUsed int
}

// Generator is the capability interface for the model backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Completion, error)
}

// GenerateFunc adapts a function to the Generator interface.
type GenerateFunc func(ctx context.Context, req Request) (*Completion, error)

// Generate calls f.
func (f GenerateFunc) Generate(ctx context.Context, req Request) (*Completion, error) {
	return f(ctx, req)
}

// ProviderError is returned when a model backend call fails. Rate limits,
// transient network failures, and 5xx responses all surface as this type so
// the pipeline's retry policy can identify them.
type ProviderError struct {
	// Status is the HTTP status code, zero for transport-level failures.
	Status int

	// Message is a human-readable description of the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm: provider error: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("llm: provider error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }
