package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/search"
)

// Kind classifies a stage failure for the retry policy and the terminal
// result. Kinds are coarse on purpose: the engine only needs to know whether
// an error is worth retrying, not which backend produced it.
type Kind string

const (
	// KindProvider covers model backend failures: rate limits, transient
	// network errors, 5xx responses. Remote agent transport failures fall
	// here too since the engine treats agents as opaque backends.
	KindProvider Kind = "provider_error"

	// KindTool covers search and retrieval tool failures.
	KindTool Kind = "tool_error"

	// KindTimeout means the stage exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindValidation means the stage produced malformed or empty output.
	KindValidation Kind = "validation_error"

	// KindConfiguration means the pipeline itself is misconfigured.
	KindConfiguration Kind = "configuration_error"

	// KindOrderViolation means the context store's ordering invariant was
	// breached. A setup defect, never retried.
	KindOrderViolation Kind = "order_violation"

	// KindCancelled means the run was aborted by external request.
	KindCancelled Kind = "cancelled"
)

// Retryable reports whether failures of this kind are retried up to the
// stage's retry ceiling. Timeouts are handled separately by the executor:
// retryable exactly once regardless of the ceiling.
func (k Kind) Retryable() bool {
	switch k {
	case KindProvider, KindTool:
		return true
	}
	return false
}

// ValidationError reports that a stage produced output that fails its
// contract: empty content, a gross length deviation, missing sources.
type ValidationError struct {
	Stage   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline: validation failed for stage %q: %s", e.Stage, e.Message)
}

// ConfigurationError reports a pipeline setup defect: empty stage sequence,
// duplicate ordinals, a spec with no capability.
type ConfigurationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "pipeline: configuration error: " + e.Message
}

// OrderViolationError reports an append to the context store out of the
// expected ordinal sequence.
type OrderViolationError struct {
	Expected int
	Got      int
}

// Error implements the error interface.
func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("pipeline: order violation: expected ordinal %d, got %d", e.Expected, e.Got)
}

// Classify maps an error from a stage invocation to its failure kind.
//
// Context errors keep their identity through every boundary client in this
// codebase, so deadline and cancellation detection is reliable. Errors that
// match none of the typed families are treated as validation failures: the
// stage broke its contract of signalling failure through a typed error.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var (
		validationErr *ValidationError
		configErr     *ConfigurationError
		orderErr      *OrderViolationError
		providerErr   *llm.ProviderError
		toolErr       *search.ToolError
		transportErr  *a2a.TransportError
		rpcErr        *a2a.RPCError
	)
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &configErr):
		return KindConfiguration
	case errors.As(err, &orderErr):
		return KindOrderViolation
	case errors.As(err, &providerErr):
		return KindProvider
	case errors.As(err, &toolErr):
		return KindTool
	case errors.As(err, &transportErr):
		return KindProvider
	case errors.As(err, &rpcErr):
		// A classifying agent attaches the original failure kind to the
		// error data. Honor it so a remote validation failure is not
		// retried as if the backend were flaky.
		if kind := Kind(rpcErr.ErrorKind()); kind.known() {
			return kind
		}
		return KindProvider
	}

	return KindValidation
}

// known reports whether the value names one of the declared failure kinds.
func (k Kind) known() bool {
	switch k {
	case KindProvider, KindTool, KindTimeout, KindValidation,
		KindConfiguration, KindOrderViolation, KindCancelled:
		return true
	}
	return false
}
