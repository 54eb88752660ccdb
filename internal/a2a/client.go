package a2a

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client sends work to remote agents.
type Client interface {
	// SendMessage sends a message to an agent and returns the resulting
	// task. In blocking mode the call returns once the task reaches a
	// terminal state.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask retrieves a task by ID from a specific agent.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// CancelTask cancels a running task.
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches the agent card from a base URL's well-known URI.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}

// TransportError is returned when a call to a remote agent fails at the
// HTTP or network level, before any JSON-RPC response is obtained. The
// engine treats remote agents as opaque backends, so a transport failure is
// retryable the same way a provider failure is.
type TransportError struct {
	// Method is the JSON-RPC method being invoked, empty for discovery.
	Method string

	// Status is the HTTP status code, zero for network-level failures.
	Status int

	// Message is a human-readable description of the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("a2a: %s: HTTP %d: %s", e.Method, e.Status, e.Message)
	}
	return fmt.Sprintf("a2a: %s: %s", e.Method, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// RPCError is a JSON-RPC error returned by a remote agent.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("a2a: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("a2a: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

// ErrorKind extracts the error category a classifying server attached to the
// error data. It returns the empty string when the server sent none.
func (e *RPCError) ErrorKind() string {
	if len(e.Data) == 0 {
		return ""
	}
	var data errorKindData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return ""
	}
	return data.Kind
}
