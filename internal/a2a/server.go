package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
)

// Handler processes incoming protocol requests for a specialist agent.
type Handler interface {
	// HandleSendMessage processes an incoming message and returns a task.
	HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error)

	// HandleGetTask returns the current state of a task.
	HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error)

	// HandleCancelTask cancels a running task.
	HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error)
}

// ErrorClassifier labels a handler error with a category name that travels
// in the JSON-RPC error data, so callers can tell transient faults from
// permanent ones without parsing messages.
type ErrorClassifier func(error) string

// Server exposes one agent over HTTP: the agent card at the well-known URI
// and a JSON-RPC dispatch endpoint at the root.
type Server struct {
	card     AgentCard
	handler  Handler
	classify ErrorClassifier
	http     *http.Server
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithErrorClassifier attaches a category to handler errors in the JSON-RPC
// error data.
func WithErrorClassifier(classify ErrorClassifier) ServerOption {
	return func(s *Server) {
		s.classify = classify
	}
}

// NewServer creates a server for the given agent.
func NewServer(card AgentCard, handler Handler, opts ...ServerOption) *Server {
	s := &Server{
		card:    card,
		handler: handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes: the agent card at the well-known URI
// and JSON-RPC dispatch at the root.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+WellKnownCardPath, s.handleAgentCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)
	return mux
}

// Start binds the listen address and begins serving in a background
// goroutine. A bind failure is returned here rather than lost in the
// goroutine.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("a2a: listen %s: %w", addr, err)
	}

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go s.http.Serve(ln)

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleAgentCard serves the agent card at the well-known endpoint.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC decodes the envelope and dispatches to the handler.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error(), nil)
		return
	}

	ctx := r.Context()

	switch req.Method {
	case MethodSendMessage:
		dispatch(ctx, w, &req, s.classify, s.handler.HandleSendMessage)
	case MethodGetTask:
		dispatch(ctx, w, &req, s.classify, s.handler.HandleGetTask)
	case MethodCancelTask:
		dispatch(ctx, w, &req, s.classify, s.handler.HandleCancelTask)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// dispatch unmarshals the typed params, invokes the handler method, and
// writes the result or error.
func dispatch[P any](ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest, classify ErrorClassifier, fn func(context.Context, P) (*Task, error)) {
	var params P
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error(), nil)
		return
	}

	result, err := fn(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error(), errorData(classify, err))
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// errorData builds the JSON-RPC error data payload carrying the error's
// category, when a classifier is configured.
func errorData(classify ErrorClassifier, err error) json.RawMessage {
	if classify == nil {
		return nil
	}
	kind := classify(err)
	if kind == "" {
		return nil
	}
	data, marshalErr := json.Marshal(errorKindData{Kind: kind})
	if marshalErr != nil {
		return nil
	}
	return data
}

// errorKindData is the JSON shape of the error category in the error data.
type errorKindData struct {
	Kind string `json:"kind"`
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error(), nil)
		return
	}

	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	}

	json.NewEncoder(w).Encode(resp)
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string, data json.RawMessage) {
	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	json.NewEncoder(w).Encode(resp)
}
