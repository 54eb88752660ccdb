package agent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// Compile-time interface checks.
var (
	_ Agent       = (*BaseAgent)(nil)
	_ a2a.Handler = (*BaseAgent)(nil)
)

// ProcessFunc is the function specialist agents implement to handle incoming
// work. It receives the task (in WORKING state) and the message, and returns
// artifacts to attach to the completed task. Errors must be typed so the
// engine's retry policy can classify them.
type ProcessFunc func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error)

// BaseAgent provides the shared boilerplate for specialists: task lifecycle
// tracking, the protocol handler, and an embedded server. Specialists embed
// BaseAgent and supply a ProcessFunc.
type BaseAgent struct {
	server  *a2a.Server
	store   *a2a.TaskStore
	card    a2a.AgentCard
	process ProcessFunc
}

// NewBaseAgent creates a BaseAgent with the given card and process function.
func NewBaseAgent(card a2a.AgentCard, process ProcessFunc) *BaseAgent {
	b := &BaseAgent{
		store:   a2a.NewTaskStore(),
		card:    card,
		process: process,
	}
	// Served errors carry their failure kind so the engine's retry policy
	// treats a remote stage the same as a local one.
	b.server = a2a.NewServer(card, b, a2a.WithErrorClassifier(func(err error) string {
		return string(pipeline.Classify(err))
	}))
	return b
}

// Card returns the agent's manifest.
func (b *BaseAgent) Card() a2a.AgentCard {
	return b.card
}

// HandleTask processes a task with a message and returns the completed task.
// The task walks submitted -> working -> completed (or failed); the original
// typed error from the process function is returned alongside the failed
// task so local callers keep error identity.
func (b *BaseAgent) HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error) {
	task.Status = a2a.TaskStatus{
		State:     a2a.TaskStateSubmitted,
		Timestamp: time.Now(),
	}
	if err := b.store.Create(task); err != nil {
		return nil, fmt.Errorf("agent: create task: %w", err)
	}

	if err := b.store.Update(task.ID, func(t *a2a.Task) {
		t.Status = a2a.TaskStatus{
			State:     a2a.TaskStateWorking,
			Timestamp: time.Now(),
		}
	}); err != nil {
		return nil, fmt.Errorf("agent: update task to working: %w", err)
	}

	artifacts, err := b.process(ctx, &task, msg)
	if err != nil {
		_ = b.store.Update(task.ID, func(t *a2a.Task) {
			t.Status = a2a.TaskStatus{
				State:     a2a.TaskStateFailed,
				Timestamp: time.Now(),
				Message:   &a2a.Message{Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart(err.Error())}},
			}
		})
		result, _ := b.store.Get(task.ID)
		return result, err
	}

	if err := b.store.Update(task.ID, func(t *a2a.Task) {
		t.Status = a2a.TaskStatus{
			State:     a2a.TaskStateCompleted,
			Timestamp: time.Now(),
		}
		t.Artifacts = artifacts
	}); err != nil {
		return nil, fmt.Errorf("agent: update task to completed: %w", err)
	}

	return b.store.Get(task.ID)
}

// Handler exposes the agent's HTTP routes for mounting on an existing
// server.
func (b *BaseAgent) Handler() http.Handler {
	return b.server.Handler()
}

// Start launches the agent's HTTP server on the given address.
func (b *BaseAgent) Start(ctx context.Context, addr string) error {
	return b.server.Start(ctx, addr)
}

// Stop gracefully shuts down the agent.
func (b *BaseAgent) Stop(ctx context.Context) error {
	return b.server.Stop(ctx)
}

// HandleSendMessage creates a task from the incoming message and processes it.
func (b *BaseAgent) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	task := a2a.Task{
		ID:        a2a.NewID(),
		ContextID: req.Message.ContextID,
	}
	return b.HandleTask(ctx, task, req.Message)
}

// HandleGetTask retrieves a task by ID from the store.
func (b *BaseAgent) HandleGetTask(_ context.Context, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return b.store.Get(req.ID)
}

// HandleCancelTask cancels a running task if it is not in a terminal state.
func (b *BaseAgent) HandleCancelTask(_ context.Context, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	err := b.store.Update(req.ID, func(t *a2a.Task) {
		if !t.Status.State.IsTerminal() {
			t.Status = a2a.TaskStatus{
				State:     a2a.TaskStateCanceled,
				Timestamp: time.Now(),
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return b.store.Get(req.ID)
}
