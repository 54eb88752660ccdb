package agent

import (
	"context"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// Compile-time interface checks.
var (
	_ pipeline.Stage = (*LocalStage)(nil)
	_ pipeline.Stage = (*RemoteStage)(nil)
)

// LocalStage binds an in-process agent to the pipeline's stage contract. The
// agent's typed errors pass through unchanged, so the engine classifies them
// exactly as if it had called the backend itself.
type LocalStage struct {
	agent Agent
}

// NewLocalStage wraps an in-process agent as a pipeline stage.
func NewLocalStage(ag Agent) *LocalStage {
	return &LocalStage{agent: ag}
}

// Execute flattens the pipeline context into a stage request, hands it to
// the agent, and converts the resulting artifact back into a payload.
func (s *LocalStage) Execute(ctx context.Context, view pipeline.Context) (*pipeline.Payload, error) {
	msg, err := requestMessage("", requestFromView(view))
	if err != nil {
		return nil, err
	}

	task, err := s.agent.HandleTask(ctx, a2a.Task{ID: a2a.NewID()}, msg)
	if err != nil {
		return nil, err
	}

	resp, err := decodeResponse(task)
	if err != nil {
		return nil, err
	}
	return &pipeline.Payload{
		Content: resp.Content,
		Sources: resp.Sources,
		Meta:    resp.Meta,
	}, nil
}

// RemoteStage binds a remote agent endpoint to the pipeline's stage
// contract. Transport failures surface as a2a typed errors, which the engine
// treats as retryable provider failures; a failure inside the remote agent
// comes back as an RPC error carrying the agent's message.
type RemoteStage struct {
	client   a2a.Client
	endpoint string
}

// NewRemoteStage wraps a remote agent endpoint as a pipeline stage.
func NewRemoteStage(client a2a.Client, endpoint string) *RemoteStage {
	return &RemoteStage{client: client, endpoint: endpoint}
}

// Execute sends the stage request to the remote agent and converts the
// completed task back into a payload.
func (s *RemoteStage) Execute(ctx context.Context, view pipeline.Context) (*pipeline.Payload, error) {
	msg, err := requestMessage("", requestFromView(view))
	if err != nil {
		return nil, err
	}

	task, err := s.client.SendMessage(ctx, s.endpoint, a2a.SendMessageRequest{
		Message:       msg,
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	})
	if err != nil {
		return nil, err
	}

	resp, err := decodeResponse(task)
	if err != nil {
		return nil, err
	}
	return &pipeline.Payload{
		Content: resp.Content,
		Sources: resp.Sources,
		Meta:    resp.Meta,
	}, nil
}
