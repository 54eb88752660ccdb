package agent

import (
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// StageRequest is the wire envelope the engine sends a specialist: the topic,
// the run options, and everything prior stages produced. Local and remote
// invocations share it so an agent behaves identically either way.
type StageRequest struct {
	Topic             string        `json:"topic"`
	WordCount         int           `json:"wordCount"`
	Tone              string        `json:"tone"`
	IncludeReferences bool          `json:"includeReferences"`
	Prior             []PriorResult `json:"prior,omitempty"`
}

// PriorResult carries one earlier stage's output forward.
type PriorResult struct {
	Stage   string            `json:"stage"`
	Content string            `json:"content"`
	Sources []string          `json:"sources,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// StageResponse is the wire envelope a specialist returns.
type StageResponse struct {
	Content string            `json:"content"`
	Sources []string          `json:"sources,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// requestFromView flattens the pipeline's accumulated context into the wire
// envelope.
func requestFromView(view pipeline.Context) StageRequest {
	req := StageRequest{
		Topic:             view.Topic,
		WordCount:         view.Config.WordCount,
		Tone:              string(view.Config.Tone),
		IncludeReferences: !view.Config.OmitReferences,
	}
	for _, r := range view.Results {
		req.Prior = append(req.Prior, PriorResult{
			Stage:   r.Stage,
			Content: r.Payload.Content,
			Sources: r.Payload.Sources,
			Meta:    r.Payload.Meta,
		})
	}
	return req
}

// Latest returns the most recent prior result, or false when this is the
// first stage.
func (r StageRequest) Latest() (PriorResult, bool) {
	if len(r.Prior) == 0 {
		return PriorResult{}, false
	}
	return r.Prior[len(r.Prior)-1], true
}

// For returns the named prior stage's result.
func (r StageRequest) For(stage string) (PriorResult, bool) {
	for _, p := range r.Prior {
		if p.Stage == stage {
			return p, true
		}
	}
	return PriorResult{}, false
}

// AllSources collects every source URL seen so far, deduplicated, in first
// appearance order.
func (r StageRequest) AllSources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.Prior {
		for _, s := range p.Sources {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// requestMessage wraps a StageRequest into a protocol message.
func requestMessage(contextID string, req StageRequest) (a2a.Message, error) {
	part, err := a2a.DataPart(req)
	if err != nil {
		return a2a.Message{}, fmt.Errorf("agent: encode stage request: %w", err)
	}
	return a2a.Message{
		MessageID: a2a.NewID(),
		ContextID: contextID,
		Role:      a2a.RoleUser,
		Parts:     []a2a.Part{part},
	}, nil
}

// decodeRequest extracts a StageRequest from an incoming message's data part.
func decodeRequest(msg a2a.Message) (StageRequest, error) {
	for _, p := range msg.Parts {
		if p.Data == nil {
			continue
		}
		var req StageRequest
		if err := json.Unmarshal(p.Data, &req); err != nil {
			return StageRequest{}, fmt.Errorf("agent: decode stage request: %w", err)
		}
		return req, nil
	}
	return StageRequest{}, fmt.Errorf("agent: message carries no stage request")
}

// responseArtifact wraps a StageResponse into the single artifact a
// specialist attaches to its completed task.
func responseArtifact(name string, resp StageResponse) ([]a2a.Artifact, error) {
	part, err := a2a.DataPart(resp)
	if err != nil {
		return nil, fmt.Errorf("agent: encode stage response: %w", err)
	}
	return []a2a.Artifact{{
		ArtifactID: a2a.NewID(),
		Name:       name,
		Parts:      []a2a.Part{part},
	}}, nil
}

// decodeResponse extracts a StageResponse from a completed task's artifacts.
func decodeResponse(task *a2a.Task) (StageResponse, error) {
	for _, art := range task.Artifacts {
		for _, p := range art.Parts {
			if p.Data == nil {
				continue
			}
			var resp StageResponse
			if err := json.Unmarshal(p.Data, &resp); err != nil {
				return StageResponse{}, fmt.Errorf("agent: decode stage response: %w", err)
			}
			return resp, nil
		}
	}
	return StageResponse{}, fmt.Errorf("agent: task %s carries no stage response", task.ID)
}
