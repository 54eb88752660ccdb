package agent

import (
	"context"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// ProofreaderAgent edits a draft for grammar, clarity, and consistency.
type ProofreaderAgent struct {
	*BaseAgent
	gen llm.Generator
}

// NewProofreaderAgent creates the proofreader wired to a model backend.
func NewProofreaderAgent(gen llm.Generator) *ProofreaderAgent {
	pa := &ProofreaderAgent{gen: gen}

	card := a2a.AgentCard{
		Name:        "proofreader-agent",
		Description: "Edits article drafts for quality, accuracy, and readability",
		Version:     "dev",
		Skills: []a2a.AgentSkill{
			{
				ID:          "edit-article",
				Name:        "Edit Article",
				Description: "Polish a draft for grammar, flow, and consistency",
				Tags:        []string{"editing", metaRole + string(RoleProofreader)},
			},
		},
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
	}

	pa.BaseAgent = NewBaseAgent(card, pa.processMessage)
	return pa
}

func (pa *ProofreaderAgent) processMessage(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	req, err := decodeRequest(msg)
	if err != nil {
		return nil, &pipeline.ValidationError{Stage: string(RoleProofreader), Message: err.Error()}
	}

	draft, ok := req.For(string(RoleWriter))
	if !ok {
		return nil, &pipeline.ValidationError{
			Stage:   string(RoleProofreader),
			Message: "no article draft in context",
		}
	}

	completion, err := pa.gen.Generate(ctx, llm.Request{
		System: proofreaderSystem,
		Prompt: proofreadingPrompt(req, draft.Content),
	})
	if err != nil {
		return nil, err
	}

	return responseArtifact("edited-article", StageResponse{
		Content: completion.Text,
		Sources: req.AllSources(),
		Meta:    map[string]string{pipeline.MetaModel: completion.Model},
	})
}
