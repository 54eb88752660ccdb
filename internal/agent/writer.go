package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// minLengthRatio is the fraction of the target word count below which a
// draft is rejected as malformed rather than merely short.
const minLengthRatio = 0.25

// WriterAgent turns a research brief into a full article draft.
type WriterAgent struct {
	*BaseAgent
	gen llm.Generator
}

// NewWriterAgent creates the writer wired to a model backend.
func NewWriterAgent(gen llm.Generator) *WriterAgent {
	wa := &WriterAgent{gen: gen}

	card := a2a.AgentCard{
		Name:        "writer-agent",
		Description: "Writes structured article drafts from research briefs",
		Version:     "dev",
		Skills: []a2a.AgentSkill{
			{
				ID:          "write-article",
				Name:        "Write Article",
				Description: "Draft a structured article from accumulated research",
				Tags:        []string{"writing", metaRole + string(RoleWriter)},
			},
		},
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
	}

	wa.BaseAgent = NewBaseAgent(card, wa.processMessage)
	return wa
}

func (wa *WriterAgent) processMessage(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	req, err := decodeRequest(msg)
	if err != nil {
		return nil, &pipeline.ValidationError{Stage: string(RoleWriter), Message: err.Error()}
	}

	research, ok := req.For(string(RoleResearcher))
	if !ok {
		return nil, &pipeline.ValidationError{
			Stage:   string(RoleWriter),
			Message: "no research brief in context",
		}
	}

	completion, err := wa.gen.Generate(ctx, llm.Request{
		System: writerSystem,
		Prompt: writingPrompt(req, research.Content),
	})
	if err != nil {
		return nil, err
	}

	if words := wordCount(completion.Text); req.WordCount > 0 && float64(words) < float64(req.WordCount)*minLengthRatio {
		return nil, &pipeline.ValidationError{
			Stage:   string(RoleWriter),
			Message: fmt.Sprintf("draft has %d words, grossly below the %d-word target", words, req.WordCount),
		}
	}

	return responseArtifact("article-draft", StageResponse{
		Content: completion.Text,
		Sources: req.AllSources(),
		Meta:    map[string]string{pipeline.MetaModel: completion.Model},
	})
}

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}
