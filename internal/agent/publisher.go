package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/pipeline"
	"github.com/dusk-indust/newsroom/internal/publish"
)

// PublisherAgent finalizes the edited article and persists it through the
// publish store. It is the only specialist without a model backend: its work
// is deterministic formatting plus storage.
type PublisherAgent struct {
	*BaseAgent
	store publish.Store
}

// NewPublisherAgent creates the publisher wired to an artifact store.
func NewPublisherAgent(store publish.Store) *PublisherAgent {
	pa := &PublisherAgent{store: store}

	card := a2a.AgentCard{
		Name:        "publisher-agent",
		Description: "Formats finished articles and publishes them with metadata",
		Version:     "dev",
		Skills: []a2a.AgentSkill{
			{
				ID:          "publish-article",
				Name:        "Publish Article",
				Description: "Persist the final article in multiple formats with metadata",
				Tags:        []string{"publishing", metaRole + string(RolePublisher)},
			},
		},
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
	}

	pa.BaseAgent = NewBaseAgent(card, pa.processMessage)
	return pa
}

func (pa *PublisherAgent) processMessage(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	req, err := decodeRequest(msg)
	if err != nil {
		return nil, &pipeline.ValidationError{Stage: string(RolePublisher), Message: err.Error()}
	}

	edited, ok := req.For(string(RoleProofreader))
	if !ok {
		return nil, &pipeline.ValidationError{
			Stage:   string(RolePublisher),
			Message: "no edited article in context",
		}
	}

	sources := req.AllSources()
	content := edited.Content
	if req.IncludeReferences && len(sources) > 0 && !strings.Contains(content, "## References") {
		content = appendReferences(content, sources)
	}

	location, err := pa.store.Store(ctx, publish.Article{
		Topic:     req.Topic,
		Content:   content,
		Sources:   sources,
		Tone:      req.Tone,
		WordCount: wordCount(content),
		Model:     edited.Meta[pipeline.MetaModel],
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return responseArtifact("published-article", StageResponse{
		Content: content,
		Sources: sources,
		Meta:    map[string]string{pipeline.MetaArtifactLocation: location},
	})
}

// appendReferences adds a references section listing the sources.
func appendReferences(content string, sources []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(content, "\n"))
	b.WriteString("\n\n## References\n\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
