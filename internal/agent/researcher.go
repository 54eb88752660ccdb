package agent

import (
	"context"
	"fmt"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/pipeline"
	"github.com/dusk-indust/newsroom/internal/search"
)

// searchLimit bounds how many web results feed the research prompt.
const searchLimit = 8

// ResearcherAgent gathers web sources for a topic and synthesizes them into
// a structured research brief.
type ResearcherAgent struct {
	*BaseAgent
	gen      llm.Generator
	searcher search.Client
}

// NewResearcherAgent creates the researcher wired to a model backend and a
// search client.
func NewResearcherAgent(gen llm.Generator, searcher search.Client) *ResearcherAgent {
	ra := &ResearcherAgent{gen: gen, searcher: searcher}

	card := a2a.AgentCard{
		Name:        "researcher-agent",
		Description: "Researches topics and produces structured research briefs with sources",
		Version:     "dev",
		Skills: []a2a.AgentSkill{
			{
				ID:          "research-topic",
				Name:        "Research Topic",
				Description: "Search the web for a topic and synthesize a research brief",
				Tags:        []string{"research", "search", metaRole + string(RoleResearcher)},
			},
		},
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
	}

	ra.BaseAgent = NewBaseAgent(card, ra.processMessage)
	return ra
}

func (ra *ResearcherAgent) processMessage(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	req, err := decodeRequest(msg)
	if err != nil {
		return nil, &pipeline.ValidationError{Stage: string(RoleResearcher), Message: err.Error()}
	}

	results, err := ra.searcher.Search(ctx, req.Topic, searchLimit)
	if err != nil {
		return nil, err
	}

	findings := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		findings = append(findings, fmt.Sprintf("- %s (%s): %s", r.Title, r.URL, r.Snippet))
		sources = append(sources, r.URL)
	}

	if req.IncludeReferences && len(sources) == 0 {
		return nil, &pipeline.ValidationError{
			Stage:   string(RoleResearcher),
			Message: "references requested but search returned no sources",
		}
	}

	completion, err := ra.gen.Generate(ctx, llm.Request{
		System: researcherSystem,
		Prompt: researchPrompt(req, findings),
	})
	if err != nil {
		return nil, err
	}

	return responseArtifact("research-brief", StageResponse{
		Content: completion.Text,
		Sources: sources,
		Meta:    map[string]string{pipeline.MetaModel: completion.Model},
	})
}
