package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/agent"
	"github.com/dusk-indust/newsroom/internal/config"
	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/pipeline"
	"github.com/dusk-indust/newsroom/internal/publish"
	"github.com/dusk-indust/newsroom/internal/search"
)

// dryRunText is the canned completion used when running offline.
const dryRunText = "This is a dry-run article body. It stands in for model output so the " +
	"full stage sequence can be exercised without any backend credentials. " +
	"Every stage sees realistic inputs and the publisher writes real files."

// dryRunDraft repeats the placeholder paragraph until it clears the word
// target, so the drafted article passes the writer's length floor offline.
func dryRunDraft(wordCount int) string {
	if wordCount <= 0 {
		wordCount = config.DefaultWordCount
	}
	perParagraph := len(strings.Fields(dryRunText))
	reps := wordCount/perParagraph + 1
	return strings.TrimSpace(strings.Repeat(dryRunText+"\n\n", reps))
}

// buildDeps assembles the specialists' collaborators from config.
func buildDeps(cfg *config.Settings, flags cliFlags) (agent.Deps, error) {
	articlesDir := cfg.OutputDir

	if flags.DryRun {
		return agent.Deps{
			Generator: llm.Canned(dryRunDraft(cfg.WordCount)),
			Searcher: search.Stub(
				search.Result{Title: "Dry-run source", URL: "https://example.com/dry-run", Snippet: "stand-in search hit"},
			),
			Publisher: publish.NewFileStore(articlesDir),
		}, nil
	}

	providerKey := cfg.ProviderKey()
	if providerKey == "" {
		return agent.Deps{}, fmt.Errorf("no provider API key: set %s or pass -dry-run", cfg.ProviderKeyEnv)
	}
	searchKey := cfg.SearchKey()
	if searchKey == "" {
		return agent.Deps{}, fmt.Errorf("no search API key: set %s or pass -dry-run", cfg.SearchKeyEnv)
	}

	return agent.Deps{
		Generator: llm.NewHTTPGenerator(cfg.ProviderURL, providerKey, cfg.Model),
		Searcher:  search.NewSerperClient(searchKey),
		Publisher: publish.NewFileStore(articlesDir),
	}, nil
}

// policiesFromConfig converts per-stage config overrides to stage policies.
func policiesFromConfig(cfg *config.Settings) map[agent.Role]agent.StagePolicy {
	policies := make(map[agent.Role]agent.StagePolicy)
	for _, role := range agent.Roles() {
		policy := agent.DefaultPolicy(role)
		if override, ok := cfg.Stages[string(role)]; ok {
			if override.TimeoutSeconds > 0 {
				policy.Timeout = override.Timeout()
			}
			if override.MaxRetries > 0 {
				policy.MaxRetries = override.MaxRetries
			}
		}
		policies[role] = policy
	}
	return policies
}

// buildSpecs produces the stage sequence: over remote endpoints when any are
// configured, over in-process agents otherwise.
func buildSpecs(ctx context.Context, cfg *config.Settings, flags cliFlags) ([]pipeline.StageSpec, error) {
	policies := policiesFromConfig(cfg)

	if len(cfg.AgentEndpoints) > 0 {
		client := a2a.NewHTTPClient()
		endpoints, err := agent.Discover(ctx, client, cfg.AgentEndpoints)
		if err != nil {
			return nil, err
		}
		return agent.RemoteSpecs(client, endpoints, policies), nil
	}

	deps, err := buildDeps(cfg, flags)
	if err != nil {
		return nil, err
	}
	registry := agent.NewRegistry(deps)
	agents := make(map[agent.Role]agent.Agent, len(agent.Roles()))
	for _, role := range agent.Roles() {
		ag, err := registry.Spawn(role)
		if err != nil {
			return nil, err
		}
		agents[role] = ag
	}
	return agent.LocalSpecs(agents, policies), nil
}

// buildEngine creates a configured engine for one run.
func buildEngine(ctx context.Context, cfg *config.Settings, flags cliFlags) (*pipeline.Engine, error) {
	specs, err := buildSpecs(ctx, cfg, flags)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.EngineOption{
		pipeline.WithCostPerCall(cfg.CostPerCall),
	}
	if !cfg.Verbose {
		opts = append(opts, pipeline.WithLogger(log.New(io.Discard, "", 0)))
	}
	return pipeline.New(specs, opts...)
}

// runConfig builds the per-run options from config.
func runConfig(cfg *config.Settings) pipeline.RunConfig {
	rc := pipeline.RunConfig{
		WordCount: cfg.WordCount,
		Tone:      pipeline.Tone(cfg.Tone),
	}
	if cfg.IncludeReferences != nil {
		rc.OmitReferences = !*cfg.IncludeReferences
	}
	return rc
}

// runTopic produces one article, printing progress as stages advance, and
// stores the run report either way.
func runTopic(ctx context.Context, cfg *config.Settings, flags cliFlags, topic string) error {
	engine, err := buildEngine(ctx, cfg, flags)
	if err != nil {
		return err
	}
	defer engine.Close()

	var prior []pipeline.StageResult
	if flags.Resume {
		previous, err := publish.FindResumable(cfg.OutputDir, topic)
		if err != nil {
			return err
		}
		if previous != nil {
			prior = previous.Context.Results
			fmt.Printf("Resuming run for %q from stage %d\n", topic, len(prior))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range engine.Progress() {
			fmt.Println(pipeline.FormatProgress(event))
		}
	}()

	fmt.Printf("Producing article: %q\n", topic)

	var result *pipeline.RunResult
	if len(prior) > 0 {
		result = engine.Resume(ctx, topic, runConfig(cfg), prior)
	} else {
		result = engine.Run(ctx, topic, runConfig(cfg))
	}

	engine.Close()
	<-done

	reportPath, err := publish.SaveReport(cfg.OutputDir, result)
	if err != nil {
		return err
	}

	return printResult(result, reportPath)
}

// printResult renders the terminal outcome of one run.
func printResult(result *pipeline.RunResult, reportPath string) error {
	fmt.Println()
	if result.Success() {
		fmt.Printf("Done in %s. Article: %s\n", result.Duration.Round(time.Millisecond), result.ArtifactLocation)
		fmt.Printf("Attempts: %d, estimated cost: $%.2f\n", result.Metrics.TotalAttempts, result.Metrics.EstimatedCost)
		fmt.Printf("Run report: %s\n", reportPath)
		return nil
	}

	fmt.Printf("Run failed at stage %q (%s): %s\n", result.FailedStage, result.ErrorKind, result.ErrorMessage)
	fmt.Printf("%d stage(s) completed before the failure. Run report: %s\n", len(result.Context.Results), reportPath)
	if len(result.Context.Results) > 0 {
		fmt.Println("Re-run with -resume to pick up from the last completed stage.")
	}
	return fmt.Errorf("pipeline failed at %s", result.FailedStage)
}

// splitEndpoints parses a comma-separated endpoint list.
func splitEndpoints(raw string) []string {
	var endpoints []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			endpoints = append(endpoints, trimmed)
		}
	}
	return endpoints
}
