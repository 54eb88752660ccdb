package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/newsroom/internal/agent"
	"github.com/dusk-indust/newsroom/internal/pipeline"
	"github.com/dusk-indust/newsroom/internal/publish"
	"github.com/dusk-indust/newsroom/internal/status"
)

// EngineFactory builds a fresh engine for one tool invocation. An engine
// serves one run at a time, so concurrent tool calls each get their own.
type EngineFactory func() (*pipeline.Engine, error)

// NewsroomService handles MCP tool calls for the newsroom server mode. It
// builds a pipeline per run_pipeline call and answers status and metrics
// queries from stored run reports.
type NewsroomService struct {
	newEngine EngineFactory
	outputDir string
}

// NewNewsroomService creates a NewsroomService.
func NewNewsroomService(newEngine EngineFactory, outputDir string) *NewsroomService {
	return &NewsroomService{
		newEngine: newEngine,
		outputDir: outputDir,
	}
}

// RunPipeline executes the full stage sequence for a topic and stores the
// run report. Pipeline failures are reported in the output, not as tool
// errors: the run report they leave behind is what makes resumption work.
func (s *NewsroomService) RunPipeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunPipelineInput,
) (*mcp.CallToolResult, RunPipelineOutput, error) {
	if input.Topic == "" {
		return nil, RunPipelineOutput{}, fmt.Errorf("topic is required")
	}

	cfg := pipeline.RunConfig{
		WordCount:      input.WordCount,
		Tone:           pipeline.Tone(input.Tone),
		OmitReferences: input.SkipReferences,
	}
	if input.Tone != "" && !cfg.Tone.Valid() {
		return nil, RunPipelineOutput{}, fmt.Errorf("unknown tone %q (want neutral, technical, or casual)", input.Tone)
	}

	var prior []pipeline.StageResult
	if input.Resume {
		previous, err := publish.FindResumable(s.outputDir, input.Topic)
		if err != nil {
			return nil, RunPipelineOutput{}, err
		}
		if previous != nil {
			prior = previous.Context.Results
		}
	}

	engine, err := s.newEngine()
	if err != nil {
		return nil, RunPipelineOutput{}, err
	}
	defer engine.Close()

	var result *pipeline.RunResult
	if len(prior) > 0 {
		result = engine.Resume(ctx, input.Topic, cfg, prior)
	} else {
		result = engine.Run(ctx, input.Topic, cfg)
	}

	reportPath, err := publish.SaveReport(s.outputDir, result)
	if err != nil {
		return nil, RunPipelineOutput{}, err
	}

	return nil, RunPipelineOutput{
		RunID:            result.RunID,
		State:            string(result.State),
		ArtifactLocation: result.ArtifactLocation,
		StagesCompleted:  len(result.Context.Results),
		FailedStage:      result.FailedStage,
		ErrorKind:        string(result.ErrorKind),
		ErrorMessage:     result.ErrorMessage,
		EstimatedCost:    result.Metrics.EstimatedCost,
		ReportPath:       reportPath,
	}, nil
}

// GetRunStatus reports the stage-by-stage progress of a stored run. With no
// run ID it describes the most recent run.
func (s *NewsroomService) GetRunStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunStatusInput,
) (*mcp.CallToolResult, GetRunStatusOutput, error) {
	report, err := s.findReport(input.RunID)
	if err != nil {
		return nil, GetRunStatusOutput{}, err
	}

	summary := status.Summarize(report)
	stages := make([]StageInfo, len(summary.Stages))
	for i, st := range summary.Stages {
		stages[i] = StageInfo{
			Ordinal:  st.Ordinal,
			Name:     st.Name,
			Complete: st.Complete,
			Attempts: st.Attempts,
		}
	}

	return nil, GetRunStatusOutput{
		RunID:            summary.RunID,
		Topic:            summary.Topic,
		State:            string(summary.State),
		Stages:           stages,
		NextStage:        summary.NextStage,
		Resumable:        summary.Resumable,
		ArtifactLocation: summary.Artifact,
		FailedStage:      summary.FailedAt,
		ErrorKind:        string(summary.ErrorKind),
	}, nil
}

// ListRuns lists stored runs, newest first, optionally filtered by topic.
func (s *NewsroomService) ListRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	summaries, err := status.Overview(s.outputDir)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	var runs []RunOverview
	for _, summary := range summaries {
		if input.Topic != "" && summary.Topic != input.Topic {
			continue
		}
		runs = append(runs, RunOverview{
			RunID:     summary.RunID,
			Topic:     summary.Topic,
			State:     string(summary.State),
			Resumable: summary.Resumable,
			StartedAt: summary.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return nil, ListRunsOutput{Runs: runs}, nil
}

// GetMetrics returns the per-stage metrics recorded for a stored run.
func (s *NewsroomService) GetMetrics(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetMetricsInput,
) (*mcp.CallToolResult, GetMetricsOutput, error) {
	if input.RunID == "" {
		return nil, GetMetricsOutput{}, fmt.Errorf("runId is required")
	}
	report, err := s.findReport(input.RunID)
	if err != nil {
		return nil, GetMetricsOutput{}, err
	}

	snap := report.Metrics
	var stages []StageMetrics
	for _, role := range agent.Roles() {
		m, ok := snap.Stages[string(role)]
		if !ok {
			continue
		}
		stages = append(stages, StageMetrics{
			Name:      string(role),
			Attempts:  m.Attempts,
			Retries:   m.Retries,
			Seconds:   m.Duration.Seconds(),
			Succeeded: m.Succeeded,
		})
	}

	return nil, GetMetricsOutput{
		RunID:         report.RunID,
		Stages:        stages,
		TotalAttempts: snap.TotalAttempts,
		TotalRetries:  snap.TotalRetries,
		TotalSeconds:  snap.TotalDuration.Seconds(),
		EstimatedCost: snap.EstimatedCost,
	}, nil
}

// findReport locates a stored run report by ID, or the most recent one when
// the ID is empty.
func (s *NewsroomService) findReport(runID string) (*pipeline.RunResult, error) {
	reports, err := publish.ListReports(s.outputDir)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no runs recorded under %s", s.outputDir)
	}
	if runID == "" {
		return reports[0], nil
	}
	for _, r := range reports {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no run with id %q", runID)
}
