// Package status summarizes stored run reports for the CLI and the tools
// server.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/dusk-indust/newsroom/internal/agent"
	"github.com/dusk-indust/newsroom/internal/pipeline"
	"github.com/dusk-indust/newsroom/internal/publish"
)

// StageInfo describes the completion state of a single stage within a run.
type StageInfo struct {
	Ordinal  int
	Name     string
	Complete bool
	Attempts int
	Duration time.Duration
}

// RunSummary is a condensed view of one stored run.
type RunSummary struct {
	RunID      string
	Topic      string
	State      pipeline.State
	Stages     []StageInfo
	NextStage  string // empty when the run completed
	Resumable  bool
	Artifact   string
	FailedAt   string
	ErrorKind  pipeline.Kind
	StartedAt  time.Time
	Duration   time.Duration
	TotalCost  float64
	TotalTries int
}

// Summarize condenses a run report into a RunSummary. The stage list always
// covers the full role sequence so callers can render progress for runs that
// stopped early.
func Summarize(r *pipeline.RunResult) RunSummary {
	roles := agent.Roles()
	stages := make([]StageInfo, len(roles))
	next := ""
	for i, role := range roles {
		name := string(role)
		stages[i] = StageInfo{Ordinal: i, Name: name}
		if res, ok := r.Context.ResultFor(name); ok {
			stages[i].Complete = true
			stages[i].Attempts = res.Attempts
			stages[i].Duration = res.Duration
		} else if next == "" {
			next = name
		}
	}

	return RunSummary{
		RunID:      r.RunID,
		Topic:      r.Topic,
		State:      r.State,
		Stages:     stages,
		NextStage:  next,
		Resumable:  r.State == pipeline.StateFailed && len(r.Context.Results) > 0,
		Artifact:   r.ArtifactLocation,
		FailedAt:   r.FailedStage,
		ErrorKind:  r.ErrorKind,
		StartedAt:  r.StartedAt,
		Duration:   r.Duration,
		TotalCost:  r.Metrics.EstimatedCost,
		TotalTries: r.Metrics.TotalAttempts,
	}
}

// Overview loads every run report under the output directory and summarizes
// each, newest first.
func Overview(dir string) ([]RunSummary, error) {
	reports, err := publish.ListReports(dir)
	if err != nil {
		return nil, err
	}
	summaries := make([]RunSummary, 0, len(reports))
	for _, r := range reports {
		summaries = append(summaries, Summarize(r))
	}
	return summaries, nil
}

// Format renders a summary as human-readable text.
func Format(s RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %q  [%s]\n", s.RunID, s.Topic, s.State)
	fmt.Fprintf(&b, "  started %s, took %s\n", s.StartedAt.Format(time.RFC3339), s.Duration.Round(time.Millisecond))

	for _, st := range s.Stages {
		mark := " "
		if st.Complete {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %d. %s", mark, st.Ordinal+1, st.Name)
		if st.Complete {
			fmt.Fprintf(&b, " (%d attempt(s), %s)", st.Attempts, st.Duration.Round(time.Millisecond))
		}
		b.WriteByte('\n')
	}

	switch {
	case s.State == pipeline.StateCompleted:
		fmt.Fprintf(&b, "  artifact: %s\n", s.Artifact)
	case s.FailedAt != "":
		fmt.Fprintf(&b, "  failed at %s (%s)", s.FailedAt, s.ErrorKind)
		if s.Resumable {
			b.WriteString(", resumable")
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "  attempts: %d, estimated cost: $%.2f\n", s.TotalTries, s.TotalCost)
	return b.String()
}
