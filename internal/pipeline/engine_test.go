package pipeline

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/newsroom/internal/llm"
)

var quiet = log.New(io.Discard, "", 0)

// contentStage returns a stage producing fixed content.
func contentStage(content string) Stage {
	return StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		return &Payload{Content: content}, nil
	})
}

// fourStages builds the standard sequence with the given stage capabilities.
func fourStages(researcher, writer, proofreader, publisher Stage) []StageSpec {
	return []StageSpec{
		{Name: "researcher", Ordinal: 0, Stage: researcher, Timeout: time.Second, MaxRetries: 3},
		{Name: "writer", Ordinal: 1, Stage: writer, Timeout: time.Second, MaxRetries: 3},
		{Name: "proofreader", Ordinal: 2, Stage: proofreader, Timeout: time.Second, MaxRetries: 3},
		{Name: "publisher", Ordinal: 3, Stage: publisher, Timeout: time.Second, MaxRetries: 3},
	}
}

func newTestEngine(t *testing.T, specs []StageSpec) *Engine {
	t.Helper()
	e, err := New(specs,
		WithLogger(quiet),
		WithExecutorOptions(noSleep(nil)),
	)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestRunAllStagesSucceed(t *testing.T) {
	e := newTestEngine(t, fourStages(
		contentStage("research notes"),
		contentStage("draft"),
		contentStage("edited draft"),
		contentStage("published"),
	))

	res := e.Run(context.Background(), "go generics", RunConfig{})

	require.True(t, res.Success())
	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, res.Context.Results, 4)
	for i, stage := range []string{"researcher", "writer", "proofreader", "publisher"} {
		assert.Equal(t, stage, res.Context.Results[i].Stage)
		assert.Equal(t, i, res.Context.Results[i].Ordinal)
		assert.Equal(t, 1, res.Context.Results[i].Attempts)
	}
	assert.Zero(t, res.Metrics.TotalRetries)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.FailedStage)
}

func TestRunWriterRecoversFromProviderErrors(t *testing.T) {
	providerErr := &llm.ProviderError{Status: 503, Message: "overloaded"}
	e := newTestEngine(t, fourStages(
		contentStage("research notes"),
		flakyStage(2, providerErr),
		contentStage("edited draft"),
		contentStage("published"),
	))

	res := e.Run(context.Background(), "go generics", RunConfig{})

	require.True(t, res.Success())
	writer, ok := res.Context.ResultFor("writer")
	require.True(t, ok)
	assert.Equal(t, 3, writer.Attempts)
	assert.Equal(t, 2, res.Metrics.Stages["writer"].Retries)
	assert.Zero(t, res.Metrics.Stages["researcher"].Retries)
}

func TestRunProofreaderDoubleTimeoutFailsRun(t *testing.T) {
	hang := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	specs := fourStages(
		contentStage("research notes"),
		contentStage("draft"),
		hang,
		contentStage("published"),
	)
	specs[2].Timeout = 20 * time.Millisecond

	e := newTestEngine(t, specs)
	res := e.Run(context.Background(), "go generics", RunConfig{})

	require.False(t, res.Success())
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "proofreader", res.FailedStage)
	assert.Equal(t, KindTimeout, res.ErrorKind)

	// Partial context keeps exactly the completed prefix.
	require.Len(t, res.Context.Results, 2)
	assert.Equal(t, "researcher", res.Context.Results[0].Stage)
	assert.Equal(t, "writer", res.Context.Results[1].Stage)

	// Metrics still cover the failed stage's attempts.
	assert.Equal(t, 2, res.Metrics.Stages["proofreader"].Attempts)
	assert.False(t, res.Metrics.Stages["proofreader"].Succeeded)
}

func TestNewRejectsEmptySequence(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, KindConfiguration, Classify(err))
}

func TestNewRejectsBadSpecs(t *testing.T) {
	ok := contentStage("x")

	cases := map[string][]StageSpec{
		"duplicate name": {
			{Name: "researcher", Ordinal: 0, Stage: ok},
			{Name: "researcher", Ordinal: 1, Stage: ok},
		},
		"ordinal gap": {
			{Name: "researcher", Ordinal: 0, Stage: ok},
			{Name: "writer", Ordinal: 2, Stage: ok},
		},
		"duplicate ordinal": {
			{Name: "researcher", Ordinal: 0, Stage: ok},
			{Name: "writer", Ordinal: 0, Stage: ok},
		},
		"missing capability": {
			{Name: "researcher", Ordinal: 0},
		},
		"unnamed stage": {
			{Ordinal: 0, Stage: ok},
		},
	}

	for name, specs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(specs)
			var configErr *ConfigurationError
			require.ErrorAs(t, err, &configErr)
		})
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocker := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	e := newTestEngine(t, fourStages(
		contentStage("research notes"),
		blocker,
		contentStage("edited draft"),
		contentStage("published"),
	))

	res := e.Run(ctx, "go generics", RunConfig{})

	require.False(t, res.Success())
	assert.Equal(t, KindCancelled, res.ErrorKind)
	assert.Equal(t, "writer", res.FailedStage)
	// Work accumulated before the abort is preserved.
	require.Len(t, res.Context.Results, 1)
	assert.Equal(t, "researcher", res.Context.Results[0].Stage)
}

func TestResumeSkipsCompletedStages(t *testing.T) {
	var researcherCalls int
	countingResearcher := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		researcherCalls++
		return &Payload{Content: "research notes"}, nil
	})

	e := newTestEngine(t, fourStages(
		countingResearcher,
		contentStage("draft"),
		contentStage("edited draft"),
		contentStage("published"),
	))

	prior := []StageResult{
		{Stage: "researcher", Ordinal: 0, Status: StatusSuccess, Attempts: 1,
			Payload: Payload{Content: "earlier research"}},
		{Stage: "writer", Ordinal: 1, Status: StatusSuccess, Attempts: 1,
			Payload: Payload{Content: "earlier draft"}},
	}

	res := e.Resume(context.Background(), "go generics", RunConfig{}, prior)

	require.True(t, res.Success())
	assert.Zero(t, researcherCalls)
	require.Len(t, res.Context.Results, 4)
	assert.Equal(t, "earlier research", res.Context.Results[0].Payload.Content)
	assert.Equal(t, "edited draft", res.Context.Results[2].Payload.Content)
}

func TestResumeRejectsOutOfOrderPrior(t *testing.T) {
	e := newTestEngine(t, fourStages(
		contentStage("a"), contentStage("b"), contentStage("c"), contentStage("d"),
	))

	prior := []StageResult{
		{Stage: "writer", Ordinal: 1, Status: StatusSuccess},
	}

	res := e.Resume(context.Background(), "go generics", RunConfig{}, prior)

	require.False(t, res.Success())
	assert.Equal(t, KindOrderViolation, res.ErrorKind)
}

func TestRunResultCarriesArtifactLocation(t *testing.T) {
	publisher := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		return &Payload{
			Content: "published",
			Meta:    map[string]string{MetaArtifactLocation: "/tmp/out/article.md"},
		}, nil
	})

	e := newTestEngine(t, fourStages(
		contentStage("a"), contentStage("b"), contentStage("c"), publisher,
	))

	res := e.Run(context.Background(), "go generics", RunConfig{})

	require.True(t, res.Success())
	assert.Equal(t, "/tmp/out/article.md", res.ArtifactLocation)
}

func TestStatusDuringRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		close(started)
		<-release
		return &Payload{Content: "draft"}, nil
	})

	e := newTestEngine(t, fourStages(
		contentStage("research notes"), slow, contentStage("c"), contentStage("d"),
	))

	state, _ := e.Status()
	assert.Equal(t, StatePending, state)

	done := make(chan *RunResult, 1)
	go func() {
		done <- e.Run(context.Background(), "go generics", RunConfig{})
	}()

	<-started
	state, stage := e.Status()
	assert.Equal(t, StateRunning, state)
	assert.Equal(t, "writer", stage)

	// Metrics are pollable mid-run.
	snap := e.Metrics()
	assert.Equal(t, 1, snap.Stages["researcher"].Attempts)

	close(release)
	res := <-done
	require.True(t, res.Success())

	state, stage = e.Status()
	assert.Equal(t, StateCompleted, state)
	assert.Empty(t, stage)
}

func TestRunRejectsConcurrentRunOnSameEngine(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		close(started)
		<-release
		return &Payload{Content: "x"}, nil
	})

	e := newTestEngine(t, fourStages(slow, contentStage("b"), contentStage("c"), contentStage("d")))

	done := make(chan *RunResult, 1)
	go func() {
		done <- e.Run(context.Background(), "first", RunConfig{})
	}()
	<-started

	second := e.Run(context.Background(), "second", RunConfig{})
	require.False(t, second.Success())
	assert.Equal(t, KindConfiguration, second.ErrorKind)

	close(release)
	first := <-done
	assert.True(t, first.Success())
}

func TestRunConfigDefaults(t *testing.T) {
	var seen RunConfig
	probe := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		seen = view.Config
		return &Payload{Content: "x"}, nil
	})

	e := newTestEngine(t, []StageSpec{{Name: "researcher", Ordinal: 0, Stage: probe}})
	res := e.Run(context.Background(), "go generics", RunConfig{})

	require.True(t, res.Success())
	assert.Equal(t, DefaultWordCount, seen.WordCount)
	assert.Equal(t, ToneNeutral, seen.Tone)
	// References stay on unless the caller suppresses them.
	assert.False(t, seen.OmitReferences)
}

func TestRunStageTimeoutOverride(t *testing.T) {
	hang := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := newTestEngine(t, fourStages(
		contentStage("research notes"),
		hang,
		contentStage("edited draft"),
		contentStage("published"),
	))

	cfg := RunConfig{StageTimeout: map[string]time.Duration{"writer": 20 * time.Millisecond}}

	start := time.Now()
	res := e.Run(context.Background(), "go generics", cfg)

	require.False(t, res.Success())
	assert.Equal(t, "writer", res.FailedStage)
	assert.Equal(t, KindTimeout, res.ErrorKind)
	// The override cut the writer short well before its 1s spec deadline.
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunEmitsProgressEvents(t *testing.T) {
	e := newTestEngine(t, fourStages(
		contentStage("a"), contentStage("b"), contentStage("c"), contentStage("d"),
	))

	res := e.Run(context.Background(), "go generics", RunConfig{})
	require.True(t, res.Success())
	e.Close()

	var completed []string
	for ev := range e.Progress() {
		if ev.Status == ProgressComplete {
			completed = append(completed, ev.Stage)
		}
	}
	assert.Equal(t, []string{"researcher", "writer", "proofreader", "publisher"}, completed)
}
