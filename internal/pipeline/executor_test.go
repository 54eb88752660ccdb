package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/search"
)

// noSleep replaces backoff delays in tests, recording what was requested.
func noSleep(delays *[]time.Duration) ExecutorOption {
	return withSleep(func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return ctx.Err()
	})
}

// flakyStage fails with err the first failures times, then succeeds.
func flakyStage(failures int, err error) Stage {
	calls := 0
	return StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		calls++
		if calls <= failures {
			return nil, err
		}
		return &Payload{Content: "ok"}, nil
	})
}

func TestExecutorSuccessFirstTry(t *testing.T) {
	collector := NewCollector(0)
	exec := NewExecutor(collector, nil, noSleep(nil))

	spec := StageSpec{Name: "researcher", Ordinal: 0, Stage: flakyStage(0, nil), MaxRetries: 3}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "ok", res.Payload.Content)
	assert.Equal(t, 1, collector.Snapshot().TotalAttempts)
	assert.Zero(t, collector.Snapshot().TotalRetries)
}

func TestExecutorRetriesProviderError(t *testing.T) {
	collector := NewCollector(0)
	var delays []time.Duration
	exec := NewExecutor(collector, nil, noSleep(&delays))

	providerErr := &llm.ProviderError{Status: 429, Message: "rate limited"}
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: flakyStage(2, providerErr), MaxRetries: 3}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 2, collector.Snapshot().Stages["writer"].Retries)

	// Backoff delays are non-decreasing.
	require.Len(t, delays, 2)
	assert.GreaterOrEqual(t, delays[1], delays[0])
}

func TestExecutorRetriesToolError(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	toolErr := &search.ToolError{Message: "search backend down"}
	spec := StageSpec{Name: "researcher", Ordinal: 0, Stage: flakyStage(1, toolErr), MaxRetries: 2}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Attempts)
}

func TestExecutorExhaustsRetryCeiling(t *testing.T) {
	collector := NewCollector(0)
	exec := NewExecutor(collector, nil, noSleep(nil))

	providerErr := &llm.ProviderError{Status: 500, Message: "boom"}
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: flakyStage(10, providerErr), MaxRetries: 2}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindProvider, res.Kind)
	// Initial attempt plus two retries, never more than the ceiling.
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, collector.Snapshot().Stages["writer"].Attempts)
}

func TestExecutorNonRetryableFailsImmediately(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	valErr := &ValidationError{Stage: "writer", Message: "draft too short"}
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: flakyStage(10, valErr), MaxRetries: 5}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindValidation, res.Kind)
	assert.Equal(t, 1, res.Attempts)
}

func TestExecutorEmptyOutputIsValidationError(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		return &Payload{Content: "   "}, nil
	})
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: stage, MaxRetries: 3}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindValidation, res.Kind)
}

func TestExecutorTimeoutRetriedExactlyOnce(t *testing.T) {
	collector := NewCollector(0)
	exec := NewExecutor(collector, nil, noSleep(nil))

	// The stage never finishes within its deadline.
	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	spec := StageSpec{Name: "proofreader", Ordinal: 2, Stage: stage, Timeout: 20 * time.Millisecond, MaxRetries: 5}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindTimeout, res.Kind)
	// One timeout retry only, regardless of the retry ceiling.
	assert.Equal(t, 2, res.Attempts)
}

func TestExecutorTimeoutThenSuccess(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	calls := 0
	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &Payload{Content: "made it"}, nil
	})
	spec := StageSpec{Name: "proofreader", Ordinal: 2, Stage: stage, Timeout: 20 * time.Millisecond}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Attempts)
}

func TestExecutorAbandonsNonCooperativeStage(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	// The stage ignores its context entirely; the executor must still
	// report timeout instead of blocking.
	block := make(chan struct{})
	defer close(block)
	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		<-block
		return &Payload{Content: "late"}, nil
	})
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: stage, Timeout: 20 * time.Millisecond}

	start := time.Now()
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecutorRunCancellation(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	ctx, cancel := context.WithCancel(context.Background())
	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: stage, MaxRetries: 5}
	res := exec.Execute(ctx, spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindCancelled, res.Kind)
	assert.Equal(t, 1, res.Attempts)
}

func TestExecutorRecoversStagePanic(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		panic("boom")
	})
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: stage, MaxRetries: 2}
	res := exec.Execute(context.Background(), spec, Context{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindValidation, res.Kind)
	assert.Contains(t, res.Message, "panicked")
}

func TestExecutorRunConfigTimeoutOverridesSpec(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	// The spec allows a generous deadline; the run config tightens it.
	stage := StageFunc(func(ctx context.Context, view Context) (*Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: stage, Timeout: time.Hour}
	view := Context{Config: RunConfig{StageTimeout: map[string]time.Duration{
		"writer": 20 * time.Millisecond,
	}}}

	start := time.Now()
	res := exec.Execute(context.Background(), spec, view)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecutorTimeoutOverrideOnlyAffectsNamedStage(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, noSleep(nil))

	spec := StageSpec{Name: "writer", Ordinal: 1, Stage: contentStage("draft")}
	view := Context{Config: RunConfig{StageTimeout: map[string]time.Duration{
		"proofreader": time.Nanosecond,
	}}}

	res := exec.Execute(context.Background(), spec, view)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestBackoffCappedAtCeiling(t *testing.T) {
	exec := NewExecutor(NewCollector(0), nil, WithBackoff(100*time.Millisecond, 300*time.Millisecond))

	assert.Equal(t, 100*time.Millisecond, exec.backoff(1))
	assert.Equal(t, 200*time.Millisecond, exec.backoff(2))
	assert.Equal(t, 300*time.Millisecond, exec.backoff(3))
	assert.Equal(t, 300*time.Millisecond, exec.backoff(10))
}

func TestClassifyUntypedErrorIsValidation(t *testing.T) {
	assert.Equal(t, KindValidation, Classify(errors.New("mystery failure")))
}

func TestClassifyRPCErrorHonorsWireKind(t *testing.T) {
	cases := []struct {
		data json.RawMessage
		want Kind
	}{
		{json.RawMessage(`{"kind":"validation_error"}`), KindValidation},
		{json.RawMessage(`{"kind":"tool_error"}`), KindTool},
		{json.RawMessage(`{"kind":"provider_error"}`), KindProvider},
		// Unknown or absent kinds fall back to the retryable default.
		{json.RawMessage(`{"kind":"something_else"}`), KindProvider},
		{nil, KindProvider},
	}
	for _, tc := range cases {
		err := &a2a.RPCError{Method: a2a.MethodSendMessage, Code: a2a.ErrCodeInternal, Message: "remote failure", Data: tc.data}
		assert.Equal(t, tc.want, Classify(err), string(tc.data))
	}
}
