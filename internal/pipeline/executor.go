package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backoff defaults for retryable stage failures.
const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
)

// Executor turns a raw stage invocation into a bounded, resilient operation:
// one deadline per attempt, exponential backoff between attempts, one metrics
// event per attempt. It never touches the context store; the engine performs
// the append.
type Executor struct {
	metrics   *Collector
	emit      func(ProgressEvent)
	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackoff sets the base and ceiling delays for retry backoff.
func WithBackoff(base, max time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.baseDelay = base
		e.maxDelay = max
	}
}

// withSleep replaces the backoff sleep. Used in tests to avoid real delays.
func withSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// NewExecutor creates an executor reporting to the given collector. emit may
// be nil if no progress reporting is wanted.
func NewExecutor(metrics *Collector, emit func(ProgressEvent), opts ...ExecutorOption) *Executor {
	e := &Executor{
		metrics:   metrics,
		emit:      emit,
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one stage to a terminal StageResult. Retryable failure kinds
// are absorbed up to the spec's retry ceiling; a timeout is retried exactly
// once, then becomes terminal. The result is always returned, never an
// error: the caller reads the Status field.
func (e *Executor) Execute(ctx context.Context, spec StageSpec, view Context) StageResult {
	start := time.Now()
	attempts := 0
	timeoutRetried := false

	for {
		attempts++
		attemptStart := time.Now()
		payload, err := e.attempt(ctx, spec, view)
		attemptDuration := time.Since(attemptStart)

		if err == nil {
			e.metrics.Record(spec.Name, attemptDuration, OutcomeSuccess)
			return StageResult{
				Stage:    spec.Name,
				Ordinal:  spec.Ordinal,
				Payload:  *payload,
				Duration: time.Since(start),
				Attempts: attempts,
				Status:   StatusSuccess,
			}
		}

		e.metrics.Record(spec.Name, attemptDuration, OutcomeFailure)

		kind := Classify(err)
		if ctx.Err() != nil {
			// The run itself ended, not just this attempt.
			kind = KindCancelled
			if ctx.Err() == context.DeadlineExceeded {
				kind = KindTimeout
			}
			return e.failed(spec, start, attempts, kind, err)
		}

		retry := false
		switch {
		case kind == KindTimeout && !timeoutRetried:
			timeoutRetried = true
			retry = true
		case kind.Retryable() && attempts-1 < spec.MaxRetries:
			retry = true
		}
		if !retry {
			return e.failed(spec, start, attempts, kind, err)
		}

		delay := e.backoff(attempts)
		if e.emit != nil {
			e.emit(ProgressEvent{
				Stage:   spec.Name,
				Ordinal: spec.Ordinal,
				Status:  ProgressRetrying,
				Attempt: attempts,
				Message: err.Error(),
			})
		}
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return e.failed(spec, start, attempts, KindCancelled, sleepErr)
		}
	}
}

// attempt performs a single bounded stage invocation. The stage runs in its
// own goroutine so a non-cooperative implementation cannot wedge the run:
// when the attempt deadline fires the executor stops waiting and the
// abandoned call's cleanup is best-effort. The done channel is buffered so
// the goroutine can always finish its send.
func (e *Executor) attempt(ctx context.Context, spec StageSpec, view Context) (*Payload, error) {
	timeout := spec.Timeout
	if d, ok := view.Config.StageTimeout[spec.Name]; ok && d > 0 {
		// The run config's per-stage override wins over the spec default.
		timeout = d
	}

	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		payload *Payload
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &ValidationError{
					Stage:   spec.Name,
					Message: fmt.Sprintf("stage panicked: %v", r),
				}}
			}
		}()
		p, err := spec.Stage.Execute(attemptCtx, view)
		done <- outcome{payload: p, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.payload == nil || strings.TrimSpace(out.payload.Content) == "" {
			return nil, &ValidationError{Stage: spec.Name, Message: "stage produced empty output"}
		}
		return out.payload, nil
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	}
}

// failed builds a terminal failed result.
func (e *Executor) failed(spec StageSpec, start time.Time, attempts int, kind Kind, err error) StageResult {
	return StageResult{
		Stage:    spec.Name,
		Ordinal:  spec.Ordinal,
		Duration: time.Since(start),
		Attempts: attempts,
		Status:   StatusFailed,
		Kind:     kind,
		Message:  err.Error(),
		Err:      err,
	}
}

// backoff returns the delay before the next attempt: base doubled per
// completed attempt, capped at the ceiling. Delays are non-decreasing.
func (e *Executor) backoff(attempts int) time.Duration {
	delay := e.baseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= e.maxDelay {
			return e.maxDelay
		}
	}
	if delay > e.maxDelay {
		return e.maxDelay
	}
	return delay
}

// sleepCtx blocks for d or until ctx ends, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
