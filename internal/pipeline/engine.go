package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine drives the full stage sequence and produces a terminal RunResult.
// A single run executes stages strictly sequentially: each stage's input is
// the full accumulated output of all predecessors, so there is no intra-run
// parallelism. Separate engines are fully isolated and may run concurrently;
// one engine serves one run at a time.
type Engine struct {
	specs       []StageSpec
	logger      *log.Logger
	progress    *ProgressReporter
	costPerCall float64
	execOpts    []ExecutorOption

	mu           sync.Mutex
	state        State
	currentStage string
	collector    *Collector
	running      bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger replaces the engine's logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCostPerCall enables cost estimation in metrics snapshots.
func WithCostPerCall(cost float64) EngineOption {
	return func(e *Engine) {
		e.costPerCall = cost
	}
}

// WithExecutorOptions forwards options to the per-run executor.
func WithExecutorOptions(opts ...ExecutorOption) EngineOption {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, opts...)
	}
}

// New creates an engine for the given stage sequence. The specs are
// validated eagerly: an empty sequence, a duplicate or out-of-sequence
// ordinal, or a spec with no capability fails with ConfigurationError before
// any run starts.
func New(specs []StageSpec, opts ...EngineOption) (*Engine, error) {
	if err := validateSpecs(specs); err != nil {
		return nil, err
	}

	e := &Engine{
		specs:    specs,
		logger:   log.New(os.Stderr, "[engine] ", log.LstdFlags),
		progress: NewProgressReporter(),
		state:    StatePending,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// validateSpecs checks the stage sequence invariants. Ordinals must be
// exactly 0..N-1 in order so the store's sequence invariant can hold.
func validateSpecs(specs []StageSpec) error {
	if len(specs) == 0 {
		return &ConfigurationError{Message: "stage sequence is empty"}
	}
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return &ConfigurationError{Message: fmt.Sprintf("stage at position %d has no name", i)}
		}
		if seen[spec.Name] {
			return &ConfigurationError{Message: fmt.Sprintf("duplicate stage name %q", spec.Name)}
		}
		seen[spec.Name] = true
		if spec.Ordinal != i {
			return &ConfigurationError{Message: fmt.Sprintf("stage %q has ordinal %d, want %d", spec.Name, spec.Ordinal, i)}
		}
		if spec.Stage == nil {
			return &ConfigurationError{Message: fmt.Sprintf("stage %q has no capability", spec.Name)}
		}
		if spec.MaxRetries < 0 {
			return &ConfigurationError{Message: fmt.Sprintf("stage %q has negative retry ceiling", spec.Name)}
		}
	}
	return nil
}

// Run executes the full pipeline for one topic. It always returns a terminal
// RunResult and never panics past this boundary: a defect inside a stage or
// the engine itself surfaces as a Failed result.
func (e *Engine) Run(ctx context.Context, topic string, cfg RunConfig) *RunResult {
	return e.run(ctx, topic, cfg, nil)
}

// Resume executes the pipeline for a topic starting from previously
// completed stage results, skipping every stage whose result is already
// present. The prior results must form a prefix of the stage sequence in
// ordinal order.
func (e *Engine) Resume(ctx context.Context, topic string, cfg RunConfig, prior []StageResult) *RunResult {
	return e.run(ctx, topic, cfg, prior)
}

func (e *Engine) run(ctx context.Context, topic string, cfg RunConfig, prior []StageResult) (result *RunResult) {
	cfg = cfg.withDefaults()
	started := time.Now()
	runID := uuid.NewString()

	store := NewStore(topic, cfg)
	collector := NewCollector(e.costPerCall)

	// The boundary guarantee: run() terminates with a result, whatever
	// happens inside.
	defer func() {
		if r := recover(); r != nil {
			stage := e.currentStageName()
			e.logger.Printf("run %s: panic recovered in stage %q: %v", runID, stage, r)
			e.setState(StateFailed, "")
			result = e.failure(runID, topic, started, store, collector, stage, KindValidation,
				fmt.Sprintf("internal panic: %v", r))
		}
	}()

	if err := e.acquire(); err != nil {
		return e.failure(runID, topic, started, store, collector, "", KindConfiguration, err.Error())
	}
	defer e.release()

	e.withLock(func() {
		e.collector = collector
	})

	// Seed previously completed results for resumption.
	for _, r := range prior {
		if err := store.Append(r); err != nil {
			e.setState(StateFailed, "")
			return e.failure(runID, topic, started, store, collector, "", Classify(err), err.Error())
		}
	}

	executor := NewExecutor(collector, e.progress.Emit, e.execOpts...)

	e.logger.Printf("run %s: starting pipeline for topic %q (%d stages, %d already complete)",
		runID, topic, len(e.specs), store.Len())

	for _, spec := range e.specs[store.Len():] {
		e.setState(StateRunning, spec.Name)
		e.progress.Emit(ProgressEvent{Stage: spec.Name, Ordinal: spec.Ordinal, Status: ProgressWorking})
		e.logger.Printf("run %s: stage %d (%s) starting", runID, spec.Ordinal, spec.Name)

		res := executor.Execute(ctx, spec, store.View())

		if res.Status == StatusFailed {
			e.setState(StateFailed, "")
			e.progress.Emit(ProgressEvent{
				Stage:   spec.Name,
				Ordinal: spec.Ordinal,
				Status:  ProgressFailed,
				Attempt: res.Attempts,
				Message: res.Message,
			})
			e.logger.Printf("run %s: stage %d (%s) failed after %d attempt(s): %s",
				runID, spec.Ordinal, spec.Name, res.Attempts, res.Message)
			return e.failure(runID, topic, started, store, collector, spec.Name, res.Kind, res.Message)
		}

		if err := store.Append(res); err != nil {
			// An invariant breach in the store is a defect, never retried.
			e.setState(StateFailed, "")
			e.logger.Printf("run %s: aborting, %v", runID, err)
			return e.failure(runID, topic, started, store, collector, spec.Name, Classify(err), err.Error())
		}

		e.progress.Emit(ProgressEvent{
			Stage:   spec.Name,
			Ordinal: spec.Ordinal,
			Status:  ProgressComplete,
			Attempt: res.Attempts,
		})
		e.logger.Printf("run %s: stage %d (%s) complete in %s (%d attempt(s))",
			runID, spec.Ordinal, spec.Name, res.Duration.Round(time.Millisecond), res.Attempts)
	}

	e.setState(StateCompleted, "")

	finished := time.Now()
	ctxView := store.View()

	// The publishing stage reports where it stored the artifact through
	// payload metadata.
	var location string
	if last, ok := ctxView.Latest(); ok {
		location = last.Payload.Meta[MetaArtifactLocation]
	}

	e.logger.Printf("run %s: completed in %s", runID, finished.Sub(started).Round(time.Millisecond))

	return &RunResult{
		RunID:            runID,
		Topic:            topic,
		State:            StateCompleted,
		Context:          ctxView,
		Metrics:          collector.Snapshot(),
		Duration:         finished.Sub(started),
		StartedAt:        started,
		FinishedAt:       finished,
		ArtifactLocation: location,
	}
}

// failure builds a Failed RunResult carrying the partial context.
func (e *Engine) failure(runID, topic string, started time.Time, store *Store, collector *Collector, failedStage string, kind Kind, message string) *RunResult {
	finished := time.Now()
	return &RunResult{
		RunID:        runID,
		Topic:        topic,
		State:        StateFailed,
		Context:      store.View(),
		Metrics:      collector.Snapshot(),
		Duration:     finished.Sub(started),
		StartedAt:    started,
		FinishedAt:   finished,
		FailedStage:  failedStage,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}

// acquire claims the engine for one run.
func (e *Engine) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return &ConfigurationError{Message: "a run is already in progress on this engine"}
	}
	e.running = true
	e.state = StatePending
	e.currentStage = ""
	return nil
}

// release frees the engine after a run.
func (e *Engine) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

func (e *Engine) setState(state State, stage string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	e.currentStage = stage
}

func (e *Engine) currentStageName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStage
}

func (e *Engine) withLock(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Status returns the engine's current state and, while running, the name of
// the stage in flight. Safe to poll during a run.
func (e *Engine) Status() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.currentStage
}

// Metrics returns a snapshot of the current (or most recent) run's metrics.
// Safe to poll during a run; returns an empty snapshot before the first run.
func (e *Engine) Metrics() Snapshot {
	e.mu.Lock()
	collector := e.collector
	e.mu.Unlock()
	return collector.Snapshot()
}

// Stages returns the configured stage names in ordinal order.
func (e *Engine) Stages() []string {
	names := make([]string, len(e.specs))
	for i, spec := range e.specs {
		names[i] = spec.Name
	}
	return names
}

// Progress returns a channel that emits progress events.
func (e *Engine) Progress() <-chan ProgressEvent {
	return e.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when
// the engine is no longer needed.
func (e *Engine) Close() {
	e.progress.Close()
}
