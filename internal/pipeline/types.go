// Package pipeline implements the orchestration core: a fixed sequence of
// specialist stages driven by an engine that threads accumulated context
// forward, enforces per-stage deadlines, retries transient failures, and
// reports a terminal result for every run. The engine never special-cases a
// particular stage; everything it knows about one is in its StageSpec.
package pipeline

import (
	"context"
	"time"
)

// Tone selects the writing voice for the produced article.
type Tone string

const (
	ToneNeutral   Tone = "neutral"
	ToneTechnical Tone = "technical"
	ToneCasual    Tone = "casual"
)

// Valid reports whether the tone is one of the recognized values.
func (t Tone) Valid() bool {
	switch t {
	case ToneNeutral, ToneTechnical, ToneCasual:
		return true
	}
	return false
}

// Default run configuration values.
const (
	DefaultWordCount = 2000
	DefaultTone      = ToneNeutral
)

// RunConfig carries the per-run options. The zero value is usable; withDefaults
// fills in anything left unset, and references are on unless explicitly
// suppressed.
type RunConfig struct {
	// WordCount is the target article length in words.
	WordCount int `json:"wordCount"`

	// Tone is the writing voice.
	Tone Tone `json:"tone"`

	// OmitReferences suppresses the article's source list. Zero value keeps
	// references on.
	OmitReferences bool `json:"omitReferences,omitempty"`

	// StageTimeout overrides the per-attempt deadline for named stages in
	// this run. Stages not listed keep their spec's timeout.
	StageTimeout map[string]time.Duration `json:"stageTimeout,omitempty"`
}

// DefaultRunConfig returns the documented defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		WordCount: DefaultWordCount,
		Tone:      DefaultTone,
	}
}

// withDefaults fills unset fields with their defaults.
func (c RunConfig) withDefaults() RunConfig {
	if c.WordCount <= 0 {
		c.WordCount = DefaultWordCount
	}
	if c.Tone == "" {
		c.Tone = DefaultTone
	}
	return c
}

// clone returns a copy that shares no mutable state with the original.
func (c RunConfig) clone() RunConfig {
	out := c
	if c.StageTimeout != nil {
		out.StageTimeout = make(map[string]time.Duration, len(c.StageTimeout))
		for k, v := range c.StageTimeout {
			out.StageTimeout[k] = v
		}
	}
	return out
}

// Stage is the uniform capability every pipeline stage implements. Execute
// receives a read-only view of everything accumulated so far and returns the
// stage's payload. Failures must surface as typed errors; the deadline
// arrives through ctx.
type Stage interface {
	Execute(ctx context.Context, view Context) (*Payload, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, view Context) (*Payload, error)

// Execute calls f.
func (f StageFunc) Execute(ctx context.Context, view Context) (*Payload, error) {
	return f(ctx, view)
}

// StageSpec identifies one stage in the sequence. Specs are created at engine
// construction and immutable thereafter; the same set is safely shared across
// concurrent runs.
type StageSpec struct {
	// Name identifies the stage in results, metrics, and logs.
	Name string

	// Ordinal is the stage's position in the sequence, starting at zero.
	Ordinal int

	// Stage is the capability invoked for this spec.
	Stage Stage

	// Timeout bounds one attempt. Zero means no deadline.
	Timeout time.Duration

	// MaxRetries is the retry ceiling for transient failures.
	MaxRetries int
}

// Meta keys recognized in stage payloads.
const (
	// MetaArtifactLocation is set by the publishing stage to the location
	// identifier of the stored artifact.
	MetaArtifactLocation = "artifact_location"

	// MetaModel records which model served the stage, when known.
	MetaModel = "model"
)

// Payload is the opaque structured output of one stage.
type Payload struct {
	// Content is the stage's primary text output.
	Content string `json:"content"`

	// Sources lists reference URLs gathered or carried forward.
	Sources []string `json:"sources,omitempty"`

	// Meta carries formatting and provenance metadata.
	Meta map[string]string `json:"meta,omitempty"`
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	out := Payload{Content: p.Content}
	if p.Sources != nil {
		out.Sources = make([]string, len(p.Sources))
		copy(out.Sources, p.Sources)
	}
	if p.Meta != nil {
		out.Meta = make(map[string]string, len(p.Meta))
		for k, v := range p.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// Status is the outcome of one stage execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StageResult is the output of one stage execution as produced by the
// executor. Successful results are owned by the context store once accepted.
type StageResult struct {
	Stage    string        `json:"stage"`
	Ordinal  int           `json:"ordinal"`
	Payload  Payload       `json:"payload"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
	Status   Status        `json:"status"`

	// Kind and Message describe the terminal failure cause. Both are empty
	// on success.
	Kind    Kind   `json:"errorKind,omitempty"`
	Message string `json:"errorMessage,omitempty"`

	// Err is the terminal failure cause, nil on success. Not serialized.
	Err error `json:"-"`
}

// clone returns a deep copy of the result.
func (r StageResult) clone() StageResult {
	out := r
	out.Payload = r.Payload.Clone()
	return out
}

// Context is the read-only accumulated record of a run: the original topic,
// the run configuration, and every accepted stage result in ordinal order.
type Context struct {
	Topic   string        `json:"topic"`
	Config  RunConfig     `json:"config"`
	Results []StageResult `json:"results"`
}

// Latest returns the most recent stage result, or false if no stage has
// completed yet.
func (c Context) Latest() (StageResult, bool) {
	if len(c.Results) == 0 {
		return StageResult{}, false
	}
	return c.Results[len(c.Results)-1], true
}

// ResultFor returns the result of the named stage, or false if that stage has
// not completed.
func (c Context) ResultFor(stage string) (StageResult, bool) {
	for _, r := range c.Results {
		if r.Stage == stage {
			return r, true
		}
	}
	return StageResult{}, false
}

// State is the engine's run state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// RunResult is the terminal outcome of one run. Exactly one of the success
// fields (ArtifactLocation) or the failure fields (FailedStage, ErrorKind,
// ErrorMessage) is populated; Context is always present and carries whatever
// accumulated before the run ended, so a failure never loses prior work.
type RunResult struct {
	RunID      string        `json:"runId"`
	Topic      string        `json:"topic"`
	State      State         `json:"state"`
	Context    Context       `json:"context"`
	Metrics    Snapshot      `json:"metrics"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`

	// Success fields.
	ArtifactLocation string `json:"artifactLocation,omitempty"`

	// Failure fields.
	FailedStage  string `json:"failedStage,omitempty"`
	ErrorKind    Kind   `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Success reports whether the run completed every stage.
func (r *RunResult) Success() bool {
	return r.State == StateCompleted
}
