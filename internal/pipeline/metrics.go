package pipeline

import (
	"sync"
	"time"
)

// Outcome is the result of one stage attempt as seen by the collector.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// StageMetrics aggregates the attempts of one stage.
type StageMetrics struct {
	// Duration is the summed wall time of every attempt.
	Duration time.Duration `json:"duration"`

	// Attempts is the number of attempts recorded.
	Attempts int `json:"attempts"`

	// Retries is Attempts minus one, never negative.
	Retries int `json:"retries"`

	// Succeeded reports whether the last recorded attempt succeeded.
	Succeeded bool `json:"succeeded"`
}

// Snapshot is a read-only view of the collector's state. Calling Snapshot
// repeatedly without new events returns identical data.
type Snapshot struct {
	Stages        map[string]StageMetrics `json:"stages"`
	TotalDuration time.Duration           `json:"totalDuration"`
	TotalAttempts int                     `json:"totalAttempts"`
	TotalRetries  int                     `json:"totalRetries"`

	// EstimatedCost is TotalAttempts times the configured cost per call,
	// zero when no cost is configured.
	EstimatedCost float64 `json:"estimatedCost"`
}

// Collector is a passive recorder of per-attempt timing and outcome data.
// It is an observer only: removing it must not change pipeline behavior, so
// every method is safe on a nil receiver and none of them can fail.
type Collector struct {
	mu          sync.Mutex
	stages      map[string]*StageMetrics
	order       []string
	costPerCall float64
}

// NewCollector creates a collector. costPerCall feeds the cost estimate in
// snapshots; pass zero to disable it.
func NewCollector(costPerCall float64) *Collector {
	return &Collector{
		stages:      make(map[string]*StageMetrics),
		costPerCall: costPerCall,
	}
}

// Record registers one stage attempt.
func (c *Collector) Record(stage string, duration time.Duration, outcome Outcome) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.stages[stage]
	if !ok {
		m = &StageMetrics{}
		c.stages[stage] = m
		c.order = append(c.order, stage)
	}
	m.Duration += duration
	m.Attempts++
	if m.Attempts > 1 {
		m.Retries = m.Attempts - 1
	}
	m.Succeeded = outcome == OutcomeSuccess
}

// Snapshot returns a deep copy of the accumulated metrics. Safe to call at
// any point, including mid-run.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Stages: map[string]StageMetrics{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Stages: make(map[string]StageMetrics, len(c.stages)),
	}
	for _, name := range c.order {
		m := c.stages[name]
		snap.Stages[name] = *m
		snap.TotalDuration += m.Duration
		snap.TotalAttempts += m.Attempts
		snap.TotalRetries += m.Retries
	}
	if c.costPerCall > 0 {
		snap.EstimatedCost = float64(snap.TotalAttempts) * c.costPerCall
	}
	return snap
}
