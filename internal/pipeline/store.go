package pipeline

import "sync"

// Store accumulates accepted stage results in execution order. Appends are
// ordinal-checked so the sequence invariant (no gaps, no duplicates, specs'
// ordinal order) holds by construction; a violation means a defect in the
// engine, not a stage failure.
//
// A store belongs to exactly one run. Reads hand out deep copies, so a view
// taken mid-run stays valid after later appends.
type Store struct {
	mu      sync.RWMutex
	topic   string
	cfg     RunConfig
	results []StageResult
	next    int
}

// NewStore creates an empty store for one run.
func NewStore(topic string, cfg RunConfig) *Store {
	return &Store{
		topic: topic,
		cfg:   cfg.clone(),
	}
}

// Append accepts a stage result. It returns an OrderViolationError if the
// result's ordinal is not the next expected one.
func (s *Store) Append(result StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.Ordinal != s.next {
		return &OrderViolationError{Expected: s.next, Got: result.Ordinal}
	}
	s.results = append(s.results, result.clone())
	s.next = result.Ordinal + 1
	return nil
}

// View returns a read-only deep copy of the accumulated context.
func (s *Store) View() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]StageResult, len(s.results))
	for i, r := range s.results {
		results[i] = r.clone()
	}
	return Context{
		Topic:   s.topic,
		Config:  s.cfg.clone(),
		Results: results,
	}
}

// Latest returns the most recent accepted result, or false if the store is
// empty.
func (s *Store) Latest() (StageResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.results) == 0 {
		return StageResult{}, false
	}
	return s.results[len(s.results)-1].clone(), true
}

// Len returns the number of accepted results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// NextOrdinal returns the ordinal the next append must carry.
func (s *Store) NextOrdinal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next
}
