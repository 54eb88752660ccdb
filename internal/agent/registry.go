package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusk-indust/newsroom/internal/llm"
	"github.com/dusk-indust/newsroom/internal/publish"
	"github.com/dusk-indust/newsroom/internal/search"
)

// Factory is a constructor that creates an Agent.
type Factory func() Agent

// Registry maps roles to agent factories and manages the lifecycle of
// spawned agents.
type Registry struct {
	mu        sync.Mutex
	factories map[Role]Factory
	spawned   []Agent
}

// Deps carries the external collaborators the specialists need.
type Deps struct {
	Generator llm.Generator
	Searcher  search.Client
	Publisher publish.Store
}

// NewRegistry creates a Registry pre-registered with all four specialists.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		factories: make(map[Role]Factory),
	}
	r.factories[RoleResearcher] = func() Agent { return NewResearcherAgent(deps.Generator, deps.Searcher) }
	r.factories[RoleWriter] = func() Agent { return NewWriterAgent(deps.Generator) }
	r.factories[RoleProofreader] = func() Agent { return NewProofreaderAgent(deps.Generator) }
	r.factories[RolePublisher] = func() Agent { return NewPublisherAgent(deps.Publisher) }
	return r
}

// Spawn creates a single agent by role.
func (r *Registry) Spawn(role Role) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[role]
	if !ok {
		return nil, fmt.Errorf("agent: no factory registered for role %q", role)
	}
	ag := factory()
	r.spawned = append(r.spawned, ag)
	return ag, nil
}

// SpawnAll creates all four specialists, assigns sequential ports starting
// from basePort, and starts each agent's HTTP server. On any failure the
// agents already started are stopped in reverse order.
func (r *Registry) SpawnAll(ctx context.Context, basePort int) (map[Role]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents := make(map[Role]Agent, len(r.factories))
	var started []Agent

	for i, role := range Roles() {
		factory, ok := r.factories[role]
		if !ok {
			stopAll(ctx, started)
			return nil, fmt.Errorf("agent: no factory registered for role %q", role)
		}

		ag := factory()
		addr := fmt.Sprintf("127.0.0.1:%d", basePort+i)
		if err := ag.Start(ctx, addr); err != nil {
			stopAll(ctx, started)
			return nil, fmt.Errorf("agent: start %q on %s: %w", role, addr, err)
		}

		agents[role] = ag
		started = append(started, ag)
	}

	r.spawned = append(r.spawned, started...)
	return agents, nil
}

// StopAll gracefully stops all spawned agents in reverse order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for i := len(r.spawned) - 1; i >= 0; i-- {
		if err := r.spawned[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.spawned = nil
	return firstErr
}

func stopAll(ctx context.Context, agents []Agent) {
	for i := len(agents) - 1; i >= 0; i-- {
		_ = agents[i].Stop(ctx)
	}
}
