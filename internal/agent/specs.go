package agent

import (
	"time"

	"github.com/dusk-indust/newsroom/internal/a2a"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// StagePolicy is the per-role execution policy applied to a stage spec.
type StagePolicy struct {
	Timeout    time.Duration
	MaxRetries int
}

// Default per-role policies. Research and editing are bounded at five
// minutes, drafting gets ten, publishing is fast local work.
var defaultPolicies = map[Role]StagePolicy{
	RoleResearcher:  {Timeout: 300 * time.Second, MaxRetries: 3},
	RoleWriter:      {Timeout: 600 * time.Second, MaxRetries: 3},
	RoleProofreader: {Timeout: 300 * time.Second, MaxRetries: 2},
	RolePublisher:   {Timeout: 200 * time.Second, MaxRetries: 2},
}

// DefaultPolicy returns the built-in policy for a role.
func DefaultPolicy(role Role) StagePolicy {
	return defaultPolicies[role]
}

// LocalSpecs builds the pipeline stage sequence over in-process agents.
// Policies missing a role fall back to the defaults.
func LocalSpecs(agents map[Role]Agent, policies map[Role]StagePolicy) []pipeline.StageSpec {
	specs := make([]pipeline.StageSpec, 0, len(Roles()))
	for i, role := range Roles() {
		policy := policyFor(role, policies)
		specs = append(specs, pipeline.StageSpec{
			Name:       string(role),
			Ordinal:    i,
			Stage:      NewLocalStage(agents[role]),
			Timeout:    policy.Timeout,
			MaxRetries: policy.MaxRetries,
		})
	}
	return specs
}

// RemoteSpecs builds the pipeline stage sequence over remote agent
// endpoints, one per role.
func RemoteSpecs(client a2a.Client, endpoints map[Role]string, policies map[Role]StagePolicy) []pipeline.StageSpec {
	specs := make([]pipeline.StageSpec, 0, len(Roles()))
	for i, role := range Roles() {
		policy := policyFor(role, policies)
		specs = append(specs, pipeline.StageSpec{
			Name:       string(role),
			Ordinal:    i,
			Stage:      NewRemoteStage(client, endpoints[role]),
			Timeout:    policy.Timeout,
			MaxRetries: policy.MaxRetries,
		})
	}
	return specs
}

func policyFor(role Role, policies map[Role]StagePolicy) StagePolicy {
	if p, ok := policies[role]; ok {
		return p
	}
	return defaultPolicies[role]
}
