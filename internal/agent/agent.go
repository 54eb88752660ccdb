// Package agent implements the four content specialists (researcher, writer,
// proofreader, publisher) and the plumbing that lets the pipeline engine
// drive them either in-process or over the agent protocol.
package agent

import (
	"context"

	"github.com/dusk-indust/newsroom/internal/a2a"
)

// Agent is the interface every specialist implements.
type Agent interface {
	// Card returns the agent's self-describing manifest.
	Card() a2a.AgentCard

	// HandleTask processes a task with a message and returns the completed task.
	HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error)

	// Start launches the agent's HTTP server on the given address.
	Start(ctx context.Context, addr string) error

	// Stop gracefully shuts down the agent.
	Stop(ctx context.Context) error
}

// Role identifies a specialist agent type.
type Role string

const (
	RoleResearcher  Role = "researcher"
	RoleWriter      Role = "writer"
	RoleProofreader Role = "proofreader"
	RolePublisher   Role = "publisher"
)

// Roles lists the specialists in pipeline order.
func Roles() []Role {
	return []Role{RoleResearcher, RoleWriter, RoleProofreader, RolePublisher}
}

// metaRole is the agent card skill tag that identifies the role during
// discovery.
const metaRole = "role:"
