package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/newsroom/internal/agent"
	"github.com/dusk-indust/newsroom/internal/config"
	"github.com/dusk-indust/newsroom/internal/mcptools"
	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// serveAgents starts all four specialists on sequential local ports and
// blocks until the context is cancelled.
func serveAgents(ctx context.Context, cfg *config.Settings, flags cliFlags) error {
	deps, err := buildDeps(cfg, flags)
	if err != nil {
		return err
	}

	registry := agent.NewRegistry(deps)
	if _, err := registry.SpawnAll(ctx, cfg.AgentBasePort); err != nil {
		return err
	}

	for i, role := range agent.Roles() {
		fmt.Printf("  %s listening on 127.0.0.1:%d\n", role, cfg.AgentBasePort+i)
	}
	fmt.Println("Agents up. Ctrl-C to stop.")

	<-ctx.Done()
	return registry.StopAll(context.Background())
}

// serveMCP runs the MCP tools server until the context is cancelled.
func serveMCP(ctx context.Context, cfg *config.Settings, flags cliFlags) error {
	factory := func() (*pipeline.Engine, error) {
		return buildEngine(ctx, cfg, flags)
	}
	svc := mcptools.NewNewsroomService(factory, cfg.OutputDir)

	fmt.Printf("MCP server listening on %s\n", flags.MCPAddr)
	return mcptools.RunMCPServer(ctx, svc, flags.MCPAddr)
}
