package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewNewsroomMCPServer creates an MCP server with the newsroom tools
// registered.
func NewNewsroomMCPServer(svc *NewsroomService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "newsroom",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_pipeline",
		Description: "Produce an article on a topic by running the full stage sequence: research, drafting, proofreading, publishing. Returns the artifact location on success, or the failed stage and error kind on failure. Set resume to pick up a failed run from its last completed stage.",
	}, svc.RunPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run_status",
		Description: "Report the stage-by-stage progress of a stored run: which stages completed, where it failed, and whether it can be resumed. Defaults to the most recent run.",
	}, svc.GetRunStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List stored runs newest first, optionally filtered by topic. Each entry reports the run state and whether it is resumable.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Return the per-stage execution metrics of a stored run: attempts, retries, wall time, and the estimated backend cost.",
	}, svc.GetMetrics)

	return server
}

// RunMCPServer starts an HTTP server exposing the newsroom MCP tools.
func RunMCPServer(ctx context.Context, svc *NewsroomService, addr string) error {
	server := NewNewsroomMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
