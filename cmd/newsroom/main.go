package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/newsroom/internal/config"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Topic          string
	WordCount      int
	Tone           string
	NoReferences   bool
	ConfigDir      string
	OutputDir      string
	Agents         string
	Batch          string
	Resume         bool
	Status         bool
	DryRun         bool
	ServeAgents    bool
	ServeMCP       bool
	MCPAddr        string
	Verbose        bool
	Version        bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("newsroom", flag.ContinueOnError)
	fs.StringVar(&flags.Topic, "topic", "", "article topic to research and write")
	fs.IntVar(&flags.WordCount, "word-count", 0, "target article length in words")
	fs.StringVar(&flags.Tone, "tone", "", "writing voice: neutral, technical, or casual")
	fs.BoolVar(&flags.NoReferences, "no-references", false, "omit the source list from the article")
	fs.StringVar(&flags.ConfigDir, "config", ".", "directory containing newsroom.yml")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory for articles and run reports")
	fs.StringVar(&flags.Agents, "agents", "", "comma-separated remote agent endpoint URLs")
	fs.StringVar(&flags.Batch, "batch", "", "file with one topic per line, processed concurrently")
	fs.BoolVar(&flags.Resume, "resume", false, "resume the most recent failed run for the topic")
	fs.BoolVar(&flags.Status, "status", false, "show stored runs and exit")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "run the pipeline offline with canned backends")
	fs.BoolVar(&flags.ServeAgents, "serve-agents", false, "serve the specialist agents over HTTP and wait")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as an MCP tools server")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "127.0.0.1:7310", "listen address for the MCP server")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	applyFlags(cfg, flags)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case flags.Status:
		return runStatus(cfg.OutputDir)
	case flags.ServeAgents:
		return serveAgents(ctx, cfg, flags)
	case flags.ServeMCP:
		return serveMCP(ctx, cfg, flags)
	case flags.Batch != "":
		return runBatch(ctx, cfg, flags)
	case flags.Topic != "":
		return runTopic(ctx, cfg, flags, flags.Topic)
	}

	fs.Usage()
	return fmt.Errorf("nothing to do: pass -topic, -batch, -status, -serve-agents, or -serve-mcp")
}

// applyFlags overlays command-line values on the loaded config.
func applyFlags(cfg *config.Settings, flags cliFlags) {
	if flags.OutputDir != "" {
		cfg.OutputDir = flags.OutputDir
	}
	if flags.WordCount > 0 {
		cfg.WordCount = flags.WordCount
	}
	if flags.Tone != "" {
		cfg.Tone = flags.Tone
	}
	if flags.NoReferences {
		no := false
		cfg.IncludeReferences = &no
	}
	if flags.Agents != "" {
		cfg.AgentEndpoints = splitEndpoints(flags.Agents)
	}
	if flags.Verbose {
		cfg.Verbose = true
	}
}
