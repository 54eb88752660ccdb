package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/newsroom/internal/config"
	"github.com/dusk-indust/newsroom/internal/pipeline"
	"github.com/dusk-indust/newsroom/internal/publish"
)

// batchOutcome records the terminal result of one topic in a batch.
type batchOutcome struct {
	topic  string
	result *pipeline.RunResult
	err    error
}

// runBatch reads one topic per line from the batch file and produces an
// article for each, at most cfg.BatchConcurrency topics in flight. One
// topic's failure does not stop the others; the exit status reflects whether
// every topic succeeded.
func runBatch(ctx context.Context, cfg *config.Settings, flags cliFlags) error {
	topics, err := readTopics(flags.Batch)
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return fmt.Errorf("batch file %s contains no topics", flags.Batch)
	}

	fmt.Printf("Processing %d topic(s), %d at a time\n", len(topics), cfg.BatchConcurrency)

	var (
		mu       sync.Mutex
		outcomes []batchOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchConcurrency)

	for _, topic := range topics {
		g.Go(func() error {
			outcome := runBatchTopic(gctx, cfg, flags, topic)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			// Individual failures are collected, not propagated, so the
			// remaining topics keep running.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return printBatchSummary(outcomes)
}

// runBatchTopic runs one topic on its own engine and saves the run report.
func runBatchTopic(ctx context.Context, cfg *config.Settings, flags cliFlags, topic string) batchOutcome {
	engine, err := buildEngine(ctx, cfg, flags)
	if err != nil {
		return batchOutcome{topic: topic, err: err}
	}
	defer engine.Close()

	result := engine.Run(ctx, topic, runConfig(cfg))
	if _, err := publish.SaveReport(cfg.OutputDir, result); err != nil {
		return batchOutcome{topic: topic, result: result, err: err}
	}
	return batchOutcome{topic: topic, result: result}
}

// printBatchSummary renders the per-topic outcomes and returns an error if
// any topic failed.
func printBatchSummary(outcomes []batchOutcome) error {
	failures := 0
	fmt.Println()
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			failures++
			fmt.Printf("  ✗ %q: %v\n", o.topic, o.err)
		case o.result.Success():
			fmt.Printf("  ✓ %q: %s\n", o.topic, o.result.ArtifactLocation)
		default:
			failures++
			fmt.Printf("  ✗ %q: failed at %s (%s)\n", o.topic, o.result.FailedStage, o.result.ErrorKind)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d topic(s) failed", failures, len(outcomes))
	}
	fmt.Printf("All %d topic(s) completed.\n", len(outcomes))
	return nil
}

// readTopics loads the batch file: one topic per line, blank lines and
// #-comments skipped.
func readTopics(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	var topics []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return topics, nil
}
