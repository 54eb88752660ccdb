package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/newsroom/internal/config"
)

func TestDryRunDraftMeetsWordTarget(t *testing.T) {
	for _, target := range []int{150, 500, 2000, 5000} {
		words := len(strings.Fields(dryRunDraft(target)))
		assert.GreaterOrEqual(t, words, target, "target %d", target)
	}

	// An unset target falls back to the configured default.
	words := len(strings.Fields(dryRunDraft(0)))
	assert.GreaterOrEqual(t, words, config.DefaultWordCount)
}

func TestDryRunPipelineCompletes(t *testing.T) {
	cfg := &config.Settings{OutputDir: t.TempDir()}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	flags := cliFlags{DryRun: true}
	engine, err := buildEngine(context.Background(), cfg, flags)
	require.NoError(t, err)
	defer engine.Close()

	result := engine.Run(context.Background(), "dry run smoke topic", runConfig(cfg))
	require.True(t, result.Success(), result.ErrorMessage)
	assert.NotEmpty(t, result.ArtifactLocation)
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	cfg := &config.Settings{}
	applyFlags(cfg, cliFlags{
		OutputDir:    "out",
		WordCount:    1200,
		Tone:         "casual",
		NoReferences: true,
	})

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 1200, cfg.WordCount)
	assert.Equal(t, "casual", cfg.Tone)
	require.NotNil(t, cfg.IncludeReferences)
	assert.False(t, *cfg.IncludeReferences)
}
