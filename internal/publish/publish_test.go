package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/newsroom/internal/pipeline"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Quantum Computing":       "quantum_computing",
		"  AI -- Ethics!  ":       "ai_ethics",
		"Go 1.25":                 "go_125",
		"":                        "untitled",
		"___":                     "untitled",
		"Future of Space Travel?": "future_of_space_travel",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "slug of %q", in)
	}
}

func TestFileStoreWritesAllFormats(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	store := NewFileStore(dir, WithClock(func() time.Time { return stamp }))

	location, err := store.Store(context.Background(), Article{
		Topic:     "Quantum Computing",
		Content:   "# Quantum Computing\n\nA short piece.",
		Sources:   []string{"https://example.com/a"},
		Tone:      "neutral",
		WordCount: 6,
	})
	require.NoError(t, err)

	base := "quantum_computing_20260823_103000"
	assert.Equal(t, filepath.Join(dir, base+".md"), location)

	for _, name := range []string{base + ".md", base + ".txt", base + ".html", base + "_metadata.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}

	md, err := os.ReadFile(filepath.Join(dir, base+".md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "A short piece.")

	htmlOut, err := os.ReadFile(filepath.Join(dir, base+".html"))
	require.NoError(t, err)
	assert.Contains(t, string(htmlOut), "<title>Quantum Computing</title>")
	assert.Contains(t, string(htmlOut), "<br>")

	metaData, err := os.ReadFile(filepath.Join(dir, base+"_metadata.json"))
	require.NoError(t, err)
	var meta metadata
	require.NoError(t, json.Unmarshal(metaData, &meta))
	assert.Equal(t, "Quantum Computing", meta.Article.Topic)
	assert.Equal(t, 6, meta.Article.WordCount)
	assert.Len(t, meta.Files, 3)
}

func TestSaveAndLoadReport(t *testing.T) {
	dir := t.TempDir()

	result := &pipeline.RunResult{
		RunID:     "run-1",
		Topic:     "Quantum Computing",
		State:     pipeline.StateCompleted,
		StartedAt: time.Now().UTC(),
		Context: pipeline.Context{
			Topic: "Quantum Computing",
			Results: []pipeline.StageResult{
				{Stage: "researcher", Ordinal: 0, Status: pipeline.StatusSuccess},
			},
		},
	}

	path, err := SaveReport(dir, result)
	require.NoError(t, err)

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, loaded.RunID)
	assert.Len(t, loaded.Context.Results, 1)
}

func TestListReportsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()

	for i, id := range []string{"older", "newer"} {
		_, err := SaveReport(dir, &pipeline.RunResult{
			RunID:     id,
			Topic:     "t",
			State:     pipeline.StateCompleted,
			StartedAt: now.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	reports, err := ListReports(dir)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "newer", reports[0].RunID)
}

func TestListReportsMissingDir(t *testing.T) {
	reports, err := ListReports(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestFindResumable(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()

	_, err := SaveReport(dir, &pipeline.RunResult{
		RunID: "done", Topic: "quantum", State: pipeline.StateCompleted, StartedAt: now,
	})
	require.NoError(t, err)

	_, err = SaveReport(dir, &pipeline.RunResult{
		RunID: "failed", Topic: "quantum", State: pipeline.StateFailed,
		StartedAt: now.Add(time.Minute),
		Context: pipeline.Context{Results: []pipeline.StageResult{
			{Stage: "researcher", Ordinal: 0, Status: pipeline.StatusSuccess},
		}},
	})
	require.NoError(t, err)

	found, err := FindResumable(dir, "quantum")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "failed", found.RunID)

	none, err := FindResumable(dir, "other topic")
	require.NoError(t, err)
	assert.Nil(t, none)
}
