package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dusk-indust/newsroom/internal/pipeline"
)

// reportsDirName is the subdirectory under the output root where run
// reports are written.
const reportsDirName = "runs"

// SaveReport persists a run's terminal result as JSON under <dir>/runs/.
// Failed runs are saved too: their partial context is what makes a later
// resume possible.
func SaveReport(dir string, result *pipeline.RunResult) (string, error) {
	reportsDir := filepath.Join(dir, reportsDirName)
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("publish: mkdir %s: %w", reportsDir, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("publish: marshal run report: %w", err)
	}

	path := filepath.Join(reportsDir, result.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("publish: write run report %s: %w", path, err)
	}
	return path, nil
}

// LoadReport reads one run report.
func LoadReport(path string) (*pipeline.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("publish: read run report %s: %w", path, err)
	}
	var result pipeline.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("publish: decode run report %s: %w", path, err)
	}
	return &result, nil
}

// ListReports loads every run report under <dir>/runs/, newest first. A
// missing reports directory is not an error; it just means no runs yet.
func ListReports(dir string) ([]*pipeline.RunResult, error) {
	reportsDir := filepath.Join(dir, reportsDirName)
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("publish: read reports dir %s: %w", reportsDir, err)
	}

	var results []*pipeline.RunResult
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		result, err := LoadReport(filepath.Join(reportsDir, entry.Name()))
		if err != nil {
			// One unreadable report should not hide the rest.
			continue
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results, nil
}

// FindResumable returns the most recent failed run for the topic, or nil if
// there is nothing to resume.
func FindResumable(dir, topic string) (*pipeline.RunResult, error) {
	reports, err := ListReports(dir)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		if r.Topic == topic && r.State == pipeline.StateFailed && len(r.Context.Results) > 0 {
			return r, nil
		}
	}
	return nil, nil
}
