package main

import (
	"fmt"

	"github.com/dusk-indust/newsroom/internal/status"
)

// runStatus prints every stored run, newest first.
func runStatus(outputDir string) error {
	summaries, err := status.Overview(outputDir)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println("Run 'newsroom -topic \"...\"' to produce an article.")
		return nil
	}

	for i, summary := range summaries {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(status.Format(summary))
	}
	return nil
}
