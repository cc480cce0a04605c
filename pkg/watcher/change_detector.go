package watcher

import (
	"fmt"
	"path/filepath"
)

// ChangeAnalysis describes what changed and why a rescan is due
type ChangeAnalysis struct {
	NeedRescan   bool
	Reason       string
	ChangedFiles []string
}

// AnalyzeChanges summarizes a debounced event for the runner.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
		NeedRescan:   len(event.Paths) > 0,
	}

	switch {
	case len(event.Paths) == 0:
		analysis.Reason = "no changes"
	case event.Type == ChangeTypeDirectory:
		analysis.Reason = fmt.Sprintf("directory changed: %s", filepath.Base(event.Paths[0]))
	case len(event.Paths) == 1:
		analysis.Reason = fmt.Sprintf("file changed: %s", filepath.Base(event.Paths[0]))
	default:
		analysis.Reason = fmt.Sprintf("%d files changed", len(event.Paths))
	}

	return analysis
}
