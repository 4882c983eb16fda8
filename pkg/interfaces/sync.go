package interfaces

// SyncResult is the outcome of migrating a single source item. A result is
// built once and never modified after it is appended to the run's list.
type SyncResult struct {
	SourcePath string   `json:"source_path"`
	TargetPath string   `json:"target_path,omitempty"`
	Success    bool     `json:"success"`
	Message    string   `json:"message,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// SyncOptions toggles optional behaviour of a sync run.
type SyncOptions struct {
	// CreateMissing ensures the target hierarchy exists before writing fields.
	CreateMissing bool
	// SyncComponents mirrors rich-text datasources beneath the target's data folder.
	SyncComponents bool
}

// SyncSummary aggregates a result list.
type SyncSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts successes and failures in results.
func Summarize(results []SyncResult) SyncSummary {
	summary := SyncSummary{Total: len(results)}
	for _, result := range results {
		if result.Success {
			summary.Succeeded++
			continue
		}
		summary.Failed++
	}
	return summary
}

// SyncRequest describes one sync run.
type SyncRequest struct {
	// RootPath limits the run to source items at or below this path.
	RootPath string
	Options  SyncOptions
	// RunName labels the run report when reporting is enabled.
	RunName string
}

// SyncReport is what a completed (or cancelled) run returns.
type SyncReport struct {
	RunKey  string       `json:"run_key,omitempty"`
	Results []SyncResult `json:"results"`
	Summary SyncSummary  `json:"summary"`
}
