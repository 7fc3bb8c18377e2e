package state

import "time"

// RunStatus is the lifecycle state of a journaled run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Finished reports whether the run reached completion. Cancelled, failed
// and interrupted runs are resumable.
func (s RunStatus) Finished() bool {
	return s == RunCompleted
}

// Counters are the summary totals stored with a run.
type Counters struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Pairs     int `json:"pairs"`
	Albums    int `json:"albums"`
}

// Run is one journaled migration.
type Run struct {
	ID          string     `json:"id"`
	Root        string     `json:"root"`
	Mode        string     `json:"mode"`
	Status      RunStatus  `json:"status"`
	ResumedFrom string     `json:"resumed_from,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Counters    Counters   `json:"counters"`
	SummaryJSON string     `json:"-"`
}

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Import is an asset accepted by the destination store.
type Import struct {
	AssetID string
	RelPath string
	Handle  string
}
