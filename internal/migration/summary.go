package migration

import (
	"time"

	"photoport/internal/issue"
	"photoport/internal/state"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// maxNotes caps the issue details kept on a summary; Issues still counts all.
const maxNotes = 200

// Summary aggregates a run. It is written only by the goroutine driving
// the batch loop and is final once Run returns.
type Summary struct {
	RunID       string `json:"run_id"`
	Root        string `json:"root"`
	Mode        string `json:"mode"`
	Status      Status `json:"status"`
	ResumedFrom string `json:"resumed_from,omitempty"`

	// Discovered counts media files found by the scan. TotalItems is the
	// top-level item count: discovered files minus motion components
	// absorbed into pairs so far.
	Discovered int `json:"discovered"`
	TotalItems int `json:"total_items"`
	Processed  int `json:"processed"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Pairs      int `json:"pairs"`
	Albums     int `json:"albums"`

	Issues issue.Counts  `json:"issues"`
	Notes  []issue.Issue `json:"notes,omitempty"`

	Batches       int    `json:"batches"`
	SmallestBatch int    `json:"smallest_batch"`
	LargestBatch  int    `json:"largest_batch"`
	PeakMemory    uint64 `json:"peak_memory_bytes"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

func (s *Summary) note(list ...issue.Issue) {
	if len(list) == 0 {
		return
	}
	if s.Issues == nil {
		s.Issues = issue.Counts{}
	}
	s.Issues.Add(list...)
	for _, is := range list {
		if len(s.Notes) >= maxNotes {
			return
		}
		s.Notes = append(s.Notes, is)
	}
}

// Counters returns the totals stored in the run journal.
func (s Summary) Counters() state.Counters {
	return state.Counters{
		Total:     s.TotalItems,
		Processed: s.Processed,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Pairs:     s.Pairs,
		Albums:    s.Albums,
	}
}

func (s Status) journal() state.RunStatus {
	switch s {
	case StatusCompleted:
		return state.RunCompleted
	case StatusCancelled:
		return state.RunCancelled
	default:
		return state.RunFailed
	}
}
