package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photoport/internal/issue"
	"photoport/internal/migration"
	"photoport/internal/state"
)

var titleCaser = cases.Title(language.English)

// displayStatus renders a status value as a title ("cancelled" -> "Cancelled").
func displayStatus(status string) string {
	return titleCaser.String(strings.ReplaceAll(status, "_", " "))
}

func summaryKind(status migration.Status) statusKind {
	switch status {
	case migration.StatusCompleted:
		return statusOK
	case migration.StatusCancelled:
		return statusWarn
	default:
		return statusError
	}
}

func summaryFields(s migration.Summary) [][2]string {
	rows := [][2]string{
		{"Run", s.RunID},
		{"Root", s.Root},
		{"Mode", s.Mode},
		{"Status", displayStatus(string(s.Status))},
		{"Items", fmt.Sprintf("%d / %d", s.Processed, s.TotalItems)},
		{"Succeeded", fmt.Sprint(s.Succeeded)},
		{"Failed", fmt.Sprint(s.Failed)},
		{"Skipped", fmt.Sprint(s.Skipped)},
		{"Pairs", fmt.Sprint(s.Pairs)},
		{"Albums", fmt.Sprint(s.Albums)},
		{"Batches", batchRange(s)},
		{"Peak memory", humanize.IBytes(s.PeakMemory)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}
	if s.ResumedFrom != "" {
		rows = slices.Insert(rows, 2, [2]string{"Resumed from", s.ResumedFrom})
	}
	return rows
}

func batchRange(s migration.Summary) string {
	if s.Batches == 0 {
		return "0"
	}
	return fmt.Sprintf("%d (size %d..%d)", s.Batches, s.SmallestBatch, s.LargestBatch)
}

func issueRows(counts issue.Counts) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, cat := range counts.Categories() {
		rows = append(rows, []string{displayStatus(string(cat)), fmt.Sprint(counts[cat])})
	}
	return rows
}

func runRows(runs []state.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			displayStatus(string(r.Status)),
			r.Mode,
			fmt.Sprintf("%d / %d", r.Counters.Processed, r.Counters.Total),
			fmt.Sprint(r.Counters.Succeeded),
			fmt.Sprint(r.Counters.Failed),
			r.Root,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
