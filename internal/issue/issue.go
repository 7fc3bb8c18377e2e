// Package issue defines the per-asset problems that a migration run records
// instead of failing.
package issue

import "sort"

// Category groups issues in the migration summary.
type Category string

const (
	// Enumeration covers nested directories or entries that could not be read.
	Enumeration Category = "enumeration"
	// Metadata covers malformed sidecars and rejected metadata values.
	Metadata Category = "metadata"
	// NoMetadataSource notes an asset with neither a sidecar nor embedded metadata.
	NoMetadataSource Category = "no_metadata_source"
	// Pairing covers motion components that could not be attached to a still.
	Pairing Category = "pairing"
	// Sampling covers memory samples that failed and forced the critical policy.
	Sampling Category = "sampling"
	// Import covers assets the destination store rejected.
	Import Category = "import"
)

// Issue is a single recorded problem.
type Issue struct {
	Category Category `json:"category"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

// New builds an issue.
func New(category Category, path, message string) Issue {
	return Issue{Category: category, Path: path, Message: message}
}

// Counts tallies issues by category.
type Counts map[Category]int

// Add increments the counter for every issue in list.
func (c Counts) Add(list ...Issue) {
	for _, is := range list {
		c[is.Category]++
	}
}

// Total returns the number of recorded issues.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Categories returns the recorded categories in name order.
func (c Counts) Categories() []Category {
	out := make([]Category, 0, len(c))
	for cat := range c {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
