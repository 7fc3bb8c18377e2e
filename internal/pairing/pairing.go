// Package pairing reconstructs multi-part "live" assets: a still image and
// the short motion component exported beside it.
package pairing

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"photoport/internal/classify"
	"photoport/internal/issue"
)

// Signal names the evidence that linked a pair.
type Signal string

const (
	SignalName      Signal = "name"
	SignalProximity Signal = "proximity"
)

// Candidate is one media file of a directory, in discovery order.
type Candidate struct {
	Name     string
	Kind     classify.Kind
	Taken    time.Time
	Duration time.Duration
}

// Pair links candidate indexes.
type Pair struct {
	Still  int
	Motion int
	Signal Signal
}

// Result partitions the candidates. TopLevel holds every index not absorbed
// into a pair, in discovery order. Orphans are motion components that found
// no still; they stay top level as unknown-kind assets.
type Result struct {
	Pairs    []Pair
	TopLevel []int
	Orphans  []int
	Issues   []issue.Issue
}

// Conserved reports whether n candidates are fully accounted for.
func (r Result) Conserved(n int) bool {
	return len(r.TopLevel)+len(r.Pairs) == n
}

// Options tunes detection.
type Options struct {
	// LiveVideoExtensions are ordinary video extensions (".mov") that act as
	// motion components when they share a still's name.
	LiveVideoExtensions []string
	// MaxMotionDuration bounds live videos accepted as motion parts. Zero
	// disables the check; a candidate with unknown duration is accepted.
	MaxMotionDuration time.Duration
	// ProximityTolerance is the capture-time window for pairing a motion
	// component whose name matches no still. Zero disables proximity.
	ProximityTolerance time.Duration
}

// Detector pairs candidates. It holds no per-run state.
type Detector struct {
	liveExts  map[string]struct{}
	maxMotion time.Duration
	tolerance time.Duration
}

// NewDetector constructs a detector.
func NewDetector(opts Options) *Detector {
	exts := make(map[string]struct{}, len(opts.LiveVideoExtensions))
	for _, ext := range opts.LiveVideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Detector{liveExts: exts, maxMotion: opts.MaxMotionDuration, tolerance: opts.ProximityTolerance}
}

// Detect pairs the candidates of a single directory.
//
// Name matching runs first: a still pairs with a motion component whose
// name differs only by extension (or that extends the still's full name),
// vendor motion extensions ahead of live videos. Motion components left
// over are then paired by capture-time proximity with the closest unpaired
// still; equal distances go to the earlier still.
func (d *Detector) Detect(candidates []Candidate) Result {
	n := len(candidates)
	claimed := make([]bool, n)
	paired := make([]bool, n)
	var pairs []Pair

	byStem := make(map[string][]int)
	for i, c := range candidates {
		if d.motionCapable(c) {
			byStem[stemKey(c.Name)] = append(byStem[stemKey(c.Name)], i)
		}
	}

	for i, c := range candidates {
		if c.Kind != classify.KindImage {
			continue
		}
		if m, ok := d.nameMatch(candidates, byStem, claimed, c.Name); ok {
			claimed[m] = true
			paired[i] = true
			pairs = append(pairs, Pair{Still: i, Motion: m, Signal: SignalName})
		}
	}

	if d.tolerance > 0 {
		for m, c := range candidates {
			if claimed[m] || c.Kind != classify.KindMotion || c.Taken.IsZero() {
				continue
			}
			best, bestDelta := -1, time.Duration(0)
			for s, still := range candidates {
				if paired[s] || still.Kind != classify.KindImage || still.Taken.IsZero() {
					continue
				}
				delta := absDuration(still.Taken.Sub(c.Taken))
				if delta > d.tolerance {
					continue
				}
				if best < 0 || delta < bestDelta {
					best, bestDelta = s, delta
				}
			}
			if best >= 0 {
				claimed[m] = true
				paired[best] = true
				pairs = append(pairs, Pair{Still: best, Motion: m, Signal: SignalProximity})
			}
		}
	}

	result := Result{Pairs: pairs, TopLevel: make([]int, 0, n-len(pairs))}
	for i, c := range candidates {
		if claimed[i] {
			continue
		}
		result.TopLevel = append(result.TopLevel, i)
		if c.Kind == classify.KindMotion {
			result.Orphans = append(result.Orphans, i)
			result.Issues = append(result.Issues, issue.New(issue.Pairing, c.Name,
				fmt.Sprintf("motion component %s has no matching still", c.Name)))
		}
	}
	return result
}

func (d *Detector) nameMatch(candidates []Candidate, byStem map[string][]int, claimed []bool, stillName string) (int, bool) {
	keys := []string{stemKey(stillName), foldName(stillName)}
	best := -1
	for _, key := range keys {
		for _, m := range byStem[key] {
			if claimed[m] {
				continue
			}
			if candidates[m].Kind == classify.KindMotion {
				return m, true
			}
			if best < 0 && d.acceptLiveVideo(candidates[m]) {
				best = m
			}
		}
	}
	return best, best >= 0
}

func (d *Detector) motionCapable(c Candidate) bool {
	switch c.Kind {
	case classify.KindMotion:
		return true
	case classify.KindVideo:
		_, ok := d.liveExts[strings.ToLower(filepath.Ext(c.Name))]
		return ok
	}
	return false
}

// acceptLiveVideo applies the duration content signal.
func (d *Detector) acceptLiveVideo(c Candidate) bool {
	if d.maxMotion <= 0 || c.Duration <= 0 {
		return true
	}
	return c.Duration <= d.maxMotion
}

func stemKey(name string) string {
	return foldName(strings.TrimSuffix(name, filepath.Ext(name)))
}

func foldName(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
