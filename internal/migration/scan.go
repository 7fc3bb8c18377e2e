package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"photoport/internal/classify"
	"photoport/internal/issue"
	"photoport/internal/pairing"
	"photoport/internal/services"
	"photoport/internal/sidecar"
)

// directory is the classified listing of one source directory.
type directory struct {
	abs       string
	rel       string
	media     []string
	kinds     []classify.Kind
	sidecars  []string
	albumMeta string
}

// inventory is the enumerated archive, directories in walk order.
type inventory struct {
	root   string
	dirs   []*directory
	media  int
	issues []issue.Issue
}

var errStopped = errors.New("enumeration stopped")

// enumerate walks root. Failing to read the root itself is fatal; unreadable
// nested entries become enumeration issues. ctx and cancel are checked at
// every entry.
func enumerate(ctx context.Context, root string, skipHidden bool, cancel *Flag) (*inventory, bool, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, false, services.Wrap(services.ErrEnumeration, "scan", "stat root", root, err)
	}
	if !info.IsDir() {
		return nil, false, services.Wrap(services.ErrEnumeration, "scan", "stat root", root+" is not a directory", nil)
	}

	inv := &inventory{root: root}
	byPath := make(map[string]*directory)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil || cancel.Cancelled() {
			return errStopped
		}
		if err != nil {
			if path == root {
				return err
			}
			inv.issues = append(inv.issues, issue.New(issue.Enumeration, relTo(root, path), err.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if path != root && skipHidden && classify.IsHidden(name) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dir := &directory{abs: path, rel: relTo(root, path)}
			byPath[path] = dir
			inv.dirs = append(inv.dirs, dir)
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		dir := byPath[filepath.Dir(path)]
		if dir == nil {
			return nil
		}
		if classify.IsAlbumMetadata(name) {
			dir.albumMeta = name
			return nil
		}
		switch res := classify.Classify(name); res.Class {
		case classify.Media:
			dir.media = append(dir.media, name)
			dir.kinds = append(dir.kinds, res.Kind)
			inv.media++
		case classify.Sidecar:
			dir.sidecars = append(dir.sidecars, name)
		}
		return nil
	})
	if errors.Is(walkErr, errStopped) {
		return inv, true, nil
	}
	if walkErr != nil {
		return nil, false, services.Wrap(services.ErrEnumeration, "scan", "walk", root, walkErr)
	}

	kept := inv.dirs[:0]
	for _, dir := range inv.dirs {
		if len(dir.media) > 0 {
			kept = append(kept, dir)
		}
	}
	inv.dirs = kept
	return inv, false, nil
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ScanReport describes an archive without importing it.
type ScanReport struct {
	Root              string                `json:"root"`
	Directories       int                   `json:"directories"`
	Media             int                   `json:"media"`
	Kinds             map[classify.Kind]int `json:"kinds"`
	Sidecars          int                   `json:"sidecars"`
	Matched           int                   `json:"matched"`
	Rules             map[sidecar.Rule]int  `json:"rules"`
	UnmatchedSidecars int                   `json:"unmatched_sidecars"`
	Pairs             int                   `json:"pairs"`
	TopLevel          int                   `json:"top_level"`
	Albums            []string              `json:"albums"`
	Issues            issue.Counts          `json:"issues"`
	Notes             []issue.Issue         `json:"notes,omitempty"`
}

// Scan enumerates root and reports classification, sidecar matching, name
// pairing and album labels. It reads no sidecar or media content beyond
// album titles, so proximity pairing is not evaluated.
func (o *Orchestrator) Scan(ctx context.Context, root string) (ScanReport, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return ScanReport{}, services.Wrap(services.ErrEnumeration, "scan", "resolve root", root, err)
	}
	inv, stopped, err := enumerate(ctx, abs, o.cfg.Scan.SkipHidden, nil)
	if err != nil {
		return ScanReport{}, err
	}
	if stopped {
		return ScanReport{}, services.Wrap(services.ErrCancelled, "scan", "walk", abs, ctx.Err())
	}

	report := ScanReport{
		Root:   abs,
		Kinds:  map[classify.Kind]int{},
		Rules:  map[sidecar.Rule]int{},
		Issues: issue.Counts{},
		Media:  inv.media,
	}
	addNotes := func(list ...issue.Issue) {
		report.Issues.Add(list...)
		for _, is := range list {
			if len(report.Notes) < maxNotes {
				report.Notes = append(report.Notes, is)
			}
		}
	}
	addNotes(inv.issues...)

	albumSet := make(map[string]struct{})
	for _, dir := range inv.dirs {
		report.Directories++
		report.Sidecars += len(dir.sidecars)
		for _, kind := range dir.kinds {
			report.Kinds[kind]++
		}

		matches := o.matcher.MatchDirectory(dir.media, dir.sidecars)
		used := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			report.Matched++
			report.Rules[m.Rule]++
			used[m.Sidecar] = struct{}{}
		}
		report.UnmatchedSidecars += len(dir.sidecars) - len(used)

		candidates := make([]pairing.Candidate, len(dir.media))
		for i, name := range dir.media {
			candidates[i] = pairing.Candidate{Name: name, Kind: dir.kinds[i]}
		}
		paired := o.nameDetector.Detect(candidates)
		report.Pairs += len(paired.Pairs)
		report.TopLevel += len(paired.TopLevel)
		addNotes(dirIssues(dir, paired.Issues)...)

		label, albumIssues := o.albumLabel(dir)
		addNotes(albumIssues...)
		if label != "" {
			albumSet[label] = struct{}{}
		}
	}
	for label := range albumSet {
		report.Albums = append(report.Albums, label)
	}
	sort.Strings(report.Albums)
	return report, nil
}

// dirIssues rewrites directory-local issue paths relative to the archive root.
func dirIssues(dir *directory, list []issue.Issue) []issue.Issue {
	out := make([]issue.Issue, 0, len(list))
	for _, is := range list {
		if is.Path != "" {
			is.Path = joinRel(dir.rel, is.Path)
		}
		out = append(out, is)
	}
	return out
}

func joinRel(relDir, name string) string {
	if relDir == "." || relDir == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", relDir, name)
}
