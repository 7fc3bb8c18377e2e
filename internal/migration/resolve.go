package migration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"photoport/internal/albums"
	"photoport/internal/classify"
	"photoport/internal/importer"
	"photoport/internal/issue"
	"photoport/internal/metadata"
	"photoport/internal/pairing"
	"photoport/internal/sidecar"
)

// unit is one write-ready top-level asset.
type unit struct {
	item   importer.Item
	signal pairing.Signal
	issues []issue.Issue
	skip   bool
}

// resolved is the outcome of one directory.
type resolved struct {
	units    []unit
	absorbed int
	issues   []issue.Issue
}

// assetID derives a stable identifier from the archive-relative path.
func assetID(rel string) string {
	sum := sha256.Sum256([]byte(rel))
	return hex.EncodeToString(sum[:16])
}

// resolveDirectory runs match, reconcile, pair and album resolution for a
// directory. Reconciliation fans out over the worker pool; results are
// collected by index so output order is discovery order.
func (o *Orchestrator) resolveDirectory(ctx context.Context, dir *directory) (resolved, error) {
	matches := o.matcher.MatchDirectory(dir.media, dir.sidecars)

	outcomes := make([]metadata.Outcome, len(dir.media))
	if o.workers <= 1 || len(dir.media) < 2 {
		for i := range dir.media {
			if err := ctx.Err(); err != nil {
				return resolved{}, err
			}
			outcomes[i] = o.reconcileOne(ctx, dir, i, matches)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)
		for i := range dir.media {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = o.reconcileOne(gctx, dir, i, matches)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return resolved{}, err
		}
	}

	candidates := make([]pairing.Candidate, len(dir.media))
	for i, name := range dir.media {
		rec := outcomes[i].Record
		c := pairing.Candidate{Name: name, Kind: dir.kinds[i], Duration: rec.Duration}
		if rec.CapturedAt != nil {
			c.Taken = *rec.CapturedAt
		}
		candidates[i] = c
	}
	paired := o.detector.Detect(candidates)

	label, albumIssues := o.albumLabel(dir)
	out := resolved{absorbed: len(paired.Pairs)}
	out.issues = append(out.issues, dirIssues(dir, paired.Issues)...)
	out.issues = append(out.issues, albumIssues...)

	motionOf := make(map[int]pairing.Pair, len(paired.Pairs))
	for _, p := range paired.Pairs {
		motionOf[p.Still] = p
	}
	orphan := make(map[int]struct{}, len(paired.Orphans))
	for _, idx := range paired.Orphans {
		orphan[idx] = struct{}{}
	}

	out.units = make([]unit, 0, len(paired.TopLevel))
	for _, idx := range paired.TopLevel {
		primary := o.component(dir, idx)
		if _, ok := orphan[idx]; ok {
			primary.Kind = classify.KindUnknown
		}
		u := unit{
			item: importer.Item{
				AssetID: assetID(primary.RelPath),
				Primary: primary,
				Album:   label,
				Record:  outcomes[idx].Record,
			},
			issues: outcomes[idx].Issues,
		}
		if p, ok := motionOf[idx]; ok {
			motion := o.component(dir, p.Motion)
			u.item.Motion = &motion
			u.signal = p.Signal
			u.issues = append(u.issues, motionIssues(outcomes[p.Motion].Issues)...)
		}
		out.units = append(out.units, u)
	}
	return out, nil
}

func (o *Orchestrator) component(dir *directory, idx int) importer.Component {
	name := dir.media[idx]
	return importer.Component{
		Path:    filepath.Join(dir.abs, name),
		RelPath: joinRel(dir.rel, name),
		Kind:    dir.kinds[idx],
	}
}

func (o *Orchestrator) reconcileOne(ctx context.Context, dir *directory, idx int, matches map[string]sidecar.Match) metadata.Outcome {
	name := dir.media[idx]
	in := metadata.Input{
		Path: filepath.Join(dir.abs, name),
		Kind: dir.kinds[idx],
	}
	if m, ok := matches[name]; ok {
		in.SidecarPath = filepath.Join(dir.abs, m.Sidecar)
	}
	if info, err := os.Stat(in.Path); err == nil {
		in.ModTime = info.ModTime()
	}
	outcome := o.reconciler.Reconcile(ctx, in)
	for i := range outcome.Issues {
		outcome.Issues[i].Path = joinRel(dir.rel, name)
	}
	return outcome
}

// albumLabel resolves the directory's album, honouring an album metadata
// title when one is present and readable.
func (o *Orchestrator) albumLabel(dir *directory) (string, []issue.Issue) {
	var title string
	var issues []issue.Issue
	if dir.albumMeta != "" {
		t, err := albums.ReadTitle(filepath.Join(dir.abs, dir.albumMeta))
		if err != nil {
			issues = append(issues, issue.New(issue.Metadata, joinRel(dir.rel, dir.albumMeta), err.Error()))
		}
		title = t
	}
	return o.albums.Resolve(dir.rel, title), issues
}

// motionIssues drops the no-source note for an absorbed motion component;
// the pair takes its metadata from the still.
func motionIssues(list []issue.Issue) []issue.Issue {
	out := list[:0:0]
	for _, is := range list {
		if is.Category != issue.NoMetadataSource {
			out = append(out, is)
		}
	}
	return out
}
