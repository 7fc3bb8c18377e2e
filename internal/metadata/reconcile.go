package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"photoport/internal/classify"
	"photoport/internal/issue"
	"photoport/internal/logging"
	"photoport/internal/media"
	"photoport/internal/sidecar"
)

// Options tunes reconciliation.
type Options struct {
	// ReadEmbedded enables EXIF/ffprobe extraction.
	ReadEmbedded bool
	// FileTimeFallback lets the filesystem modification time end the
	// timestamp chain when no source supplies one.
	FileTimeFallback bool
	// NullIslandEpsilon treats coordinates with both |lat| and |lon| at or
	// below it as the exporter's "no location" sentinel. 0 means exactly zero.
	NullIslandEpsilon float64
}

// Input describes one asset to reconcile.
type Input struct {
	Path        string
	Kind        classify.Kind
	SidecarPath string
	ModTime     time.Time
}

// Outcome is the reconciled record plus the issues noted on the way.
type Outcome struct {
	Record   Record
	Embedded media.Embedded
	Issues   []issue.Issue
}

// Reconciler builds Records. Safe for concurrent use when its extractor is.
type Reconciler struct {
	opts      Options
	extractor media.Extractor
	logger    *slog.Logger
}

// NewReconciler constructs a reconciler. extractor may be nil.
func NewReconciler(opts Options, extractor media.Extractor, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		opts:      opts,
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "metadata"),
	}
}

// Reconcile resolves every field of the record. It never fails: a malformed
// sidecar is recorded as an issue and embedded metadata takes its place.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) Outcome {
	logger := logging.WithContext(ctx, r.logger)
	out := Outcome{Record: newRecord()}

	var payload *sidecar.Payload
	if in.SidecarPath != "" {
		parsed, err := sidecar.ReadFile(in.SidecarPath)
		if err != nil {
			out.Issues = append(out.Issues, issue.New(issue.Metadata, in.Path, fmt.Sprintf("sidecar unreadable: %v", err)))
			logging.WarnWithContext(logger, "sidecar parse failed; using embedded metadata",
				"sidecar_parse_failed",
				logging.String("path", in.Path),
				logging.String("sidecar", in.SidecarPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the sidecar JSON"),
			)
		} else {
			payload = parsed
			out.Record.Raw = parsed.Raw
		}
	}

	if r.opts.ReadEmbedded && r.extractor != nil {
		embedded, err := r.extractor.Extract(ctx, in.Path, in.Kind)
		switch {
		case err == nil:
			out.Embedded = embedded
		case errors.Is(err, media.ErrNoEmbedded), errors.Is(err, context.Canceled):
		default:
			logger.Debug("embedded metadata unavailable",
				logging.String("path", in.Path),
				logging.Error(err),
			)
		}
	}

	rec := &out.Record
	r.resolveText(rec, payload)
	r.resolveTime(rec, payload, out.Embedded, in.ModTime)
	out.Issues = append(out.Issues, r.resolveLocation(rec, payload, out.Embedded, in.Path)...)
	resolveTags(rec, payload)
	resolveTechnical(rec, out.Embedded)

	if !rec.HasSource() {
		out.Issues = append(out.Issues, issue.New(issue.NoMetadataSource, in.Path, "no sidecar or embedded metadata"))
	}
	return out
}

func (r *Reconciler) resolveText(rec *Record, payload *sidecar.Payload) {
	if payload == nil {
		return
	}
	if title := strings.TrimSpace(payload.Title); title != "" {
		rec.Title = title
		rec.Provenance[FieldTitle] = FromSidecar
	}
	if desc := strings.TrimSpace(payload.Description); desc != "" {
		rec.Description = desc
		rec.Provenance[FieldDescription] = FromSidecar
	}
	if payload.Favorited != nil {
		rec.Favorite = *payload.Favorited
		rec.Provenance[FieldFavorite] = FromSidecar
	}
}

type timeCandidate struct {
	at     time.Time
	ok     bool
	source TimeSource
	prov   Provenance
}

func (r *Reconciler) resolveTime(rec *Record, payload *sidecar.Payload, embedded media.Embedded, modTime time.Time) {
	var taken, created, modified *sidecar.Timestamp
	if payload != nil {
		taken, created, modified = payload.PhotoTakenTime, payload.CreationTime, payload.ModificationTime
	}
	chain := []timeCandidate{
		fromSidecar(taken, TimePhotoTaken),
		fromEmbedded(embedded.Taken, TimePhotoTaken),
		fromSidecar(created, TimeCreation),
		fromEmbedded(embedded.Created, TimeCreation),
		fromSidecar(modified, TimeModification),
	}
	if r.opts.FileTimeFallback && !modTime.IsZero() {
		chain = append(chain, timeCandidate{at: modTime.UTC(), ok: true, source: TimeModification, prov: FromFilesystem})
	}
	for _, c := range chain {
		if !c.ok {
			continue
		}
		at := c.at
		rec.CapturedAt = &at
		rec.TimeSource = c.source
		rec.Provenance[FieldCapturedAt] = c.prov
		return
	}
}

func fromSidecar(ts *sidecar.Timestamp, source TimeSource) timeCandidate {
	at, ok := ts.Time()
	return timeCandidate{at: at, ok: ok, source: source, prov: FromSidecar}
}

func fromEmbedded(at time.Time, source TimeSource) timeCandidate {
	return timeCandidate{at: at, ok: !at.IsZero(), source: source, prov: FromEmbedded}
}

type geoCandidate struct {
	lat, lon *float64
	alt      *float64
	prov     Provenance
	label    string
}

func (r *Reconciler) resolveLocation(rec *Record, payload *sidecar.Payload, embedded media.Embedded, path string) []issue.Issue {
	var candidates []geoCandidate
	if payload != nil {
		for _, g := range []struct {
			data  *sidecar.GeoData
			label string
		}{{payload.GeoData, "geoData"}, {payload.GeoDataExif, "geoDataExif"}} {
			if g.data != nil {
				candidates = append(candidates, geoCandidate{g.data.Latitude, g.data.Longitude, g.data.Altitude, FromSidecar, g.label})
			}
		}
	}
	candidates = append(candidates, geoCandidate{embedded.Lat, embedded.Lon, embedded.Alt, FromEmbedded, "embedded"})

	var issues []issue.Issue
	for _, c := range candidates {
		if c.lat == nil || c.lon == nil {
			continue
		}
		lat, lon := *c.lat, *c.lon
		if r.isSentinel(lat, lon) {
			continue
		}
		if err := validateCoordinate(lat, lon); err != nil {
			issues = append(issues, issue.New(issue.Metadata, path, fmt.Sprintf("%s: %v", c.label, err)))
			continue
		}
		loc := &Location{Latitude: lat, Longitude: lon}
		if c.alt != nil && !math.IsNaN(*c.alt) && !math.IsInf(*c.alt, 0) {
			alt := *c.alt
			loc.Altitude = &alt
		}
		rec.Location = loc
		rec.Provenance[FieldLocation] = c.prov
		break
	}
	return issues
}

func (r *Reconciler) isSentinel(lat, lon float64) bool {
	eps := r.opts.NullIslandEpsilon
	if eps <= 0 {
		return lat == 0 && lon == 0
	}
	return math.Abs(lat) <= eps && math.Abs(lon) <= eps
}

func validateCoordinate(lat, lon float64) error {
	switch {
	case math.IsNaN(lat) || lat < -90 || lat > 90:
		return fmt.Errorf("latitude %v out of range", lat)
	case math.IsNaN(lon) || lon < -180 || lon > 180:
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}

func resolveTags(rec *Record, payload *sidecar.Payload) {
	if payload == nil {
		return
	}
	names := make([]string, 0, len(payload.People))
	for _, p := range payload.People {
		names = append(names, p.Name)
	}
	if people := orderedSet(names); len(people) > 0 {
		rec.People = people
		rec.Provenance[FieldPeople] = FromSidecar
	}
	if keywords := orderedSet(payload.Keywords); len(keywords) > 0 {
		rec.Keywords = keywords
		rec.Provenance[FieldKeywords] = FromSidecar
	}
}

func resolveTechnical(rec *Record, embedded media.Embedded) {
	if embedded.Make != "" || embedded.Model != "" {
		rec.CameraMake = embedded.Make
		rec.CameraModel = embedded.Model
		rec.Provenance[FieldCamera] = FromEmbedded
	}
	if embedded.Width > 0 && embedded.Height > 0 {
		rec.Width = embedded.Width
		rec.Height = embedded.Height
		rec.Provenance[FieldDimensions] = FromEmbedded
	}
	rec.Duration = embedded.Duration
}

// orderedSet trims values and drops blanks and repeats, keeping first-seen order.
func orderedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
