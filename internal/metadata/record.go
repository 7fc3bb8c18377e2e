package metadata

import (
	"encoding/json"
	"time"
)

// Provenance identifies where a field value came from.
type Provenance string

const (
	FromSidecar    Provenance = "sidecar-json"
	FromEmbedded   Provenance = "embedded-exif"
	FromFilesystem Provenance = "filesystem"
	FromNone       Provenance = "none"
)

// Field names a reconciled field for provenance tracking.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCapturedAt  Field = "captured_at"
	FieldLocation    Field = "location"
	FieldFavorite    Field = "favorite"
	FieldPeople      Field = "people"
	FieldKeywords    Field = "keywords"
	FieldCamera      Field = "camera"
	FieldDimensions  Field = "dimensions"
)

// Fields lists every tracked field in display order.
var Fields = []Field{
	FieldTitle, FieldDescription, FieldCapturedAt, FieldLocation, FieldFavorite,
	FieldPeople, FieldKeywords, FieldCamera, FieldDimensions,
}

// TimeSource names the link of the timestamp chain that supplied CapturedAt.
type TimeSource string

const (
	TimePhotoTaken   TimeSource = "photo-taken"
	TimeCreation     TimeSource = "creation"
	TimeModification TimeSource = "modification"
)

// Location is a validated coordinate.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Record is the canonical, write-ready metadata for one asset.
type Record struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	CapturedAt  *time.Time    `json:"captured_at,omitempty"`
	TimeSource  TimeSource    `json:"time_source,omitempty"`
	Location    *Location     `json:"location,omitempty"`
	Favorite    bool          `json:"favorite"`
	People      []string      `json:"people,omitempty"`
	Keywords    []string      `json:"keywords,omitempty"`
	CameraMake  string        `json:"camera_make,omitempty"`
	CameraModel string        `json:"camera_model,omitempty"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Duration    time.Duration `json:"duration_ns,omitempty"`

	Provenance map[Field]Provenance `json:"provenance"`

	// Raw echoes the sidecar document for diagnostics. Never consulted by
	// reconciliation beyond the named fields.
	Raw json.RawMessage `json:"-"`
}

func newRecord() Record {
	prov := make(map[Field]Provenance, len(Fields))
	for _, f := range Fields {
		prov[f] = FromNone
	}
	return Record{Provenance: prov}
}

// Source returns the provenance of field, FromNone when unset.
func (r Record) Source(field Field) Provenance {
	if p, ok := r.Provenance[field]; ok {
		return p
	}
	return FromNone
}

// HasSource reports whether any field was resolved from a real source.
func (r Record) HasSource() bool {
	for _, p := range r.Provenance {
		if p != FromNone {
			return true
		}
	}
	return false
}

// Origin summarises the record: the sidecar when it contributed anything,
// then embedded, then filesystem, else none.
func (r Record) Origin() Provenance {
	seen := map[Provenance]bool{}
	for _, p := range r.Provenance {
		seen[p] = true
	}
	for _, p := range []Provenance{FromSidecar, FromEmbedded, FromFilesystem} {
		if seen[p] {
			return p
		}
	}
	return FromNone
}
