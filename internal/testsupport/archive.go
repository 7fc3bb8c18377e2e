package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// Archive builds a takeout-style directory tree under a temp root.
type Archive struct {
	t    testing.TB
	Root string
}

// NewArchive creates an empty archive root.
func NewArchive(t testing.TB) *Archive {
	t.Helper()
	return &Archive{t: t, Root: t.TempDir()}
}

// Media writes a small placeholder media file at rel and returns its path.
func (a *Archive) Media(rel string) string {
	a.t.Helper()
	return a.Raw(rel, bytes.Repeat([]byte{0x42}, 64))
}

// Sidecar writes a sidecar document at rel.
func (a *Archive) Sidecar(rel string, doc SidecarDoc) string {
	a.t.Helper()
	data, err := json.Marshal(doc.payload())
	if err != nil {
		a.t.Fatalf("marshal sidecar: %v", err)
	}
	return a.Raw(rel, data)
}

// Raw writes arbitrary bytes at rel.
func (a *Archive) Raw(rel string, data []byte) string {
	a.t.Helper()
	path := filepath.Join(a.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		a.t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// AlbumTitle writes an album metadata.json in dir.
func (a *Archive) AlbumTitle(dir, title string) string {
	a.t.Helper()
	data, _ := json.Marshal(map[string]string{"title": title})
	return a.Raw(filepath.ToSlash(filepath.Join(dir, "metadata.json")), data)
}

// SidecarDoc describes the fields written into a test sidecar.
type SidecarDoc struct {
	Title     string
	Taken     time.Time
	Created   time.Time
	Lat, Lon  *float64
	Favorited *bool
	People    []string
}

func (d SidecarDoc) payload() map[string]any {
	out := map[string]any{}
	if d.Title != "" {
		out["title"] = d.Title
	}
	if !d.Taken.IsZero() {
		out["photoTakenTime"] = map[string]string{"timestamp": epoch(d.Taken)}
	}
	if !d.Created.IsZero() {
		out["creationTime"] = map[string]string{"timestamp": epoch(d.Created)}
	}
	if d.Lat != nil && d.Lon != nil {
		out["geoData"] = map[string]float64{"latitude": *d.Lat, "longitude": *d.Lon}
	}
	if d.Favorited != nil {
		out["favorited"] = *d.Favorited
	}
	if len(d.People) > 0 {
		people := make([]map[string]string, 0, len(d.People))
		for _, name := range d.People {
			people = append(people, map[string]string{"name": name})
		}
		out["people"] = people
	}
	return out
}

func epoch(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
