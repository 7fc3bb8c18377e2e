package classify

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Class is the coarse classification of a filesystem entry.
type Class int

const (
	Ignorable Class = iota
	Media
	Sidecar
)

func (c Class) String() string {
	switch c {
	case Media:
		return "media"
	case Sidecar:
		return "sidecar"
	default:
		return "ignorable"
	}
}

// Kind is the media kind of a classified media file.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindMotion  Kind = "motion-component"
	KindUnknown Kind = "unknown"
)

// Result is the outcome of classifying one path.
type Result struct {
	Class Class
	Kind  Kind
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".jpe": {}, ".png": {}, ".gif": {}, ".bmp": {},
	".heic": {}, ".heif": {}, ".webp": {}, ".avif": {}, ".tif": {}, ".tiff": {},
	".dng": {}, ".cr2": {}, ".cr3": {}, ".nef": {}, ".arw": {}, ".orf": {},
	".rw2": {}, ".raf": {}, ".raw": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".qt": {}, ".avi": {}, ".3gp": {},
	".3g2": {}, ".mkv": {}, ".mts": {}, ".m2ts": {}, ".wmv": {}, ".webm": {},
	".mpg": {}, ".mpeg": {}, ".flv": {},
}

// Vendor motion-photo extensions: Pixel/Samsung motion parts exported beside the still.
var motionExtensions = map[string]struct{}{
	".mp": {}, ".mv": {}, ".mp~2": {},
}

// Known exporter JSON files that never describe a single media file.
var ignorableJSON = map[string]struct{}{
	"print-subscriptions.json":          {},
	"shared_album_comments.json":        {},
	"user-generated-memory-titles.json": {},
	"archive_browser.json":              {},
}

// Localised album metadata file names written by Google Takeout.
var albumMetadataNames = map[string]struct{}{
	"metadata.json":    {},
	"métadonnées.json": {},
	"metadaten.json":   {},
	"metadatos.json":   {},
	"metadati.json":    {},
}

// Classify maps a path to its class and media kind. Unknown extensions are
// Ignorable; classification never fails.
func Classify(path string) Result {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Result{Class: Ignorable}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".json" {
		if _, ok := ignorableJSON[strings.ToLower(name)]; ok {
			return Result{Class: Ignorable}
		}
		return Result{Class: Sidecar}
	}
	if kind, ok := MediaKind(ext); ok {
		return Result{Class: Media, Kind: kind}
	}
	return Result{Class: Ignorable}
}

// MediaKind returns the media kind for a lower-cased extension including the dot.
func MediaKind(ext string) (Kind, bool) {
	if _, ok := imageExtensions[ext]; ok {
		return KindImage, true
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo, true
	}
	if _, ok := motionExtensions[ext]; ok {
		return KindMotion, true
	}
	return "", false
}

// IsAlbumMetadata reports whether name is the per-directory album description
// file rather than a media sidecar.
func IsAlbumMetadata(name string) bool {
	_, ok := albumMetadataNames[norm.NFC.String(strings.ToLower(filepath.Base(name)))]
	return ok
}

// IsHidden reports whether a file or directory name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}
