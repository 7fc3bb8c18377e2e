// Package albums derives album labels from an asset's position in the
// archive tree.
package albums

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Options configures label derivation.
type Options struct {
	// NoiseDirs are wrapper directory names stripped from the top of the
	// relative path. Case-insensitive.
	NoiseDirs []string
	// NonAlbumPatterns are glob patterns for directories that contribute no
	// label segment ("Photos from 2019").
	NonAlbumPatterns []string
	// Separator joins the remaining segments. Defaults to "/".
	Separator string
}

// Resolver maps relative directories to album labels.
type Resolver struct {
	noise     map[string]struct{}
	patterns  []string
	separator string
}

// NewResolver constructs a resolver.
func NewResolver(opts Options) *Resolver {
	noise := make(map[string]struct{}, len(opts.NoiseDirs))
	for _, dir := range opts.NoiseDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			noise[strings.ToLower(dir)] = struct{}{}
		}
	}
	patterns := make([]string, 0, len(opts.NonAlbumPatterns))
	for _, p := range opts.NonAlbumPatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, strings.ToLower(p))
		}
	}
	sep := opts.Separator
	if sep == "" {
		sep = "/"
	}
	return &Resolver{noise: noise, patterns: patterns, separator: sep}
}

// Resolve returns the album label for relDir, a directory relative to the
// archive root. title, when set, replaces the last label segment. The root
// itself, and directories made only of noise, resolve to "".
func (r *Resolver) Resolve(relDir, title string) string {
	segments := splitSegments(relDir)
	for len(segments) > 0 {
		if _, ok := r.noise[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}

	labels := make([]string, 0, len(segments))
	for _, seg := range segments {
		if r.nonAlbum(seg) {
			continue
		}
		labels = append(labels, seg)
	}
	if len(labels) == 0 {
		return ""
	}
	if title = strings.TrimSpace(title); title != "" {
		labels[len(labels)-1] = title
	}
	return strings.Join(labels, r.separator)
}

func (r *Resolver) nonAlbum(segment string) bool {
	lower := strings.ToLower(segment)
	for _, pattern := range r.patterns {
		if ok, err := path.Match(pattern, lower); err == nil && ok {
			return true
		}
	}
	return false
}

func splitSegments(relDir string) []string {
	cleaned := filepath.ToSlash(filepath.Clean(relDir))
	if cleaned == "." || cleaned == "/" || cleaned == "" {
		return nil
	}
	parts := strings.Split(strings.Trim(cleaned, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

type albumMetadata struct {
	Title string `json:"title"`
}

// ReadTitle reads the album title from a directory's album metadata file.
// A file without a title yields "".
func ReadTitle(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read album metadata: %w", err)
	}
	var meta albumMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("parse album metadata: %w", err)
	}
	return strings.TrimSpace(meta.Title), nil
}
