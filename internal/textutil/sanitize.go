package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// maxSegmentBytes keeps segments within common filesystem name limits.
const maxSegmentBytes = 200

// SanitizeFileName makes name safe as a single path segment. Control
// characters are dropped, and names that would be "." or ".." become "".
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	name = strings.TrimRight(name, ". ")
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return truncateBytes(name, maxSegmentBytes)
}

// SanitizeAlbumPath converts an album label using sep between levels into
// a slash-separated relative directory of sanitized segments. Empty
// segments are dropped; a label with none left returns fallback.
func SanitizeAlbumPath(label, sep, fallback string) string {
	if sep == "" {
		sep = "/"
	}
	parts := strings.Split(label, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if clean := SanitizeFileName(part); clean != "" {
			out = append(out, clean)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return strings.Join(out, "/")
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	return strings.TrimSpace(s[:cut])
}
