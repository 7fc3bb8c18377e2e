// Package sidecar pairs media files with the JSON metadata documents the
// export tool writes next to them, and decodes those documents.
//
// Matching is purely name based and scoped to a single directory. The
// exporter truncates long names, appends duplicate counters in odd
// positions, and reuses the original's sidecar for edited copies; the
// matcher walks a fixed priority of rules to undo each of those.
package sidecar
