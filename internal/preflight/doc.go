// Package preflight provides the readiness checks behind "photoport doctor"
// and the guard run before a migration starts: state and destination paths
// must be writable, and ffprobe must resolve when embedded metadata is read.
//
// Checks are gated by configuration; a check for a disabled feature is
// skipped rather than reported as passing.
package preflight
