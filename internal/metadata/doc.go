// Package metadata reconciles a media file's sidecar and embedded metadata
// into one canonical Record.
//
// Every field resolves independently from the highest-priority source that
// supplies it (sidecar JSON, then embedded technical metadata) and records
// which source that was. The capture timestamp walks a fixed chain of
// photo-taken, creation and modification times and keeps only the first
// value present.
package metadata
