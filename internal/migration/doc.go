// Package migration composes classification, sidecar matching, metadata
// reconciliation, pairing and album resolution into the end-to-end run
// that feeds the destination store batch by batch.
//
// Enumeration of the archive root is the only fail-fast step. Every later
// per-asset problem is recorded as an issue in the Summary and the run
// continues. Batches are emitted in discovery order; an asset is fully
// resolved (metadata, pair, album) before it is handed to the scheduler.
package migration
