// Package services defines shared utilities consumed by every pipeline stage.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, asset IDs, stage names, and batch
//     numbers for logging.
//   - Structured error markers plus the Wrap helper that separate run-ending
//     failures (enumeration, configuration) from per-asset issues that are only
//     counted in the migration summary.
//
// Use these helpers when wiring new stage logic so failure classification and
// observability stay uniform across the pipeline.
package services
