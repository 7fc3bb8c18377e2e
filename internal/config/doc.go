// Package config loads, normalizes, and validates photoport configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours PHOTOPORT_* environment overrides.
// The Config type centralizes every knob the migration pipeline and CLI need:
// scan and album rules, sidecar heuristics, pairing windows, memory thresholds,
// and batch policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
