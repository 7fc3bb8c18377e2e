// Package main hosts the photoport CLI entrypoint and command graph.
//
// Commands resolve configuration once, build the structured logger, and
// hand off to the internal packages: migrate drives a full run through the
// orchestrator, scan reports on an archive without importing it, runs reads
// the journal, and doctor runs the preflight checks. Keep this package thin;
// behaviour belongs in internal/ and is surfaced here through flags.
package main
