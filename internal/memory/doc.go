// Package memory samples process memory usage against a budget and
// classifies it into pressure levels.
//
// A Monitor owns the level state machine. Samples come from an injected
// Sampler so tests can script usage ratios; RuntimeSampler reads the Go
// runtime and, without an explicit budget, the host's total memory.
package memory
