package preflight

import (
	"context"
	"path/filepath"

	"photoport/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	switch cfg.Import.Mode {
	case config.ImportModeLibrary:
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	case config.ImportModeManifest:
		results = append(results, CheckDirectoryAccess("Manifest directory", filepath.Dir(cfg.Paths.ManifestPath)))
	}
	if cfg.Metadata.ReadEmbedded {
		results = append(results, CheckFFprobe(ctx, cfg))
	}
	results = append(results, CheckMemory(ctx, cfg))
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
