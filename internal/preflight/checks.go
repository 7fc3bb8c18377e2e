package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"photoport/internal/config"
	"photoport/internal/deps"
	"photoport/internal/memory"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Requirements lists the external binaries the configuration uses.
func Requirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Reads capture time, location and duration from videos",
			Optional:    !cfg.Metadata.ReadEmbedded,
			VersionArgs: []string{"-version"},
		},
	}
}

// CheckSystemDeps evaluates the external binaries for cfg.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, Requirements(cfg))
}

// CheckFFprobe reports ffprobe availability as a preflight result.
func CheckFFprobe(ctx context.Context, cfg *config.Config) Result {
	const name = "FFprobe"
	statuses := CheckSystemDeps(ctx, cfg)
	if len(statuses) == 0 {
		return Result{Name: name, Detail: "not configured"}
	}
	st := statuses[0]
	if !st.Available {
		return Result{Name: name, Detail: st.Detail + "; video metadata will come from sidecars only"}
	}
	detail := st.Path
	if st.Version != "" {
		detail = fmt.Sprintf("%s (%s)", st.Path, st.Version)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckMemory samples process memory against the configured budget.
func CheckMemory(ctx context.Context, cfg *config.Config) Result {
	const name = "Memory budget"
	used, total, err := memory.NewRuntimeSampler(cfg.MemoryBudgetBytes()).Sample(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("sampling failed: %v (batches will run at the floor size)", err)}
	}
	if total == 0 {
		return Result{Name: name, Detail: "total memory unknown (batches will run at the floor size)"}
	}
	source := "system total"
	if cfg.MemoryBudgetBytes() > 0 {
		source = "configured budget"
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s of %s %s in use", humanize.IBytes(used), humanize.IBytes(total), source),
	}
}
