package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"photoport/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "photoport")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.ManifestPath != filepath.Join(wantState, "manifest.ndjson") {
		t.Fatalf("unexpected manifest path: %q", cfg.Paths.ManifestPath)
	}
	if cfg.StatePath() != filepath.Join(wantState, "photoport.db") {
		t.Fatalf("unexpected state path: %q", cfg.StatePath())
	}
	if cfg.Import.Mode != config.ImportModeDryRun {
		t.Fatalf("expected dry-run import mode, got %q", cfg.Import.Mode)
	}
	if cfg.Batch.Floor != 10 || cfg.Batch.Max != 500 {
		t.Fatalf("unexpected batch defaults: %+v", cfg.Batch)
	}
	if cfg.Memory.HighThreshold != 0.8 || cfg.Memory.CriticalThreshold != 0.9 {
		t.Fatalf("unexpected memory thresholds: %+v", cfg.Memory)
	}
	if cfg.ProximityTolerance().Seconds() != 3 {
		t.Fatalf("unexpected proximity tolerance: %v", cfg.ProximityTolerance())
	}
	if cfg.MemoryBudgetBytes() != 0 {
		t.Fatalf("expected no budget by default, got %d", cfg.MemoryBudgetBytes())
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
state_dir = "~/port-state"

[pairing]
live_video_extensions = ["MOV", ".Mp4", "mov"]

[sidecar]
edited_suffixes = [" -EDITED ", ""]

[logging]
format = "JSON"
level = "Debug"

[memory]
budget_mb = 512
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config to be read from %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "port-state") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "photoport", "logs") {
		t.Fatalf("unexpected log dir %q", cfg.Paths.LogDir)
	}
	if got := strings.Join(cfg.Pairing.LiveVideoExtensions, ","); got != ".mov,.mp4" {
		t.Fatalf("unexpected live video extensions %q", got)
	}
	if got := strings.Join(cfg.Sidecar.EditedSuffixes, ","); got != "-edited" {
		t.Fatalf("unexpected edited suffixes %q", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.MemoryBudgetBytes() != 512<<20 {
		t.Fatalf("unexpected budget %d", cfg.MemoryBudgetBytes())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PHOTOPORT_LOG_LEVEL", "warn")
	t.Setenv("PHOTOPORT_IMPORT_MODE", "manifest")
	t.Setenv("PHOTOPORT_WORKERS", "2")
	t.Setenv("PHOTOPORT_MEMORY_BUDGET_MB", "256")
	t.Setenv("PHOTOPORT_NTFY_TOPIC", " https://ntfy.example/photos ")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
	if cfg.Import.Mode != config.ImportModeManifest {
		t.Fatalf("expected env import mode, got %q", cfg.Import.Mode)
	}
	if cfg.Workers.Count != 2 {
		t.Fatalf("expected env workers, got %d", cfg.Workers.Count)
	}
	if cfg.Memory.BudgetMB != 256 {
		t.Fatalf("expected env budget, got %d", cfg.Memory.BudgetMB)
	}
	if cfg.Notify.NtfyTopic != "https://ntfy.example/photos" {
		t.Fatalf("expected env ntfy topic, got %q", cfg.Notify.NtfyTopic)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "floor below one",
			mutate:  func(c *config.Config) { c.Batch.Floor = 0 },
			wantErr: "batch.floor must be >= 1",
		},
		{
			name:    "floor above max",
			mutate:  func(c *config.Config) { c.Batch.Floor = 600 },
			wantErr: "batch.floor must not exceed batch.max",
		},
		{
			name:    "initial outside range",
			mutate:  func(c *config.Config) { c.Batch.Initial = 5 },
			wantErr: "batch.initial must be between",
		},
		{
			name:    "growth below one",
			mutate:  func(c *config.Config) { c.Batch.GrowthFactor = 0.5 },
			wantErr: "batch.growth_factor must be >= 1",
		},
		{
			name:    "thresholds not ascending",
			mutate:  func(c *config.Config) { c.Memory.HighThreshold = 0.95 },
			wantErr: "strictly ascending",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *config.Config) { c.Memory.CriticalThreshold = 1.5 },
			wantErr: "memory.critical_threshold must be <= 1",
		},
		{
			name:    "unknown import mode",
			mutate:  func(c *config.Config) { c.Import.Mode = "cloud" },
			wantErr: "import.mode must be one of: dry-run, manifest, library",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format must be one of",
		},
		{
			name:    "workers zero",
			mutate:  func(c *config.Config) { c.Workers.Count = 0 },
			wantErr: "workers.count must be >= 1",
		},
		{
			name:    "ntfy topic not a url",
			mutate:  func(c *config.Config) { c.Notify.NtfyTopic = "photos" },
			wantErr: "notifications.ntfy_topic",
		},
		{
			name:    "bad album pattern",
			mutate:  func(c *config.Config) { c.Scan.NonAlbumPatterns = []string{"[bad"} },
			wantErr: "scan.non_album_patterns",
		},
		{
			name: "library mode without library dir",
			mutate: func(c *config.Config) {
				c.Import.Mode = config.ImportModeLibrary
				c.Paths.LibraryDir = ""
			},
			wantErr: "paths.library_dir must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.StateDir = t.TempDir()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	defaults := config.Default()
	if parsed.Batch != defaults.Batch {
		t.Fatalf("sample batch section drifted from defaults: %+v vs %+v", parsed.Batch, defaults.Batch)
	}
	if parsed.Memory != defaults.Memory {
		t.Fatalf("sample memory section drifted from defaults: %+v vs %+v", parsed.Memory, defaults.Memory)
	}
	if parsed.Import.Mode != defaults.Import.Mode {
		t.Fatalf("sample import mode drifted: %q", parsed.Import.Mode)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Scan.AlbumSeparator != "/" {
		t.Fatalf("unexpected separator %q", cfg.Scan.AlbumSeparator)
	}
}

func TestEncodeRoundTripsThroughTOML(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "critical_threshold") {
		t.Fatalf("expected encoded config to contain memory keys, got:\n%s", data)
	}
}
