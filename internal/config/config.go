package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
	LibraryDir   string `toml:"library_dir"`
	ManifestPath string `toml:"manifest_path"`
}

// Scan controls how the archive tree is walked and how album labels are derived.
type Scan struct {
	NoiseDirs        []string `toml:"noise_dirs"`
	NonAlbumPatterns []string `toml:"non_album_patterns"`
	AlbumSeparator   string   `toml:"album_separator" validate:"required"`
	SkipHidden       bool     `toml:"skip_hidden"`
}

// Sidecar tunes the sidecar naming heuristics.
type Sidecar struct {
	EditedSuffixes      []string `toml:"edited_suffixes"`
	TruncatedNameLength int      `toml:"truncated_name_length" validate:"gte=0"`
}

// Metadata tunes reconciliation of sidecar and embedded metadata.
type Metadata struct {
	ReadEmbedded      bool    `toml:"read_embedded"`
	FileTimeFallback  bool    `toml:"file_time_fallback"`
	NullIslandEpsilon float64 `toml:"null_island_epsilon" validate:"gte=0,lt=1"`
	FFprobeBinary     string  `toml:"ffprobe_binary"`
}

// Pairing tunes still/motion pair detection.
type Pairing struct {
	ProximityToleranceMS     int      `toml:"proximity_tolerance_ms" validate:"gte=0"`
	MaxMotionDurationSeconds int      `toml:"max_motion_duration_seconds" validate:"gte=0"`
	LiveVideoExtensions      []string `toml:"live_video_extensions"`
}

// Memory configures the memory pressure monitor.
type Memory struct {
	BudgetMB          int     `toml:"budget_mb" validate:"gte=0"`
	MediumThreshold   float64 `toml:"medium_threshold" validate:"gt=0,lte=1"`
	HighThreshold     float64 `toml:"high_threshold" validate:"gt=0,lte=1"`
	CriticalThreshold float64 `toml:"critical_threshold" validate:"gt=0,lte=1"`
	SampleIntervalMS  int     `toml:"sample_interval_ms" validate:"gte=10"`
	SetGoMemoryLimit  bool    `toml:"set_go_memory_limit"`
}

// Batch configures adaptive batch sizing.
type Batch struct {
	Floor           int     `toml:"floor" validate:"gte=1"`
	Initial         int     `toml:"initial" validate:"gte=1"`
	Max             int     `toml:"max" validate:"gte=1"`
	GrowthFactor    float64 `toml:"growth_factor" validate:"gte=1"`
	PauseMS         int     `toml:"pause_ms" validate:"gte=0"`
	MaxBatchSeconds int     `toml:"max_batch_seconds" validate:"gte=0"`
}

// Workers configures the reconcile worker pool.
type Workers struct {
	Count int `toml:"count" validate:"gte=1,lte=256"`
}

// Import selects the destination store implementation.
type Import struct {
	Mode string `toml:"mode" validate:"oneof=dry-run manifest library"`
}

// Metrics configures Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications configures the optional ntfy run notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic" validate:"omitempty,url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" validate:"gte=0"`
}

// Logging contains logging configuration.
type Logging struct {
	Format        string `toml:"format" validate:"oneof=console json"`
	Level         string `toml:"level" validate:"oneof=debug info warn error"`
	RetentionDays int    `toml:"retention_days" validate:"gte=0"`
}

// Config encapsulates all configuration values for photoport.
type Config struct {
	Paths    Paths         `toml:"paths"`
	Scan     Scan          `toml:"scan"`
	Sidecar  Sidecar       `toml:"sidecar"`
	Metadata Metadata      `toml:"metadata"`
	Pairing  Pairing       `toml:"pairing"`
	Memory   Memory        `toml:"memory"`
	Batch    Batch         `toml:"batch"`
	Workers  Workers       `toml:"workers"`
	Import   Import        `toml:"import"`
	Metrics  Metrics       `toml:"metrics"`
	Notify   Notifications `toml:"notifications"`
	Logging  Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads configuration from disk, applies environment overrides, and
// validates the result. The returned path is where the configuration was
// looked up; exists reports whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photoport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for state and logs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Import.Mode == ImportModeLibrary && strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// StatePath returns the SQLite journal location.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "photoport.db")
}

// FFprobeBinary returns the ffprobe executable name or path.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.Metadata.FFprobeBinary); binary != "" {
		return binary
	}
	return defaultFFprobeBinary
}

// ProximityTolerance returns the timestamp window used for proximity pairing.
func (c *Config) ProximityTolerance() time.Duration {
	return time.Duration(c.Pairing.ProximityToleranceMS) * time.Millisecond
}

// MaxMotionDuration returns the longest video accepted as a live-photo motion part.
func (c *Config) MaxMotionDuration() time.Duration {
	return time.Duration(c.Pairing.MaxMotionDurationSeconds) * time.Second
}

// MemoryBudgetBytes returns the configured memory budget, or 0 when unset.
func (c *Config) MemoryBudgetBytes() uint64 {
	if c.Memory.BudgetMB <= 0 {
		return 0
	}
	return uint64(c.Memory.BudgetMB) << 20
}

// SampleInterval returns the background memory sampling interval.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Memory.SampleIntervalMS) * time.Millisecond
}

// NotifyTimeout returns the HTTP timeout for notification requests.
func (c *Config) NotifyTimeout() time.Duration {
	if c.Notify.RequestTimeoutSeconds <= 0 {
		return defaultNotifyTimeoutSeconds * time.Second
	}
	return time.Duration(c.Notify.RequestTimeoutSeconds) * time.Second
}

// BatchPause returns the base inter-batch pause.
func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.Batch.PauseMS) * time.Millisecond
}

// MaxBatchDuration returns the per-batch time budget, or 0 when unbounded.
func (c *Config) MaxBatchDuration() time.Duration {
	return time.Duration(c.Batch.MaxBatchSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath resolves tilde-prefixed and relative paths to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the provided path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
