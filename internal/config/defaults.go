package config

const (
	defaultConfigPath           = "~/.config/photoport/config.toml"
	defaultStateDir             = "~/.local/share/photoport"
	defaultLogDir               = "~/.local/share/photoport/logs"
	defaultLibraryDir           = "~/Pictures/photoport"
	defaultManifestName         = "manifest.ndjson"
	defaultAlbumSeparator       = "/"
	defaultTruncatedNameLength  = 46
	defaultFFprobeBinary        = "ffprobe"
	defaultProximityToleranceMS = 3000
	defaultMaxMotionSeconds     = 10
	defaultMediumThreshold      = 0.7
	defaultHighThreshold        = 0.8
	defaultCriticalThreshold    = 0.9
	defaultSampleIntervalMS     = 1000
	defaultBatchFloor           = 10
	defaultBatchInitial         = 100
	defaultBatchMax             = 500
	defaultBatchGrowth          = 1.25
	defaultBatchPauseMS         = 500
	defaultMaxBatchSeconds      = 120
	defaultWorkerCount          = 4
	defaultNotifyTimeoutSeconds = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Import modes.
const (
	ImportModeDryRun   = "dry-run"
	ImportModeManifest = "manifest"
	ImportModeLibrary  = "library"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			LibraryDir: defaultLibraryDir,
		},
		Scan: Scan{
			NoiseDirs:        []string{"Takeout", "Google Photos", "Google Fotos", "Google Foto"},
			NonAlbumPatterns: []string{"Photos from *"},
			AlbumSeparator:   defaultAlbumSeparator,
			SkipHidden:       true,
		},
		Sidecar: Sidecar{
			EditedSuffixes:      []string{"-edited"},
			TruncatedNameLength: defaultTruncatedNameLength,
		},
		Metadata: Metadata{
			ReadEmbedded:  true,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Pairing: Pairing{
			ProximityToleranceMS:     defaultProximityToleranceMS,
			MaxMotionDurationSeconds: defaultMaxMotionSeconds,
			LiveVideoExtensions:      []string{".mov", ".mp4"},
		},
		Memory: Memory{
			MediumThreshold:   defaultMediumThreshold,
			HighThreshold:     defaultHighThreshold,
			CriticalThreshold: defaultCriticalThreshold,
			SampleIntervalMS:  defaultSampleIntervalMS,
			SetGoMemoryLimit:  true,
		},
		Batch: Batch{
			Floor:           defaultBatchFloor,
			Initial:         defaultBatchInitial,
			Max:             defaultBatchMax,
			GrowthFactor:    defaultBatchGrowth,
			PauseMS:         defaultBatchPauseMS,
			MaxBatchSeconds: defaultMaxBatchSeconds,
		},
		Workers: Workers{Count: defaultWorkerCount},
		Import:  Import{Mode: ImportModeDryRun},
		Notify:  Notifications{RequestTimeoutSeconds: defaultNotifyTimeoutSeconds},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
