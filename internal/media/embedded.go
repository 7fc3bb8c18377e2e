package media

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"photoport/internal/classify"
	"photoport/internal/logging"
)

// ErrNoEmbedded reports that a file carries no readable embedded metadata.
var ErrNoEmbedded = errors.New("no embedded metadata")

// Embedded is what a media file says about itself. Zero values are absent.
type Embedded struct {
	Taken    time.Time
	Created  time.Time
	Lat      *float64
	Lon      *float64
	Alt      *float64
	Make     string
	Model    string
	Width    int
	Height   int
	Duration time.Duration
	Source   string
}

// Empty reports whether nothing was extracted.
func (e Embedded) Empty() bool {
	return e.Taken.IsZero() && e.Created.IsZero() && e.Lat == nil && e.Make == "" &&
		e.Model == "" && e.Width == 0 && e.Duration == 0
}

// Extractor reads embedded metadata from a file of the given kind.
type Extractor interface {
	Extract(ctx context.Context, path string, kind classify.Kind) (Embedded, error)
}

// Options configures the default extractor.
type Options struct {
	FFprobeBinary string
	// Location interprets zone-less EXIF timestamps. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// CompositeExtractor dispatches to EXIF for stills and ffprobe for video.
type CompositeExtractor struct {
	ffprobe  string
	location *time.Location
	logger   *slog.Logger
}

// NewExtractor builds the default extractor. Video probing is disabled when
// the ffprobe binary cannot be found.
func NewExtractor(opts Options) *CompositeExtractor {
	logger := logging.NewComponentLogger(opts.Logger, "media")
	location := opts.Location
	if location == nil {
		location = time.UTC
	}
	binary := strings.TrimSpace(opts.FFprobeBinary)
	if binary == "" {
		binary = "ffprobe"
	}
	if _, err := exec.LookPath(binary); err != nil {
		logger.Warn("ffprobe unavailable; video metadata limited to sidecars",
			logging.String(logging.FieldEventType, "ffprobe_unavailable"),
			logging.String("binary", binary),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set metadata.ffprobe_binary"),
			logging.String(logging.FieldImpact, "videos migrate without embedded capture time"),
		)
		binary = ""
	}
	return &CompositeExtractor{ffprobe: binary, location: location, logger: logger}
}

// VideoProbing reports whether ffprobe is in use.
func (e *CompositeExtractor) VideoProbing() bool {
	return e != nil && e.ffprobe != ""
}

// Extract implements Extractor.
func (e *CompositeExtractor) Extract(ctx context.Context, path string, kind classify.Kind) (Embedded, error) {
	if err := ctx.Err(); err != nil {
		return Embedded{}, err
	}
	switch kind {
	case classify.KindImage:
		return ReadEXIF(path, e.location)
	case classify.KindVideo, classify.KindMotion:
		if e.ffprobe == "" {
			return Embedded{}, ErrNoEmbedded
		}
		return ReadVideo(ctx, e.ffprobe, path)
	default:
		return Embedded{}, ErrNoEmbedded
	}
}
