package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is the decoded ffprobe report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one stream of the container.
type Stream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Duration  string            `json:"duration"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Tags      map[string]string `json:"tags"`
}

// Format holds container-level fields.
type Format struct {
	Filename   string            `json:"filename"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect executes ffprobe against path and decodes its JSON output.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes a raw ffprobe JSON report.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// DurationSeconds returns the container duration, falling back to the first
// video stream. Zero means unknown.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			if d := parseFloat(stream.Duration); d > 0 {
				return d
			}
		}
	}
	return 0
}

// Duration is DurationSeconds as a time.Duration.
func (r Result) Duration() time.Duration {
	return time.Duration(r.DurationSeconds() * float64(time.Second))
}

// Dimensions returns the width and height of the first video stream.
func (r Result) Dimensions() (int, int) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 {
			return stream.Width, stream.Height
		}
	}
	return 0, 0
}

// CreationTime returns the creation_time tag from the container or, failing
// that, any stream.
func (r Result) CreationTime() (time.Time, bool) {
	if t, ok := parseCreationTime(r.Format.Tags); ok {
		return t, true
	}
	for _, stream := range r.Streams {
		if t, ok := parseCreationTime(stream.Tags); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// iso6709 matches "+48.8583+002.2945+035.000/" style location tags.
var iso6709 = regexp.MustCompile(`^([+-]\d+(?:\.\d+)?)([+-]\d+(?:\.\d+)?)([+-]\d+(?:\.\d+)?)?/?$`)

// Location decodes the ISO 6709 location tag written by phone cameras.
func (r Result) Location() (lat, lon float64, alt *float64, ok bool) {
	for _, key := range []string{"location", "com.apple.quicktime.location.ISO6709", "location-eng"} {
		value := strings.TrimSpace(lookupTag(r.Format.Tags, key))
		if value == "" {
			continue
		}
		groups := iso6709.FindStringSubmatch(value)
		if groups == nil {
			continue
		}
		lat, _ = strconv.ParseFloat(groups[1], 64)
		lon, _ = strconv.ParseFloat(groups[2], 64)
		if groups[3] != "" {
			if a, err := strconv.ParseFloat(groups[3], 64); err == nil {
				alt = &a
			}
		}
		return lat, lon, alt, true
	}
	return 0, 0, nil, false
}

// Tag returns a container tag by case-insensitive key.
func (r Result) Tag(key string) string {
	return lookupTag(r.Format.Tags, key)
}

func lookupTag(tags map[string]string, key string) string {
	if value, ok := tags[key]; ok {
		return value
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func parseCreationTime(tags map[string]string) (time.Time, bool) {
	value := strings.TrimSpace(lookupTag(tags, "creation_time"))
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			if t.Year() <= 1904 {
				// QuickTime epoch written by devices without a clock.
				return time.Time{}, false
			}
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
