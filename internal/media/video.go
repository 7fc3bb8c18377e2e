package media

import (
	"context"

	"photoport/internal/media/ffprobe"
)

// ReadVideo probes a video or motion component with ffprobe.
func ReadVideo(ctx context.Context, binary, path string) (Embedded, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return Embedded{}, err
	}
	return FromProbe(result), nil
}

// FromProbe maps an ffprobe report onto Embedded.
func FromProbe(result ffprobe.Result) Embedded {
	out := Embedded{Source: "ffprobe", Duration: result.Duration()}
	if created, ok := result.CreationTime(); ok {
		out.Created = created
	}
	if lat, lon, alt, ok := result.Location(); ok {
		out.Lat, out.Lon, out.Alt = &lat, &lon, alt
	}
	out.Width, out.Height = result.Dimensions()
	out.Make = firstTag(result, "make", "com.apple.quicktime.make")
	out.Model = firstTag(result, "model", "com.apple.quicktime.model")
	return out
}

func firstTag(result ffprobe.Result, keys ...string) string {
	for _, key := range keys {
		if value := result.Tag(key); value != "" {
			return value
		}
	}
	return ""
}
