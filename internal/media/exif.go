package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// ReadEXIF decodes EXIF from the still at path. Zone-less timestamps are
// interpreted in loc.
func ReadEXIF(path string, loc *time.Location) (Embedded, error) {
	file, err := os.Open(path)
	if err != nil {
		return Embedded{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	return DecodeEXIF(file, loc)
}

// DecodeEXIF decodes EXIF from r.
func DecodeEXIF(r io.Reader, loc *time.Location) (Embedded, error) {
	if loc == nil {
		loc = time.UTC
	}
	x, err := exif.Decode(r)
	if err != nil {
		if exif.IsCriticalError(err) {
			if errors.Is(err, io.EOF) {
				return Embedded{}, ErrNoEmbedded
			}
			return Embedded{}, fmt.Errorf("%w: %v", ErrNoEmbedded, err)
		}
		if x == nil {
			return Embedded{}, ErrNoEmbedded
		}
	}

	out := Embedded{Source: "exif"}
	out.Taken = exifTime(x, exif.DateTimeOriginal, loc)
	out.Created = exifTime(x, exif.DateTime, loc)
	if out.Created.IsZero() {
		out.Created = exifTime(x, exif.DateTimeDigitized, loc)
	}
	if lat, lon, err := x.LatLong(); err == nil {
		out.Lat, out.Lon = &lat, &lon
		if alt, ok := exifAltitude(x); ok {
			out.Alt = &alt
		}
	}
	out.Make = exifString(x, exif.Make)
	out.Model = exifString(x, exif.Model)
	out.Width = exifInt(x, exif.PixelXDimension)
	out.Height = exifInt(x, exif.PixelYDimension)
	if out.Empty() {
		return Embedded{}, ErrNoEmbedded
	}
	return out, nil
}

func exifTime(x *exif.Exif, field exif.FieldName, loc *time.Location) time.Time {
	value := exifString(x, field)
	if value == "" || strings.HasPrefix(value, "0000") {
		return time.Time{}
	}
	t, err := time.ParseInLocation(exifTimeLayout, value, loc)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(value, "\x00"))
}

func exifInt(x *exif.Exif, field exif.FieldName) int {
	tag, err := x.Get(field)
	if err != nil {
		return 0
	}
	value, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return value
}

func exifAltitude(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return 0, false
	}
	rat, err := tag.Rat(0)
	if err != nil {
		return 0, false
	}
	alt, _ := rat.Float64()
	if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if v, err := ref.Int(0); err == nil && v == 1 {
			alt = -alt
		}
	}
	return alt, true
}
