package media

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"photoport/internal/classify"
	"photoport/internal/media/ffprobe"
)

func TestDecodeEXIFWithoutExif(t *testing.T) {
	_, err := DecodeEXIF(bytes.NewReader([]byte("\xff\xd8\xff\xd9")), nil)
	if !errors.Is(err, ErrNoEmbedded) {
		t.Fatalf("expected ErrNoEmbedded, got %v", err)
	}
}

func TestFromProbe(t *testing.T) {
	result, err := ffprobe.Parse([]byte(`{
		"streams": [{"codec_type": "video", "width": 640, "height": 480}],
		"format": {"duration": "2.5", "tags": {"creation_time": "2020-05-05T05:05:05Z", "com.apple.quicktime.model": "iPhone 12"}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	embedded := FromProbe(result)
	if embedded.Duration != 2500*time.Millisecond {
		t.Fatalf("duration = %v", embedded.Duration)
	}
	if !embedded.Created.Equal(time.Date(2020, 5, 5, 5, 5, 5, 0, time.UTC)) {
		t.Fatalf("created = %v", embedded.Created)
	}
	if embedded.Model != "iPhone 12" || embedded.Width != 640 {
		t.Fatalf("unexpected embedded %+v", embedded)
	}
	if embedded.Lat != nil {
		t.Fatal("expected no location")
	}
}

func TestExtractorWithoutFFprobe(t *testing.T) {
	extractor := NewExtractor(Options{FFprobeBinary: "photoport-missing-ffprobe"})
	if extractor.VideoProbing() {
		t.Fatal("expected video probing disabled")
	}
	_, err := extractor.Extract(context.Background(), "clip.mp4", classify.KindVideo)
	if !errors.Is(err, ErrNoEmbedded) {
		t.Fatalf("expected ErrNoEmbedded, got %v", err)
	}
	_, err = extractor.Extract(context.Background(), "x.bin", classify.KindUnknown)
	if !errors.Is(err, ErrNoEmbedded) {
		t.Fatalf("expected ErrNoEmbedded for unknown kind, got %v", err)
	}
}

func TestEmbeddedEmpty(t *testing.T) {
	if !(Embedded{Source: "exif"}).Empty() {
		t.Fatal("expected empty")
	}
	if (Embedded{Make: "Canon"}).Empty() {
		t.Fatal("expected non-empty")
	}
}
