package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxSidecarBytes caps how much of a sidecar file is read.
const MaxSidecarBytes = 4 << 20

// ErrMalformed marks sidecar content that could not be parsed.
var ErrMalformed = errors.New("malformed sidecar")

// Payload is the subset of the exporter's JSON sidecar consumed downstream.
type Payload struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	PhotoTakenTime   *Timestamp `json:"photoTakenTime"`
	CreationTime     *Timestamp `json:"creationTime"`
	ModificationTime *Timestamp `json:"modificationTime"`
	GeoData          *GeoData   `json:"geoData"`
	GeoDataExif      *GeoData   `json:"geoDataExif"`
	Favorited        *bool      `json:"favorited"`
	People           []Person   `json:"people"`
	Keywords         []string   `json:"keywords"`

	// Raw is the undecoded document, retained for diagnostics.
	Raw json.RawMessage `json:"-"`
}

// Timestamp is an epoch-seconds value the exporter writes as a string.
type Timestamp struct {
	Timestamp epoch  `json:"timestamp"`
	Formatted string `json:"formatted"`
}

// Time returns the instant in UTC. A zero or missing value is absent.
func (t *Timestamp) Time() (time.Time, bool) {
	if t == nil || t.Timestamp == 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(t.Timestamp), 0).UTC(), true
}

type epoch int64

func (e *epoch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*e = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*e = 0
			return nil
		}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("parse timestamp %q: %w", raw, err)
		}
		if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return fmt.Errorf("parse timestamp %q: out of range", raw)
		}
		value = int64(f)
	}
	*e = epoch(value)
	return nil
}

// GeoData is a coordinate block. Fields are nil when absent.
type GeoData struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
}

// Coordinates returns latitude and longitude when both are present.
func (g *GeoData) Coordinates() (lat, lon float64, ok bool) {
	if g == nil || g.Latitude == nil || g.Longitude == nil {
		return 0, 0, false
	}
	return *g.Latitude, *g.Longitude, true
}

// Person is a tagged face.
type Person struct {
	Name string `json:"name"`
}

// Parse decodes sidecar bytes. The document must be a JSON object.
func Parse(data []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected JSON object", ErrMalformed)
	}
	var payload Payload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	payload.Raw = append(json.RawMessage(nil), trimmed...)
	return &payload, nil
}

// ReadFile loads and parses the sidecar at path.
func ReadFile(path string) (*Payload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSidecarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	if len(data) > MaxSidecarBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrMalformed, MaxSidecarBytes)
	}
	return Parse(data)
}
