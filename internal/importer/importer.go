// Package importer is the boundary to the destination asset store. The
// core hands it one write-ready item (a still with its motion component
// counts as one item) at a time and records the returned handle.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"photoport/internal/classify"
	"photoport/internal/config"
	"photoport/internal/logging"
	"photoport/internal/metadata"
)

// Component is a file belonging to an item.
type Component struct {
	Path    string        `json:"path"`
	RelPath string        `json:"rel_path"`
	Kind    classify.Kind `json:"kind"`
}

// Item is one fully resolved asset.
type Item struct {
	AssetID string          `json:"asset_id"`
	Primary Component       `json:"primary"`
	Motion  *Component      `json:"motion,omitempty"`
	Album   string          `json:"album,omitempty"`
	Record  metadata.Record `json:"metadata"`
}

// Receipt identifies the stored asset.
type Receipt struct {
	Handle string
}

// Importer accepts items one at a time.
type Importer interface {
	Import(ctx context.Context, item Item) (Receipt, error)
	Close() error
}

// New builds the importer selected by import.mode.
func New(cfg *config.Config, logger *slog.Logger) (Importer, error) {
	logger = logging.NewComponentLogger(logger, "importer")
	switch cfg.Import.Mode {
	case config.ImportModeDryRun, "":
		return DryRun{}, nil
	case config.ImportModeManifest:
		return NewManifest(cfg.Paths.ManifestPath, logger)
	case config.ImportModeLibrary:
		return NewLibrary(cfg.Paths.LibraryDir, cfg.Scan.AlbumSeparator, logger)
	default:
		return nil, fmt.Errorf("unknown import mode %q", cfg.Import.Mode)
	}
}

// DryRun accepts everything and writes nothing.
type DryRun struct{}

// Import implements Importer.
func (DryRun) Import(ctx context.Context, item Item) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	return Receipt{Handle: "dry-run:" + item.AssetID}, nil
}

// Close implements Importer.
func (DryRun) Close() error { return nil }
