package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"photoport/internal/fileutil"
	"photoport/internal/logging"
	"photoport/internal/textutil"
)

// UnsortedAlbum receives items without an album label.
const UnsortedAlbum = "Unsorted"

// Library copies items into <root>/<album>/ with verified copies.
type Library struct {
	mu        sync.Mutex
	root      string
	separator string
	logger    *slog.Logger
}

// NewLibrary verifies root and returns a library importer.
func NewLibrary(root, separator string, logger *slog.Logger) (*Library, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	return &Library{root: root, separator: separator, logger: logger}, nil
}

// Import implements Importer. The handle is the primary file's path
// relative to the library root.
func (l *Library) Import(ctx context.Context, item Item) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	albumDir := filepath.Join(l.root, filepath.FromSlash(textutil.SanitizeAlbumPath(item.Album, l.separator, UnsortedAlbum)))

	l.mu.Lock()
	defer l.mu.Unlock()

	name := textutil.SanitizeFileName(filepath.Base(item.Primary.Path))
	if name == "" {
		name = item.AssetID + filepath.Ext(item.Primary.Path)
	}
	dst, err := fileutil.UniquePath(albumDir, name)
	if err != nil {
		return Receipt{}, fmt.Errorf("choose destination: %w", err)
	}
	digest, err := fileutil.CopyVerified(item.Primary.Path, dst)
	if err != nil {
		return Receipt{}, fmt.Errorf("copy %s: %w", item.Primary.RelPath, err)
	}
	copied := []string{dst}

	if item.Motion != nil {
		motionName := strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst)) + strings.ToLower(filepath.Ext(item.Motion.Path))
		motionDst, err := fileutil.UniquePath(albumDir, motionName)
		if err != nil {
			return Receipt{}, multierr.Append(fmt.Errorf("choose motion destination: %w", err), removeAll(copied))
		}
		if _, err := fileutil.CopyVerified(item.Motion.Path, motionDst); err != nil {
			return Receipt{}, multierr.Append(fmt.Errorf("copy motion %s: %w", item.Motion.RelPath, err), removeAll(copied))
		}
		copied = append(copied, motionDst)
	}

	if item.Record.CapturedAt != nil {
		for _, path := range copied {
			if err := fileutil.SetTimes(path, *item.Record.CapturedAt); err != nil {
				l.logger.Debug("set file times failed", logging.String("path", path), logging.Error(err))
			}
		}
	}

	rel, err := filepath.Rel(l.root, dst)
	if err != nil {
		rel = dst
	}
	l.logger.Debug("asset copied",
		logging.String(logging.FieldAssetID, item.AssetID),
		logging.String("destination", rel),
		logging.String("sha256", digest),
	)
	return Receipt{Handle: filepath.ToSlash(rel)}, nil
}

// Close implements Importer.
func (l *Library) Close() error { return nil }

func removeAll(paths []string) error {
	var err error
	for _, path := range paths {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	return err
}
