package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"photoport/internal/logging"
)

// Manifest appends each item as one JSON line.
type Manifest struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
	lines  int
	logger *slog.Logger
}

// NewManifest opens path for appending.
func NewManifest(path string, logger *slog.Logger) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	logger.Info("writing import manifest", logging.String("path", path))
	return &Manifest{path: path, file: file, writer: bufio.NewWriter(file), logger: logger}, nil
}

// Import implements Importer.
func (m *Manifest) Import(ctx context.Context, item Item) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	line, err := json.Marshal(item)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode manifest entry: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writer == nil {
		return Receipt{}, fmt.Errorf("manifest closed")
	}
	if _, err := m.writer.Write(append(line, '\n')); err != nil {
		return Receipt{}, fmt.Errorf("write manifest entry: %w", err)
	}
	m.lines++
	return Receipt{Handle: fmt.Sprintf("manifest:%d", m.lines)}, nil
}

// Close flushes and closes the manifest.
func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writer == nil {
		return nil
	}
	err := multierr.Combine(m.writer.Flush(), m.file.Sync(), m.file.Close())
	m.writer = nil
	return err
}
