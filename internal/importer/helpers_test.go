package importer

import (
	"log/slog"

	"photoport/internal/logging"
)

func newTestLogger() *slog.Logger { return logging.NewNop() }
