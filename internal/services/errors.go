package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEnumeration   = errors.New("enumeration error")
	ErrMetadata      = errors.New("metadata error")
	ErrPairing       = errors.New("pairing error")
	ErrSampling      = errors.New("memory sampling error")
	ErrImport        = errors.New("import error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrCancelled     = errors.New("cancelled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrImport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must terminate a migration run. Only a source
// tree that cannot be enumerated, or a configuration that cannot be used,
// stops the run; every other failure is counted and the run continues.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrEnumeration) || errors.Is(err, ErrConfiguration)
}

// IsCancelled reports whether err represents a controlled stop rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "migration failure"
	}
	return strings.Join(parts, ": ")
}
