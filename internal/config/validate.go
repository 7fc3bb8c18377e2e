package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if err := c.validateMemory(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMemory() error {
	m := c.Memory
	if !(m.MediumThreshold < m.HighThreshold && m.HighThreshold < m.CriticalThreshold) {
		return errors.New("memory thresholds must be strictly ascending: medium_threshold < high_threshold < critical_threshold")
	}
	return nil
}

func (c *Config) validateBatch() error {
	b := c.Batch
	if b.Floor > b.Max {
		return errors.New("batch.floor must not exceed batch.max")
	}
	if b.Initial < b.Floor || b.Initial > b.Max {
		return errors.New("batch.initial must be between batch.floor and batch.max")
	}
	return nil
}

func (c *Config) validateScan() error {
	for _, pattern := range c.Scan.NonAlbumPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("scan.non_album_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Import.Mode == ImportModeLibrary && strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set when import.mode is library")
	}
	return nil
}

func formatValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := errs[0]
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	return fmt.Errorf("%s %s", key, validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be < %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
