package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"photoport/internal/services"
)

// Process exit codes. A fatal run error (unreadable archive root, unusable
// configuration) is distinguished from other command failures.
const (
	exitOK          = 0
	exitFailure     = 1
	exitFatalRun    = 2
	exitInterrupted = 130
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cmd := newRootCommand()
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled), services.IsCancelled(err):
		return exitInterrupted
	case services.IsFatal(err):
		return exitFatalRun
	default:
		return exitFailure
	}
}
