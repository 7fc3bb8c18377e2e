package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"photoport/internal/config"
	"photoport/internal/logging"
	"photoport/internal/metrics"
	"photoport/internal/migration"
	"photoport/internal/notifications"
	"photoport/internal/preflight"
	"photoport/internal/state"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var resume bool
	var jsonOutput bool
	var workers int
	var mode string

	cmd := &cobra.Command{
		Use:   "migrate <archive-root>",
		Short: "Migrate a takeout archive into the configured destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cfg, workers, mode); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if failed := blockingFailures(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
			}
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
				Dir:     cfg.Paths.LogDir,
				Pattern: "photoport-*.log",
				Exclude: []string{logging.CurrentLogPath(cfg.Paths.LogDir, time.Now())},
			})

			lock, err := state.Lock(cfg.Paths.StateDir)
			if err != nil {
				return err
			}
			defer lock.Unlock() //nolint:errcheck

			store, err := state.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			runLogPath := filepath.Join(cfg.Paths.LogDir, "runs", fmt.Sprintf("photoport-run-%s.log", time.Now().Format("20060102-150405")))
			runLogger, closer, err := logging.NewRunLogger(logger, runLogPath)
			if err != nil {
				return err
			}
			defer closer.Close()

			var registry *prometheus.Registry
			if cfg.Metrics.TextfilePath != "" {
				registry = prometheus.NewRegistry()
				registry.MustRegister(collectors.NewGoCollector())
			}
			recorder := metrics.New(registerer(registry))

			orch, err := migration.New(cfg, migration.Dependencies{
				Logger:  runLogger,
				Journal: store,
				Metrics: recorder,
			})
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			flag := &migration.Flag{}
			stop := watchInterrupts(runCtx, flag, cancel, cmd.ErrOrStderr())
			summary, runErr := orch.Run(runCtx, args[0], migration.Options{Resume: resume, Cancel: flag})
			stop()

			if registry != nil {
				if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath, registry); err != nil {
					logging.WarnWithContext(logger, "metrics export failed", "metrics_export_failed",
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
						logging.String(logging.FieldImpact, "textfile metrics not updated"),
					)
				}
			}

			notifyRun(cmd.Context(), logger, notifications.NewService(cfg), summary, runErr)

			if jsonOutput {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Skip assets imported by the last unfinished run of this archive")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	cmd.Flags().IntVar(&workers, "workers", 0, "Reconcile worker count (overrides workers.count)")
	cmd.Flags().StringVar(&mode, "mode", "", "Import mode: dry-run, manifest or library (overrides import.mode)")
	return cmd
}

func applyRunOverrides(cfg *config.Config, workers int, mode string) error {
	if workers < 0 {
		return errors.New("--workers must be positive")
	}
	if workers > 0 {
		cfg.Workers.Count = workers
	}
	if mode != "" {
		switch mode {
		case config.ImportModeDryRun, config.ImportModeManifest, config.ImportModeLibrary:
			cfg.Import.Mode = mode
		default:
			return fmt.Errorf("--mode must be one of %s, %s, %s", config.ImportModeDryRun, config.ImportModeManifest, config.ImportModeLibrary)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.EnsureDirectories()
}

// blockingFailures keeps failed directory checks; a missing ffprobe or an
// unreadable memory total degrades the run but does not stop it.
func blockingFailures(results []preflight.Result) []preflight.Result {
	var out []preflight.Result
	for _, r := range preflight.Failed(results) {
		switch r.Name {
		case "FFprobe", "Memory budget":
			continue
		}
		out = append(out, r)
	}
	return out
}

// notifyRun reports the outcome to ntfy. Delivery failures are logged and
// never change the command result.
func notifyRun(ctx context.Context, logger *slog.Logger, svc notifications.Service, s migration.Summary, runErr error) {
	if !notifications.Enabled(svc) {
		return
	}
	var err error
	if s.RunID == "" && runErr != nil {
		err = svc.NotifyError(ctx, runErr, "migrate")
	} else {
		err = svc.NotifyRunCompleted(ctx, notifications.RunReport{
			RunID:     s.RunID,
			Root:      s.Root,
			Status:    string(s.Status),
			Succeeded: s.Succeeded,
			Failed:    s.Failed,
			Skipped:   s.Skipped,
			Pairs:     s.Pairs,
			Issues:    s.Issues.Total(),
			Elapsed:   s.Elapsed,
		})
	}
	if err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no push message for this run"),
		)
	}
}

func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

// watchInterrupts sets flag on the first SIGINT/SIGTERM so the run stops at
// the next batch boundary, and cancels the run context on the second.
func watchInterrupts(ctx context.Context, flag *migration.Flag, cancel context.CancelFunc, out io.Writer) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handleInterrupts(ctx, sigs, done, flag, cancel, out)
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
		wg.Wait()
	}
}

func handleInterrupts(ctx context.Context, sigs <-chan os.Signal, done <-chan struct{}, flag *migration.Flag, cancel context.CancelFunc, out io.Writer) {
	for {
		select {
		case <-sigs:
			if !flag.Cancelled() {
				flag.Set()
				fmt.Fprintln(out, "Interrupt received; finishing the current batch (interrupt again to abort now)")
				continue
			}
			fmt.Fprintln(out, "Aborting")
			cancel()
			return
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func printSummary(out io.Writer, s migration.Summary) {
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSectionHeader("Migration", colorize))
	fmt.Fprintln(out, renderStatusLine("Result", summaryKind(s.Status), displayStatus(string(s.Status)), colorize))
	fmt.Fprintln(out, renderFields(summaryFields(s)))
	if s.Issues.Total() > 0 {
		fmt.Fprintln(out, renderSectionHeader("Issues", colorize))
		fmt.Fprintln(out, renderTable([]string{"Category", "Count"}, issueRows(s.Issues), []columnAlignment{alignLeft, alignRight}))
	}
	if s.Status == migration.StatusCancelled {
		fmt.Fprintln(out, "Run cancelled; rerun with --resume to continue where it stopped.")
	}
}
