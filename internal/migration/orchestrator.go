package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"photoport/internal/albums"
	"photoport/internal/batch"
	"photoport/internal/config"
	"photoport/internal/importer"
	"photoport/internal/issue"
	"photoport/internal/logging"
	"photoport/internal/media"
	"photoport/internal/memory"
	"photoport/internal/metadata"
	"photoport/internal/metrics"
	"photoport/internal/pairing"
	"photoport/internal/services"
	"photoport/internal/sidecar"
	"photoport/internal/state"
)

// Journal persists run progress for resumption. *state.Store satisfies it.
type Journal interface {
	BeginRun(ctx context.Context, root, mode, resumedFrom string) (*state.Run, error)
	RecordImports(ctx context.Context, runID string, imports []state.Import) error
	FinishRun(ctx context.Context, runID string, status state.RunStatus, counters state.Counters, summaryJSON string) error
	LatestRun(ctx context.Context, root string) (*state.Run, error)
	ImportedIDs(ctx context.Context, runID string) (map[string]string, error)
}

// Dependencies are the injectable collaborators. Nil fields fall back to
// the configured defaults; Journal and Metrics are optional.
type Dependencies struct {
	Logger    *slog.Logger
	Extractor media.Extractor
	Sampler   memory.Sampler
	Importer  importer.Importer
	Journal   Journal
	Metrics   *metrics.Recorder
	// Wait replaces the inter-batch pause timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// Options controls a single run.
type Options struct {
	// Resume skips assets imported by the latest unfinished run of the
	// same root. Requires a Journal.
	Resume bool
	// Cancel is polled at enumeration steps and batch boundaries.
	Cancel *Flag
	// Progress receives a snapshot after every batch, on the run goroutine.
	Progress func(Progress)
}

// Progress is a per-batch snapshot.
type Progress struct {
	Batch     int
	BatchSize int
	Level     memory.Level
	Processed int
	Total     int
}

// Orchestrator runs migrations. It holds no per-run state and may run
// several archives sequentially.
type Orchestrator struct {
	cfg          *config.Config
	deps         Dependencies
	logger       *slog.Logger
	matcher      *sidecar.Matcher
	reconciler   *metadata.Reconciler
	detector     *pairing.Detector
	nameDetector *pairing.Detector
	albums       *albums.Resolver
	workers      int
}

// New wires an orchestrator from configuration.
func New(cfg *config.Config, deps Dependencies) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "migration", "init", "config is required", nil)
	}
	logger := logging.NewComponentLogger(deps.Logger, "migration")
	if deps.Extractor == nil && cfg.Metadata.ReadEmbedded {
		deps.Extractor = media.NewExtractor(media.Options{FFprobeBinary: cfg.FFprobeBinary(), Logger: deps.Logger})
	}
	if deps.Sampler == nil {
		deps.Sampler = memory.NewRuntimeSampler(cfg.MemoryBudgetBytes())
	}

	pairOpts := pairing.Options{
		LiveVideoExtensions: cfg.Pairing.LiveVideoExtensions,
		MaxMotionDuration:   cfg.MaxMotionDuration(),
		ProximityTolerance:  cfg.ProximityTolerance(),
	}
	nameOnly := pairOpts
	nameOnly.ProximityTolerance = 0
	nameOnly.MaxMotionDuration = 0

	workers := cfg.Workers.Count
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		matcher: sidecar.NewMatcher(sidecar.Options{
			EditedSuffixes:      cfg.Sidecar.EditedSuffixes,
			TruncatedNameLength: cfg.Sidecar.TruncatedNameLength,
		}),
		reconciler: metadata.NewReconciler(metadata.Options{
			ReadEmbedded:      cfg.Metadata.ReadEmbedded,
			FileTimeFallback:  cfg.Metadata.FileTimeFallback,
			NullIslandEpsilon: cfg.Metadata.NullIslandEpsilon,
		}, deps.Extractor, deps.Logger),
		detector:     pairing.NewDetector(pairOpts),
		nameDetector: pairing.NewDetector(nameOnly),
		albums: albums.NewResolver(albums.Options{
			NoiseDirs:        cfg.Scan.NoiseDirs,
			NonAlbumPatterns: cfg.Scan.NonAlbumPatterns,
			Separator:        cfg.Scan.AlbumSeparator,
		}),
		workers: workers,
	}, nil
}

// run is the state of one Run call. Only the goroutine inside
// Scheduler.Run touches it.
type run struct {
	o        *Orchestrator
	logger   *slog.Logger
	summary  Summary
	inv      *inventory
	next     int
	pending  []unit
	imported map[string]string
	albums   map[string]struct{}
	store    importer.Importer
	opts     Options
	sampler  *logging.ProgressSampler
}

// Run migrates the archive at root. The returned error is non-nil only
// when the root cannot be enumerated or the run cannot be set up; the
// Summary is populated in every case.
func (o *Orchestrator) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	started := time.Now()
	summary := Summary{Mode: o.cfg.Import.Mode, StartedAt: started, Issues: issue.Counts{}}
	finishEarly := func(status Status, err error) (Summary, error) {
		summary.Status = status
		summary.FinishedAt = time.Now()
		summary.Elapsed = summary.FinishedAt.Sub(started)
		return summary, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return finishEarly(StatusFailed, services.Wrap(services.ErrEnumeration, "scan", "resolve root", root, err))
	}
	summary.Root = abs

	r := &run{
		o:        o,
		opts:     opts,
		imported: map[string]string{},
		albums:   map[string]struct{}{},
		sampler:  logging.NewProgressSampler(10),
	}
	if err := r.begin(ctx, &summary); err != nil {
		return finishEarly(StatusFailed, err)
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	r.logger = logging.WithContext(ctx, o.logger)

	inv, stopped, err := enumerate(services.WithStage(ctx, "scan"), abs, o.cfg.Scan.SkipHidden, opts.Cancel)
	if err != nil {
		logging.ErrorWithContext(r.logger, "archive enumeration failed", "enumeration_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the archive root exists and is readable"),
			logging.String(logging.FieldImpact, "run aborted"),
		)
		r.summary = summary
		return r.finish(ctx, StatusFailed, err, started)
	}
	r.inv = inv
	summary.Discovered = inv.media
	summary.TotalItems = inv.media
	summary.note(inv.issues...)
	r.o.deps.Metrics.ObserveIssues(inv.issues...)
	r.summary = summary
	if stopped {
		return r.finish(ctx, StatusCancelled, nil, started)
	}
	r.logger.Info("archive enumerated",
		logging.Int("directories", len(inv.dirs)),
		logging.Int("media", inv.media),
		logging.Int("enumeration_issues", len(inv.issues)),
	)

	store, closeStore, err := o.importer()
	if err != nil {
		return r.finish(ctx, StatusFailed, services.Wrap(services.ErrConfiguration, "import", "open importer", o.cfg.Import.Mode, err), started)
	}
	r.store = store

	monitor := memory.NewMonitor(o.deps.Sampler, memory.Thresholds{
		Medium:   o.cfg.Memory.MediumThreshold,
		High:     o.cfg.Memory.HighThreshold,
		Critical: o.cfg.Memory.CriticalThreshold,
	}, o.deps.Logger)
	if interval := o.cfg.SampleInterval(); interval > 0 {
		monitor.Start(ctx, interval)
	}
	restoreLimit := o.applyMemoryLimit(r.logger)

	scheduler := batch.NewScheduler[unit](batch.Policy{
		Floor:            o.cfg.Batch.Floor,
		Initial:          o.cfg.Batch.Initial,
		Max:              o.cfg.Batch.Max,
		Growth:           o.cfg.Batch.GrowthFactor,
		Pause:            o.cfg.BatchPause(),
		MaxBatchDuration: o.cfg.MaxBatchDuration(),
		Wait:             o.deps.Wait,
	}, &pressure{monitor: monitor, run: r}, o.deps.Logger)

	res, runErr := scheduler.Run(services.WithStage(ctx, "import"), batch.SourceFunc[unit](r.nextUnit), opts.Cancel, r.handle)
	monitor.Stop()
	restoreLimit()

	r.summary.Batches = res.Batches
	r.summary.SmallestBatch = res.Smallest
	r.summary.LargestBatch = res.Largest
	r.summary.PeakMemory = monitor.Peak()
	r.summary.Albums = len(r.albums)

	status := StatusCompleted
	if res.Cancelled {
		status = StatusCancelled
	}
	if runErr != nil {
		status = StatusFailed
	}
	if cerr := closeStore(); cerr != nil {
		runErr = multierr.Append(runErr, cerr)
	}
	return r.finish(ctx, status, runErr, started)
}

// begin registers the run with the journal and loads resume state.
func (r *run) begin(ctx context.Context, summary *Summary) error {
	journal := r.o.deps.Journal
	if journal == nil {
		if r.opts.Resume {
			return services.Wrap(services.ErrConfiguration, "migration", "resume", "resume requires a run journal", nil)
		}
		summary.RunID = uuid.NewString()
		return nil
	}

	var resumedFrom string
	if r.opts.Resume {
		prev, err := journal.LatestRun(ctx, summary.Root)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "migration", "resume", "load latest run", err)
		}
		if prev != nil && !prev.Status.Finished() {
			ids, err := journal.ImportedIDs(ctx, prev.ID)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "migration", "resume", "load imported assets", err)
			}
			r.imported = ids
			resumedFrom = prev.ID
		}
	}
	rec, err := journal.BeginRun(ctx, summary.Root, summary.Mode, resumedFrom)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "migration", "journal", "begin run", err)
	}
	summary.RunID = rec.ID
	summary.ResumedFrom = resumedFrom
	return nil
}

func (r *run) finish(ctx context.Context, status Status, err error, started time.Time) (Summary, error) {
	r.summary.Status = status
	r.summary.FinishedAt = time.Now()
	r.summary.Elapsed = r.summary.FinishedAt.Sub(started)

	if journal := r.o.deps.Journal; journal != nil {
		payload, merr := json.Marshal(r.summary)
		if merr != nil {
			payload = []byte("{}")
		}
		// The journal write must land even when ctx was cancelled.
		if jerr := journal.FinishRun(context.WithoutCancel(ctx), r.summary.RunID, status.journal(), r.summary.Counters(), string(payload)); jerr != nil {
			logging.WarnWithContext(r.logger, "failed to finish run journal", "journal_finish_failed",
				logging.Error(jerr),
				logging.String(logging.FieldErrorHint, "inspect the state directory"),
				logging.String(logging.FieldImpact, "resume may repeat this run"),
			)
		}
	}

	logger := r.logger
	if logger == nil {
		logger = r.o.logger
	}
	logger.Info("migration finished",
		logging.String("status", string(status)),
		logging.Int("processed", r.summary.Processed),
		logging.Int("total", r.summary.TotalItems),
		logging.Int("succeeded", r.summary.Succeeded),
		logging.Int("failed", r.summary.Failed),
		logging.Int("skipped", r.summary.Skipped),
		logging.Int("pairs", r.summary.Pairs),
		logging.Int("albums", r.summary.Albums),
		logging.Int("issues", r.summary.Issues.Total()),
		logging.String("peak_memory", humanize.IBytes(r.summary.PeakMemory)),
		logging.Duration("elapsed", r.summary.Elapsed),
	)
	return r.summary, err
}

// nextUnit is the scheduler source: it resolves directories lazily, in
// discovery order, so batches stream without a whole-archive resolve.
func (r *run) nextUnit(ctx context.Context) (unit, bool, error) {
	for len(r.pending) == 0 {
		if r.next >= len(r.inv.dirs) {
			return unit{}, false, nil
		}
		dir := r.inv.dirs[r.next]
		r.next++
		out, err := r.o.resolveDirectory(ctx, dir)
		if err != nil {
			return unit{}, false, err
		}
		r.summary.TotalItems -= out.absorbed
		r.summary.note(out.issues...)
		r.o.deps.Metrics.ObserveIssues(out.issues...)
		for i := range out.units {
			if _, done := r.imported[out.units[i].item.AssetID]; done {
				out.units[i].skip = true
			}
		}
		r.pending = out.units
	}
	u := r.pending[0]
	r.pending = r.pending[1:]
	return u, true, nil
}

// handle drains one batch into the importer. A context cancelled mid-batch
// stops at the next item; the cancellation flag is only honoured between
// batches.
func (r *run) handle(ctx context.Context, b batch.Batch[unit]) error {
	began := time.Now()
	logger := logging.WithContext(ctx, r.logger)
	imports := make([]state.Import, 0, len(b.Items))
	for _, u := range b.Items {
		if ctx.Err() != nil {
			break
		}
		r.absorb(ctx, logger, u, &imports)
	}
	if journal := r.o.deps.Journal; journal != nil && len(imports) > 0 {
		if err := journal.RecordImports(context.WithoutCancel(ctx), r.summary.RunID, imports); err != nil {
			logging.WarnWithContext(logger, "failed to journal batch", "journal_write_failed",
				logging.Error(err),
				logging.Int("items", len(imports)),
				logging.String(logging.FieldErrorHint, "inspect the state directory"),
				logging.String(logging.FieldImpact, "resume may re-import this batch"),
			)
		}
	}
	r.o.deps.Metrics.ObserveBatch(len(b.Items), time.Since(began))

	percent := 100.0
	if r.summary.TotalItems > 0 {
		percent = float64(r.summary.Processed) * 100 / float64(r.summary.TotalItems)
	}
	if r.sampler.ShouldLog(percent, "import") {
		logger.Info("migration progress",
			logging.Int("processed", r.summary.Processed),
			logging.Int("total", r.summary.TotalItems),
			logging.Int("batch_size", len(b.Items)),
			logging.String("pressure", b.Level.String()),
		)
	}
	if r.opts.Progress != nil {
		r.opts.Progress(Progress{
			Batch:     b.Seq,
			BatchSize: len(b.Items),
			Level:     b.Level,
			Processed: r.summary.Processed,
			Total:     r.summary.TotalItems,
		})
	}
	return nil
}

func (r *run) absorb(ctx context.Context, logger *slog.Logger, u unit, imports *[]state.Import) {
	metricsRec := r.o.deps.Metrics
	r.summary.Processed++
	r.summary.note(u.issues...)
	metricsRec.ObserveIssues(u.issues...)
	if u.item.Motion != nil {
		r.summary.Pairs++
		metricsRec.ObservePair(string(u.signal))
	}

	if u.skip {
		r.summary.Skipped++
		r.markAlbum(u.item.Album)
		metricsRec.ObserveProcessed(metrics.ResultSkipped)
		// Carried into this run's journal so a later resume from this run
		// still skips it.
		*imports = append(*imports, state.Import{
			AssetID: u.item.AssetID,
			RelPath: u.item.Primary.RelPath,
			Handle:  r.imported[u.item.AssetID],
		})
		return
	}

	receipt, err := r.store.Import(services.WithAssetID(ctx, u.item.AssetID), u.item)
	if err != nil {
		r.summary.Failed++
		failure := issue.New(issue.Import, u.item.Primary.RelPath, err.Error())
		r.summary.note(failure)
		metricsRec.ObserveIssues(failure)
		metricsRec.ObserveProcessed(metrics.ResultFailed)
		logging.WarnWithContext(logger, "asset import failed", "import_failed",
			logging.String(logging.FieldAssetID, u.item.AssetID),
			logging.String("path", u.item.Primary.RelPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the destination store"),
			logging.String(logging.FieldImpact, "asset not migrated"),
		)
		return
	}
	r.summary.Succeeded++
	r.markAlbum(u.item.Album)
	metricsRec.ObserveProcessed(metrics.ResultSucceeded)
	*imports = append(*imports, state.Import{
		AssetID: u.item.AssetID,
		RelPath: u.item.Primary.RelPath,
		Handle:  receipt.Handle,
	})
}

func (r *run) markAlbum(label string) {
	if label != "" {
		r.albums[label] = struct{}{}
	}
}

// importer returns the configured store and its closer. An injected
// importer is owned by the caller and is not closed.
func (o *Orchestrator) importer() (importer.Importer, func() error, error) {
	if o.deps.Importer != nil {
		return o.deps.Importer, func() error { return nil }, nil
	}
	store, err := importer.New(o.cfg, o.deps.Logger)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// applyMemoryLimit sets the Go soft memory limit to the configured budget
// and returns a function restoring the previous limit.
func (o *Orchestrator) applyMemoryLimit(logger *slog.Logger) func() {
	budget := o.cfg.MemoryBudgetBytes()
	if !o.cfg.Memory.SetGoMemoryLimit || budget == 0 || budget > 1<<62 {
		return func() {}
	}
	prev := debug.SetMemoryLimit(int64(budget))
	logger.Debug("go memory limit applied", logging.String("limit", humanize.IBytes(budget)))
	return func() { debug.SetMemoryLimit(prev) }
}

// pressure feeds monitor samples to the scheduler and records sampling
// failures on the run summary.
type pressure struct {
	monitor *memory.Monitor
	run     *run
}

func (p *pressure) Sample(ctx context.Context) memory.Sample {
	s := p.monitor.Sample(ctx)
	p.run.o.deps.Metrics.ObserveMemory(s)
	if s.Err != nil {
		failure := issue.New(issue.Sampling, "", fmt.Sprintf("memory sample failed, assuming critical: %v", s.Err))
		p.run.summary.note(failure)
		p.run.o.deps.Metrics.ObserveIssues(failure)
	}
	return s
}
