package state

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"photoport/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Older journals must
// be deleted; they only gate resume.
const schemaVersion = 1

// ErrSchemaMismatch indicates a journal written by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store is the SQLite-backed run journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal under the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.StatePath())
}

// OpenPath opens the journal at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun journals a new running run and returns it.
func (s *Store) BeginRun(ctx context.Context, root, mode, resumedFrom string) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		Root:        root,
		Mode:        mode,
		Status:      RunRunning,
		ResumedFrom: resumedFrom,
		StartedAt:   nowUTC(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, root, mode, status, resumed_from, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Mode, run.Status, nullableString(run.ResumedFrom), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordImport journals one accepted asset.
func (s *Store) RecordImport(ctx context.Context, runID string, imp Import) error {
	return s.RecordImports(ctx, runID, []Import{imp})
}

// RecordImports journals accepted assets in one transaction.
func (s *Store) RecordImports(ctx context.Context, runID string, imports []Import) error {
	if len(imports) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin import tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO imported_assets (run_id, asset_id, rel_path, handle, imported_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare import insert: %w", err)
		}
		defer stmt.Close()

		stamp := formatTime(nowUTC())
		for _, imp := range imports {
			if _, err := stmt.ExecContext(ctx, runID, imp.AssetID, imp.RelPath, nullableString(imp.Handle), stamp); err != nil {
				return fmt.Errorf("record import %s: %w", imp.AssetID, err)
			}
		}
		return tx.Commit()
	})
}

// FinishRun stores the terminal status, counters and summary document.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, counters Counters, summaryJSON string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, total_items = ?, processed = ?, succeeded = ?,
             failed = ?, skipped = ?, pairs = ?, albums = ?, summary_json = ?
         WHERE id = ?`,
		status, formatTime(nowUTC()), counters.Total, counters.Processed, counters.Succeeded,
		counters.Failed, counters.Skipped, counters.Pairs, counters.Albums, nullableString(summaryJSON),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

const runColumns = "id, root, mode, status, resumed_from, started_at, finished_at, total_items, processed, succeeded, failed, skipped, pairs, albums, summary_json"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		resumedFrom sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
		summary     sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &run.Root, &run.Mode, &status, &resumedFrom, &startedRaw, &finishedRaw,
		&run.Counters.Total, &run.Counters.Processed, &run.Counters.Succeeded, &run.Counters.Failed,
		&run.Counters.Skipped, &run.Counters.Pairs, &run.Counters.Albums, &summary,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.ResumedFrom = resumedFrom.String
	run.SummaryJSON = summary.String
	if started, err := parseTime(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTime(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

// GetRun fetches a run by id. A missing run returns nil, nil.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started run for root, or nil.
func (s *Store) LatestRun(ctx context.Context, root string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE root = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, root)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ImportedIDs returns the asset ids journaled for runID, each mapped to its
// destination handle ("" when the importer returned none).
func (s *Store) ImportedIDs(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT asset_id, handle FROM imported_assets WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query imported assets: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var id string
		var handle sql.NullString
		if err := rows.Scan(&id, &handle); err != nil {
			return nil, fmt.Errorf("scan imported asset: %w", err)
		}
		ids[id] = handle.String
	}
	return ids, rows.Err()
}
