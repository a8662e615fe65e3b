// Package history archives finished runs into a local SQLite database.
//
// The archive is a scratch artifact like an exported CSV: it is written
// after a run completes and nothing in the pipeline ever reads it back, so
// deleting the file never affects a later run. It exists so an operator can
// compare batches over time without keeping CSV exports around.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailcheck/internal/model"
)

// Run is one archived batch.
type Run struct {
	ID         string    `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Total      int       `db:"total"`
	Succeeded  int       `db:"succeeded"`
	Failed     int       `db:"failed"`
}

// resultRow mirrors the results table layout.
type resultRow struct {
	RunID        string    `db:"run_id"`
	Position     int       `db:"position"`
	Email        string    `db:"email"`
	AuthType     string    `db:"auth_type"`
	Status       string    `db:"status"`
	InboxCount   int       `db:"inbox_count"`
	SentCount    int       `db:"sent_count"`
	Note         string    `db:"note"`
	ErrorMessage string    `db:"error_message"`
	Timestamp    time.Time `db:"timestamp"`
	ElapsedMS    int64     `db:"elapsed_ms"`
}

// Store is a SQLite-backed run archive.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the archive database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}

	return nil
}

// SaveRun archives a finished batch and its result rows in one transaction.
// Returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, startedAt time.Time, results []model.Result) (string, error) {
	runID := uuid.NewString()

	succeeded := 0
	for _, r := range results {
		if r.IsSuccess() {
			succeeded++
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, total, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, startedAt, time.Now(), len(results), succeeded, len(results)-succeeded,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, r := range results {
		row := resultRow{
			RunID:        runID,
			Position:     r.Position,
			Email:        r.Email,
			AuthType:     string(r.AuthKind),
			Status:       string(r.Status),
			InboxCount:   r.InboxCount,
			SentCount:    r.SentCount,
			Note:         r.Note,
			ErrorMessage: r.ErrorMessage,
			Timestamp:    r.Timestamp,
			ElapsedMS:    r.Elapsed.Milliseconds(),
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO results (run_id, position, email, auth_type, status,
			                      inbox_count, sent_count, note, error_message,
			                      timestamp, elapsed_ms)
			 VALUES (:run_id, :position, :email, :auth_type, :status,
			         :inbox_count, :sent_count, :note, :error_message,
			         :timestamp, :elapsed_ms)`,
			row,
		)
		if err != nil {
			return "", fmt.Errorf("inserting result row %d: %w", r.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing archive: %w", err)
	}
	return runID, nil
}

// RecentRuns returns up to limit archived runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 10
	}

	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		"SELECT * FROM runs ORDER BY finished_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// RunResults returns the archived result rows of a run in input order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]model.Result, error) {
	var rows []resultRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM results WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("loading results for run %s: %w", runID, err)
	}

	results := make([]model.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, model.Result{
			Email:        row.Email,
			AuthKind:     model.AuthKind(row.AuthType),
			Status:       model.ResultStatus(row.Status),
			InboxCount:   row.InboxCount,
			SentCount:    row.SentCount,
			Note:         row.Note,
			ErrorMessage: row.ErrorMessage,
			Timestamp:    row.Timestamp,
			Elapsed:      time.Duration(row.ElapsedMS) * time.Millisecond,
			Position:     row.Position,
		})
	}
	return results, nil
}
