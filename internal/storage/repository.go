// Package storage persists pipeline runs to SQLite and computes the KPI
// views with SQL over the loaded clean rows.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finpipe/internal/core"

	_ "modernc.org/sqlite"
)

// LoadMode controls what happens to previously loaded data.
type LoadMode string

const (
	// ModeReplace clears both tables before loading. Default.
	ModeReplace LoadMode = "replace"
	// ModeAppend keeps historical rows. Duplicate detection still only
	// covers the single ingest batch, not appended history.
	ModeAppend LoadMode = "append"
)

// LoadMeta describes one completed load.
type LoadMeta struct {
	DBPath           string
	RunID            string
	LoadedAtUTC      string
	RowsLoadedClean  int
	RowsLoadedIssues int
}

// Repository wraps the SQLite database holding transactions, data issues
// and the run log.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository opens (creating if needed) the database at dbPath and
// brings the schema up to date.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, path: dbPath}, nil
}

// OpenRepository opens an existing database without touching the schema.
// Used by the report tool, which must fail loudly when the pipeline has
// never loaded anything rather than conjure empty tables.
func OpenRepository(dbPath string) (*Repository, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, core.NewUserError(fmt.Sprintf(
			"Database not found: %s\nRun the pipeline first to ingest and load data.", dbPath))
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, path: dbPath}, nil
}

func open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	return db, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadRun writes the clean and issue sets plus the run-log row in a
// single transaction: the database either reflects the whole run or none
// of it.
func (r *Repository) LoadRun(ctx context.Context, clean, issues []core.Record, runID, loadedAtUTC string, mode LoadMode) (LoadMeta, error) {
	if mode != ModeReplace && mode != ModeAppend {
		return LoadMeta{}, fmt.Errorf("load mode must be %q or %q, got %q", ModeReplace, ModeAppend, mode)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return LoadMeta{}, fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	if mode == ModeReplace {
		for _, table := range []string{"transactions", "data_issues"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return LoadMeta{}, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	if err := insertClean(ctx, tx, clean, runID, loadedAtUTC); err != nil {
		return LoadMeta{}, err
	}
	if err := insertIssues(ctx, tx, issues, runID, loadedAtUTC); err != nil {
		return LoadMeta{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_runs (run_id, loaded_at_utc, rows_loaded_clean, rows_loaded_issues)
		 VALUES (?, ?, ?, ?)`,
		runID, loadedAtUTC, len(clean), len(issues))
	if err != nil {
		return LoadMeta{}, fmt.Errorf("log pipeline run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return LoadMeta{}, fmt.Errorf("commit load transaction: %w", err)
	}

	slog.InfoContext(ctx, "Run loaded",
		"run_id", runID,
		"clean_rows", len(clean),
		"issue_rows", len(issues),
		"mode", string(mode))

	return LoadMeta{
		DBPath:           r.path,
		RunID:            runID,
		LoadedAtUTC:      loadedAtUTC,
		RowsLoadedClean:  len(clean),
		RowsLoadedIssues: len(issues),
	}, nil
}

func insertClean(ctx context.Context, tx *sql.Tx, clean []core.Record, runID, loadedAtUTC string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (date_iso, description, amount_num, category, source, source_file, txn_key, run_id, loaded_at_utc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transactions insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range clean {
		if _, err := stmt.ExecContext(ctx,
			rec.DateISO, rec.Description, amountValue(rec), rec.Category,
			rec.Source, rec.SourceFile, rec.TxnKey, runID, loadedAtUTC); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}
	return nil
}

func insertIssues(ctx context.Context, tx *sql.Tx, issues []core.Record, runID, loadedAtUTC string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO data_issues (date_raw, date_iso, description, amount_raw, amount_num, category, source, source_file, txn_key, issue_date_invalid, issue_amount_invalid, run_id, loaded_at_utc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare data_issues insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range issues {
		if _, err := stmt.ExecContext(ctx,
			rec.DateRaw, rec.DateISO, rec.Description, rec.AmountRaw, amountValue(rec),
			rec.Category, rec.Source, rec.SourceFile, rec.TxnKey,
			boolInt(rec.IssueDateInvalid), boolInt(rec.IssueAmountInvalid),
			runID, loadedAtUTC); err != nil {
			return fmt.Errorf("insert data issue: %w", err)
		}
	}
	return nil
}

// amountValue maps the canonical decimal onto the REAL column, NULL when
// the amount was blank or unparseable.
func amountValue(rec core.Record) any {
	if !rec.AmountOK {
		return nil
	}
	f, _ := rec.Amount.Float64()
	return f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
