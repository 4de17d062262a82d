// Package services wires the pipeline stages together: ingest,
// transform, load, query, report and the optional run notification.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finpipe/internal/amqp"
	"finpipe/internal/config"
	"finpipe/internal/core"
	"finpipe/internal/ingest"
	"finpipe/internal/report"
	"finpipe/internal/storage"
	"finpipe/internal/transform"
)

// Pipeline runs one batch end to end. The clock and run-id generator are
// injectable so runs are deterministic under test.
type Pipeline struct {
	cfg      *config.Config
	repo     *storage.Repository
	reporter report.Writer
	notifier *amqp.Client // nil disables notifications

	now      func() time.Time
	newRunID func(time.Time) string
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	ReportPath string
	Ingest     ingest.Meta
	Transform  transform.Meta
	Load       storage.LoadMeta
}

// NewPipeline builds a pipeline with the default clock and run-id
// generator.
func NewPipeline(cfg *config.Config, repo *storage.Repository, reporter report.Writer, notifier *amqp.Client) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		repo:     repo,
		reporter: reporter,
		notifier: notifier,
		now:      time.Now,
		newRunID: DefaultRunID,
	}
}

// WithClock overrides the clock and run-id generator.
func (p *Pipeline) WithClock(now func() time.Time, newRunID func(time.Time) string) *Pipeline {
	p.now = now
	p.newRunID = newRunID
	return p
}

// DefaultRunID formats a stable, readable run id from the load time.
func DefaultRunID(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// Run executes one full pipeline pass. User-facing precondition errors
// come back as core.UserError; everything else is an internal failure.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	slog.InfoContext(ctx, "Pipeline starting",
		"raw_dir", p.cfg.RawDir,
		"column_map", p.cfg.ColumnMapPath,
		"database", p.cfg.SQLiteDBPath,
		"load_mode", p.cfg.LoadMode)

	// 1) Ingest
	cm, err := ingest.LoadColumnMap(p.cfg.ColumnMapPath)
	if err != nil {
		return Result{}, err
	}
	batch, imeta, err := ingest.Folder(ctx, p.cfg.RawDir, cm)
	if err != nil {
		return Result{}, err
	}
	slog.InfoContext(ctx, "Ingest complete",
		"files_read", imeta.FilesRead,
		"rows_read", imeta.RowsRead,
		"mapped_columns", imeta.MappedColumns)

	// 2) Transform
	tres, err := transform.Run(batch)
	if err != nil {
		return Result{}, err
	}
	slog.InfoContext(ctx, "Transform complete",
		"clean_rows", tres.Meta.CleanRows,
		"issue_rows", tres.Meta.IssueRows,
		"duplicates_removed", tres.Meta.DuplicatesRemoved)

	// 3) Load
	loadTime := p.now().UTC()
	runID := p.newRunID(loadTime)
	loadedAt := loadTime.Truncate(time.Second).Format("2006-01-02T15:04:05Z")

	lmeta, err := p.repo.LoadRun(ctx, tres.Clean, tres.Issues, runID, loadedAt, storage.LoadMode(p.cfg.LoadMode))
	if err != nil {
		return Result{}, fmt.Errorf("load run: %w", err)
	}

	// 4) Query
	results, err := p.repo.Query(ctx, runID)
	if err != nil {
		return Result{}, fmt.Errorf("compute KPI views: %w", err)
	}
	slog.InfoContext(ctx, "KPI views ready",
		"row_count", results.Summary.RowCount,
		"net_total", results.Summary.NetTotal)

	// 5) Report
	tables := report.BuildTables(results, tres.Clean, tres.Issues, runID, loadedAt)
	reportPath, err := p.reporter.Write(ctx, tables)
	if err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}
	slog.InfoContext(ctx, "Report written", "location", reportPath)

	// 6) Notify (best effort; a dead broker never fails the run)
	if p.notifier != nil {
		msg := amqp.NewRunCompletedMessage(runID, loadedAt,
			tres.Meta.CleanRows, tres.Meta.IssueRows, tres.Meta.DuplicatesRemoved, reportPath)
		if err := p.notifier.PublishRunCompleted(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish run notification",
				"run_id", runID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Pipeline complete", "run_id", runID)
	return Result{
		RunID:      runID,
		ReportPath: reportPath,
		Ingest:     imeta,
		Transform:  tres.Meta,
		Load:       lmeta,
	}, nil
}

// RenderError formats an error for the operator: user-facing errors keep
// their remediation text, anything else gets a generic readable wrapper.
func RenderError(err error) string {
	if core.IsUserError(err) {
		return "Input Error:\n" + err.Error()
	}
	return "Unexpected Error: " + err.Error()
}
