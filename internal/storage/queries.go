package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"finpipe/internal/core"
)

// ErrNotLoaded means the database has no transactions relation: the load
// step never ran against this file. Fatal precondition, not recoverable.
var ErrNotLoaded = errors.New("transactions table not found; run the pipeline load step first")

// Query computes the four KPI views. When runID is non-empty, every view
// is scoped to that run. Views are recomputed on each call, never cached.
func (r *Repository) Query(ctx context.Context, runID string) (core.QueryResults, error) {
	ok, err := r.tableExists(ctx, "transactions")
	if err != nil {
		return core.QueryResults{}, err
	}
	if !ok {
		return core.QueryResults{}, ErrNotLoaded
	}

	var res core.QueryResults
	if res.Summary, err = r.kpiSummary(ctx, runID); err != nil {
		return core.QueryResults{}, err
	}
	if res.MonthlyTrends, err = r.monthlyTrends(ctx, runID); err != nil {
		return core.QueryResults{}, err
	}
	if res.CategorySummary, err = r.categorySummary(ctx, runID); err != nil {
		return core.QueryResults{}, err
	}
	if res.SourceFileSummary, err = r.sourceFileSummary(ctx, runID); err != nil {
		return core.QueryResults{}, err
	}
	return res, nil
}

func (r *Repository) tableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return true, nil
}

// runFilter builds the optional WHERE clause shared by all KPI queries.
func runFilter(runID string) (string, []any) {
	if runID == "" {
		return "", nil
	}
	return "WHERE run_id = ?", []any{runID}
}

func (r *Repository) kpiSummary(ctx context.Context, runID string) (core.KPISummary, error) {
	where, args := runFilter(runID)
	// Positive amounts count as income, negative as expenses. A
	// revenue-only dataset legitimately reports zero expenses.
	q := fmt.Sprintf(`
		SELECT
			COUNT(*),
			ROUND(COALESCE(SUM(CASE WHEN amount_num > 0 THEN amount_num ELSE 0 END), 0), 2),
			ROUND(ABS(COALESCE(SUM(CASE WHEN amount_num < 0 THEN amount_num ELSE 0 END), 0)), 2),
			ROUND(COALESCE(SUM(amount_num), 0), 2)
		FROM transactions %s`, where)

	var s core.KPISummary
	err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&s.RowCount, &s.TotalIncome, &s.TotalExpenses, &s.NetTotal)
	if err != nil {
		return core.KPISummary{}, fmt.Errorf("kpi summary: %w", err)
	}
	return s, nil
}

func (r *Repository) monthlyTrends(ctx context.Context, runID string) ([]core.MonthlyTrend, error) {
	where, args := runFilter(runID)
	// Rows with an empty date_iso get no YYYY-MM key and are excluded.
	q := fmt.Sprintf(`
		SELECT
			SUBSTR(date_iso, 1, 7),
			ROUND(SUM(amount_num), 2),
			ROUND(SUM(CASE WHEN amount_num > 0 THEN amount_num ELSE 0 END), 2),
			ROUND(ABS(SUM(CASE WHEN amount_num < 0 THEN amount_num ELSE 0 END)), 2),
			COUNT(*)
		FROM transactions %s
		%s date_iso <> ''
		GROUP BY SUBSTR(date_iso, 1, 7)
		ORDER BY SUBSTR(date_iso, 1, 7)`, where, whereOrAnd(where))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyTrend
	for rows.Next() {
		var m core.MonthlyTrend
		if err := rows.Scan(&m.YearMonth, &m.NetTotal, &m.Income, &m.Expenses, &m.RowCount); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) categorySummary(ctx context.Context, runID string) ([]core.CategoryTotal, error) {
	where, args := runFilter(runID)
	// The bucket label is the grouping key, not a display alias: blank
	// and whitespace-only categories all land in one Uncategorized row.
	q := fmt.Sprintf(`
		SELECT
			CASE WHEN category IS NULL OR TRIM(category) = '' THEN '%s' ELSE category END,
			ROUND(SUM(amount_num), 2) AS net_total,
			COUNT(*)
		FROM transactions %s
		GROUP BY CASE WHEN category IS NULL OR TRIM(category) = '' THEN '%s' ELSE category END
		ORDER BY ABS(net_total) DESC`, core.Uncategorized, where, core.Uncategorized)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("category summary: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var c core.CategoryTotal
		var net sql.NullFloat64
		if err := rows.Scan(&c.Category, &net, &c.RowCount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		c.NetTotal = net.Float64
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) sourceFileSummary(ctx context.Context, runID string) ([]core.SourceFileTotal, error) {
	where, args := runFilter(runID)
	q := fmt.Sprintf(`
		SELECT
			source_file,
			ROUND(SUM(amount_num), 2),
			COUNT(*)
		FROM transactions %s
		GROUP BY source_file
		ORDER BY COUNT(*) DESC`, where)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("source file summary: %w", err)
	}
	defer rows.Close()

	var out []core.SourceFileTotal
	for rows.Next() {
		var s core.SourceFileTotal
		var net sql.NullFloat64
		if err := rows.Scan(&s.SourceFile, &net, &s.RowCount); err != nil {
			return nil, fmt.Errorf("scan source file total: %w", err)
		}
		s.NetTotal = net.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

func whereOrAnd(where string) string {
	if where == "" {
		return "WHERE"
	}
	return "AND"
}

// LatestRunID returns the most recent run by load timestamp, or
// ErrNotLoaded when the run log is missing or empty.
func (r *Repository) LatestRunID(ctx context.Context) (string, error) {
	ok, err := r.tableExists(ctx, "pipeline_runs")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotLoaded
	}

	var runID string
	err = r.db.QueryRowContext(ctx,
		"SELECT run_id FROM pipeline_runs ORDER BY loaded_at_utc DESC, run_id DESC LIMIT 1").Scan(&runID)
	if err == sql.ErrNoRows {
		return "", ErrNotLoaded
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return runID, nil
}

// RunInfo returns the run-log row for one run, or ErrNotLoaded when the
// run is not in the log.
func (r *Repository) RunInfo(ctx context.Context, runID string) (core.RunInfo, error) {
	var ri core.RunInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, loaded_at_utc, rows_loaded_clean, rows_loaded_issues
		 FROM pipeline_runs WHERE run_id = ?`, runID).
		Scan(&ri.RunID, &ri.LoadedAtUTC, &ri.RowsLoadedClean, &ri.RowsLoadedIssue)
	if err == sql.ErrNoRows {
		return core.RunInfo{}, ErrNotLoaded
	}
	if err != nil {
		return core.RunInfo{}, fmt.Errorf("run info: %w", err)
	}
	return ri, nil
}

// Runs lists the run log, newest first.
func (r *Repository) Runs(ctx context.Context) ([]core.RunInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, loaded_at_utc, rows_loaded_clean, rows_loaded_issues
		 FROM pipeline_runs ORDER BY loaded_at_utc DESC, run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []core.RunInfo
	for rows.Next() {
		var ri core.RunInfo
		if err := rows.Scan(&ri.RunID, &ri.LoadedAtUTC, &ri.RowsLoadedClean, &ri.RowsLoadedIssue); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// CleanRecords reads persisted clean rows back, optionally for one run.
func (r *Repository) CleanRecords(ctx context.Context, runID string) ([]core.Record, error) {
	where, args := runFilter(runID)
	q := fmt.Sprintf(`
		SELECT date_iso, description, amount_num, category, source, source_file, txn_key
		FROM transactions %s`, where)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var rec core.Record
		var amount sql.NullFloat64
		if err := rows.Scan(&rec.DateISO, &rec.Description, &amount,
			&rec.Category, &rec.Source, &rec.SourceFile, &rec.TxnKey); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if amount.Valid {
			rec.Amount = decimal.NewFromFloat(amount.Float64)
			rec.AmountOK = true
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IssueRecords reads persisted issue rows back, optionally for one run.
func (r *Repository) IssueRecords(ctx context.Context, runID string) ([]core.Record, error) {
	where, args := runFilter(runID)
	q := fmt.Sprintf(`
		SELECT date_raw, date_iso, description, amount_raw, amount_num, category, source, source_file, txn_key, issue_date_invalid, issue_amount_invalid
		FROM data_issues %s`, where)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read data issues: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var rec core.Record
		var amount sql.NullFloat64
		var dateInvalid, amountInvalid int
		if err := rows.Scan(&rec.DateRaw, &rec.DateISO, &rec.Description, &rec.AmountRaw,
			&amount, &rec.Category, &rec.Source, &rec.SourceFile, &rec.TxnKey,
			&dateInvalid, &amountInvalid); err != nil {
			return nil, fmt.Errorf("scan data issue: %w", err)
		}
		if amount.Valid {
			rec.Amount = decimal.NewFromFloat(amount.Float64)
			rec.AmountOK = true
		}
		rec.IssueDateInvalid = dateInvalid != 0
		rec.IssueAmountInvalid = amountInvalid != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}
