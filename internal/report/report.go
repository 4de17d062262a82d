// Package report renders the KPI views and the loaded data to an output
// the operator can open: a multi-sheet Excel workbook by default, or a
// Google Spreadsheet.
package report

import (
	"context"
	"fmt"

	"finpipe/internal/core"
)

// Table is one renderable sheet: a name, a header row and data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Writer renders a set of tables somewhere and returns a human-readable
// location (file path or spreadsheet URL).
type Writer interface {
	Write(ctx context.Context, tables []Table) (string, error)
}

// BuildTables shapes the query results plus the run's clean and issue
// rows into the six report tables.
func BuildTables(results core.QueryResults, clean, issues []core.Record, runID, loadedAtUTC string) []Table {
	s := results.Summary
	summary := Table{
		Name:   "Summary",
		Header: []string{"row_count", "total_income", "total_expenses", "net_total"},
		Rows:   [][]any{{s.RowCount, s.TotalIncome, s.TotalExpenses, s.NetTotal}},
	}

	monthly := Table{
		Name:   "Monthly_Trends",
		Header: []string{"year_month", "net_total", "income", "expenses", "row_count"},
	}
	for _, m := range results.MonthlyTrends {
		monthly.Rows = append(monthly.Rows, []any{m.YearMonth, m.NetTotal, m.Income, m.Expenses, m.RowCount})
	}

	categories := Table{
		Name:   "Category_Summary",
		Header: []string{"category", "net_total", "row_count"},
	}
	for _, c := range results.CategorySummary {
		categories.Rows = append(categories.Rows, []any{c.Category, c.NetTotal, c.RowCount})
	}

	sources := Table{
		Name:   "Source_File_Summary",
		Header: []string{"source_file", "net_total", "row_count"},
	}
	for _, sf := range results.SourceFileSummary {
		sources.Rows = append(sources.Rows, []any{sf.SourceFile, sf.NetTotal, sf.RowCount})
	}

	cleanTable := Table{
		Name: "Clean_Data",
		Header: []string{"date_iso", "description", "amount_num", "category",
			"source", "source_file", "txn_key", "run_id", "loaded_at_utc"},
	}
	for _, rec := range clean {
		cleanTable.Rows = append(cleanTable.Rows, []any{
			rec.DateISO, rec.Description, amountCell(rec), rec.Category,
			rec.Source, rec.SourceFile, rec.TxnKey, runID, loadedAtUTC,
		})
	}

	issueTable := Table{
		Name: "Data_Issues",
		Header: []string{"date", "date_iso", "description", "amount", "amount_num",
			"category", "source", "source_file", "txn_key",
			"issue_date_invalid", "issue_amount_invalid", "run_id", "loaded_at_utc"},
	}
	for _, rec := range issues {
		issueTable.Rows = append(issueTable.Rows, []any{
			rec.DateRaw, rec.DateISO, rec.Description, rec.AmountRaw, amountCell(rec),
			rec.Category, rec.Source, rec.SourceFile, rec.TxnKey,
			rec.IssueDateInvalid, rec.IssueAmountInvalid, runID, loadedAtUTC,
		})
	}

	return []Table{summary, monthly, categories, sources, cleanTable, issueTable}
}

func amountCell(rec core.Record) any {
	if !rec.AmountOK {
		return nil
	}
	f, _ := rec.Amount.Float64()
	return f
}

// safeSheetName caps names at the spreadsheet limit of 31 characters.
func safeSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
