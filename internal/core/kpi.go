package core

// KPISummary holds the overall totals for a run (or the whole table).
// Figures are rounded to two decimal places by the query layer.
type KPISummary struct {
	RowCount      int64
	TotalIncome   float64
	TotalExpenses float64
	NetTotal      float64
}

// MonthlyTrend is one row of the monthly trend view, keyed by the
// YYYY-MM prefix of the canonical date.
type MonthlyTrend struct {
	YearMonth string
	NetTotal  float64
	Income    float64
	Expenses  float64
	RowCount  int64
}

// CategoryTotal is one row of the category summary. Blank categories are
// grouped under the Uncategorized bucket before aggregation.
type CategoryTotal struct {
	Category string
	NetTotal float64
	RowCount int64
}

// Uncategorized is the grouping key used for blank or whitespace-only
// category values.
const Uncategorized = "Uncategorized"

// SourceFileTotal is one row of the source-file summary.
type SourceFileTotal struct {
	SourceFile string
	NetTotal   float64
	RowCount   int64
}

// QueryResults bundles the four KPI views computed over the persisted
// clean rows.
type QueryResults struct {
	Summary           KPISummary
	MonthlyTrends     []MonthlyTrend
	CategorySummary   []CategoryTotal
	SourceFileSummary []SourceFileTotal
}

// RunInfo is one row of the pipeline run log.
type RunInfo struct {
	RunID           string
	LoadedAtUTC     string
	RowsLoadedClean int64
	RowsLoadedIssue int64
}
