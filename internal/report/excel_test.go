package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"finpipe/internal/core"
)

func sampleResults() core.QueryResults {
	return core.QueryResults{
		Summary: core.KPISummary{RowCount: 2, TotalIncome: 4.50, TotalExpenses: 1200.00, NetTotal: -1195.50},
		MonthlyTrends: []core.MonthlyTrend{
			{YearMonth: "2024-01", NetTotal: -1195.50, Income: 4.50, Expenses: 1200.00, RowCount: 2},
		},
		CategorySummary: []core.CategoryTotal{
			{Category: "Housing", NetTotal: -1200.00, RowCount: 1},
			{Category: core.Uncategorized, NetTotal: 4.50, RowCount: 1},
		},
		SourceFileSummary: []core.SourceFileTotal{
			{SourceFile: "jan.csv", NetTotal: -1195.50, RowCount: 2},
		},
	}
}

func sampleRecords() (clean, issues []core.Record) {
	clean = []core.Record{{
		DateISO: "2024-01-02", Description: "coffee",
		Amount: decimal.RequireFromString("4.5"), AmountOK: true,
		SourceFile: "jan.csv", TxnKey: "2024-01-02|coffee|4.50",
	}}
	issues = []core.Record{{
		DateRaw: "bad-date", Description: "Lunch", AmountRaw: "12.00",
		Amount: decimal.RequireFromString("12"), AmountOK: true,
		IssueDateInvalid: true, SourceFile: "jan.csv",
	}}
	return clean, issues
}

func TestBuildTables(t *testing.T) {
	clean, issues := sampleRecords()
	tables := BuildTables(sampleResults(), clean, issues, "r1", "2024-01-04T00:00:00Z")

	if len(tables) != 6 {
		t.Fatalf("tables = %d, want 6", len(tables))
	}
	wantNames := []string{"Summary", "Monthly_Trends", "Category_Summary",
		"Source_File_Summary", "Clean_Data", "Data_Issues"}
	for i, want := range wantNames {
		if tables[i].Name != want {
			t.Errorf("table[%d] = %q, want %q", i, tables[i].Name, want)
		}
	}

	issueRow := tables[5].Rows[0]
	if issueRow[0] != "bad-date" {
		t.Errorf("issue row keeps original date text: got %v", issueRow[0])
	}
	if issueRow[9] != true || issueRow[10] != false {
		t.Errorf("issue flags = %v, %v, want true, false", issueRow[9], issueRow[10])
	}
}

func TestExcelWriter(t *testing.T) {
	clean, issues := sampleRecords()
	tables := BuildTables(sampleResults(), clean, issues, "r1", "2024-01-04T00:00:00Z")

	path := filepath.Join(t.TempDir(), "out", "finance_report.xlsx")
	w := &ExcelWriter{Path: path}
	got, err := w.Write(context.Background(), tables)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != path {
		t.Errorf("output path = %q, want %q", got, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 6 {
		t.Fatalf("sheets = %v, want 6", sheets)
	}
	if sheets[0] != "Summary" {
		t.Errorf("first sheet = %q, want Summary", sheets[0])
	}

	cell, err := f.GetCellValue("Summary", "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if cell != "row_count" {
		t.Errorf("Summary!A1 = %q, want row_count", cell)
	}

	rows, err := f.GetRows("Clean_Data")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Clean_Data rows = %d, want header + 1", len(rows))
	}
}

func TestSafeSheetName(t *testing.T) {
	long := "A_Very_Long_Sheet_Name_That_Exceeds_The_Limit"
	if got := safeSheetName(long); len(got) != 31 {
		t.Errorf("safeSheetName length = %d, want 31", len(got))
	}
	if got := safeSheetName("Summary"); got != "Summary" {
		t.Errorf("safeSheetName(Summary) = %q", got)
	}
}
