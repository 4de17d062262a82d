package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"finpipe/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "finance.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func cleanRecord(dateISO, desc, amount, category, sourceFile string) core.Record {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return core.Record{
		DateISO:     dateISO,
		Description: desc,
		Amount:      d,
		AmountOK:    true,
		Category:    category,
		SourceFile:  sourceFile,
		TxnKey:      dateISO + "|" + desc + "|" + d.StringFixed(2),
	}
}

func TestLoadRunAndSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clean := []core.Record{
		cleanRecord("2024-01-02", "coffee", "4.50", "Food", "jan.csv"),
		cleanRecord("2024-01-03", "rent", "-1200.00", "Housing", "jan.csv"),
	}
	issues := []core.Record{{
		DateRaw: "bad-date", Description: "Lunch", AmountRaw: "12.00",
		Amount: decimal.RequireFromString("12.00"), AmountOK: true,
		IssueDateInvalid: true, SourceFile: "jan.csv",
	}}

	meta, err := repo.LoadRun(ctx, clean, issues, "20240104_120000", "2024-01-04T12:00:00Z", ModeReplace)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if meta.RowsLoadedClean != 2 || meta.RowsLoadedIssues != 1 {
		t.Errorf("load meta = %d clean / %d issues, want 2 / 1", meta.RowsLoadedClean, meta.RowsLoadedIssues)
	}

	res, err := repo.Query(ctx, meta.RunID)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	s := res.Summary
	if s.RowCount != 2 {
		t.Errorf("row count = %d, want 2", s.RowCount)
	}
	if s.TotalIncome != 4.50 {
		t.Errorf("total income = %v, want 4.50", s.TotalIncome)
	}
	if s.TotalExpenses != 1200.00 {
		t.Errorf("total expenses = %v, want 1200.00", s.TotalExpenses)
	}
	if s.NetTotal != -1195.50 {
		t.Errorf("net total = %v, want -1195.50", s.NetTotal)
	}
}

func TestQueryMonthlyTrends(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clean := []core.Record{
		cleanRecord("2024-01-02", "a", "10.00", "", "x.csv"),
		cleanRecord("2024-01-20", "b", "-4.00", "", "x.csv"),
		cleanRecord("2024-03-01", "c", "7.00", "", "x.csv"),
		cleanRecord("2024-02-10", "d", "1.00", "", "x.csv"),
	}
	if _, err := repo.LoadRun(ctx, clean, nil, "r1", "2024-03-02T00:00:00Z", ModeReplace); err != nil {
		t.Fatalf("LoadRun: %v", err)
	}

	res, err := repo.Query(ctx, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	months := res.MonthlyTrends
	if len(months) != 3 {
		t.Fatalf("months = %d, want 3", len(months))
	}
	want := []string{"2024-01", "2024-02", "2024-03"}
	var totalRows int64
	for i, m := range months {
		if m.YearMonth != want[i] {
			t.Errorf("month[%d] = %q, want %q (ascending order)", i, m.YearMonth, want[i])
		}
		totalRows += m.RowCount
	}
	if totalRows != res.Summary.RowCount {
		t.Errorf("monthly row counts sum to %d, want %d", totalRows, res.Summary.RowCount)
	}
	if jan := months[0]; jan.NetTotal != 6.00 || jan.Income != 10.00 || jan.Expenses != 4.00 {
		t.Errorf("january trend = %+v", jan)
	}
}

func TestQueryCategorySummaryUncategorized(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clean := []core.Record{
		cleanRecord("2024-01-02", "a", "100.00", "Food", "x.csv"),
		cleanRecord("2024-01-03", "b", "5.00", "", "x.csv"),
		cleanRecord("2024-01-04", "c", "5.00", "   ", "x.csv"),
		cleanRecord("2024-01-05", "d", "-500.00", "Housing", "x.csv"),
	}
	if _, err := repo.LoadRun(ctx, clean, nil, "r1", "2024-01-06T00:00:00Z", ModeReplace); err != nil {
		t.Fatalf("LoadRun: %v", err)
	}

	res, err := repo.Query(ctx, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	cats := res.CategorySummary
	if len(cats) != 3 {
		t.Fatalf("categories = %d, want 3 (blank and whitespace share one bucket): %+v", len(cats), cats)
	}
	// Ordered by descending absolute net total.
	if cats[0].Category != "Housing" || cats[1].Category != "Food" {
		t.Errorf("category order = %q, %q, %q", cats[0].Category, cats[1].Category, cats[2].Category)
	}
	unc := cats[2]
	if unc.Category != core.Uncategorized {
		t.Fatalf("third bucket = %q, want %q", unc.Category, core.Uncategorized)
	}
	if unc.RowCount != 2 || unc.NetTotal != 10.00 {
		t.Errorf("uncategorized bucket = %+v, want 2 rows / 10.00 net", unc)
	}
}

func TestQuerySourceFileSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clean := []core.Record{
		cleanRecord("2024-01-02", "a", "1.00", "", "big.csv"),
		cleanRecord("2024-01-03", "b", "2.00", "", "big.csv"),
		cleanRecord("2024-01-04", "c", "3.00", "", "small.csv"),
	}
	if _, err := repo.LoadRun(ctx, clean, nil, "r1", "2024-01-05T00:00:00Z", ModeReplace); err != nil {
		t.Fatalf("LoadRun: %v", err)
	}

	res, err := repo.Query(ctx, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	files := res.SourceFileSummary
	if len(files) != 2 {
		t.Fatalf("source files = %d, want 2", len(files))
	}
	if files[0].SourceFile != "big.csv" || files[0].RowCount != 2 {
		t.Errorf("first source file = %+v, want big.csv with 2 rows", files[0])
	}
}

func TestLoadRunReplaceAndAppend(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := []core.Record{cleanRecord("2024-01-02", "a", "1.00", "", "x.csv")}
	if _, err := repo.LoadRun(ctx, first, nil, "r1", "2024-01-02T00:00:00Z", ModeReplace); err != nil {
		t.Fatalf("LoadRun r1: %v", err)
	}

	t.Run("replace clears previous rows", func(t *testing.T) {
		second := []core.Record{cleanRecord("2024-02-02", "b", "2.00", "", "y.csv")}
		if _, err := repo.LoadRun(ctx, second, nil, "r2", "2024-02-02T00:00:00Z", ModeReplace); err != nil {
			t.Fatalf("LoadRun r2: %v", err)
		}
		res, err := repo.Query(ctx, "")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if res.Summary.RowCount != 1 {
			t.Errorf("row count after replace = %d, want 1", res.Summary.RowCount)
		}
	})

	t.Run("append keeps previous rows", func(t *testing.T) {
		third := []core.Record{cleanRecord("2024-03-02", "c", "3.00", "", "z.csv")}
		if _, err := repo.LoadRun(ctx, third, nil, "r3", "2024-03-02T00:00:00Z", ModeAppend); err != nil {
			t.Fatalf("LoadRun r3: %v", err)
		}
		res, err := repo.Query(ctx, "")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if res.Summary.RowCount != 2 {
			t.Errorf("row count after append = %d, want 2", res.Summary.RowCount)
		}

		scoped, err := repo.Query(ctx, "r3")
		if err != nil {
			t.Fatalf("Query scoped: %v", err)
		}
		if scoped.Summary.RowCount != 1 {
			t.Errorf("run-scoped row count = %d, want 1", scoped.Summary.RowCount)
		}
	})

	t.Run("run log and latest run", func(t *testing.T) {
		latest, err := repo.LatestRunID(ctx)
		if err != nil {
			t.Fatalf("LatestRunID: %v", err)
		}
		if latest != "r3" {
			t.Errorf("latest run = %q, want r3", latest)
		}
		runs, err := repo.Runs(ctx)
		if err != nil {
			t.Fatalf("Runs: %v", err)
		}
		if len(runs) != 3 || runs[0].RunID != "r3" {
			t.Errorf("runs = %+v", runs)
		}
	})

	t.Run("run info lookup", func(t *testing.T) {
		ri, err := repo.RunInfo(ctx, "r2")
		if err != nil {
			t.Fatalf("RunInfo: %v", err)
		}
		if ri.LoadedAtUTC != "2024-02-02T00:00:00Z" || ri.RowsLoadedClean != 1 {
			t.Errorf("run info = %+v", ri)
		}
		if _, err := repo.RunInfo(ctx, "nope"); !errors.Is(err, ErrNotLoaded) {
			t.Errorf("RunInfo(unknown) error = %v, want ErrNotLoaded", err)
		}
	})
}

func TestLoadRunInvalidMode(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadRun(context.Background(), nil, nil, "r1", "2024-01-02T00:00:00Z", LoadMode("merge"))
	if err == nil {
		t.Fatal("expected error for invalid load mode")
	}
}

func TestOpenRepositoryMissingFile(t *testing.T) {
	_, err := OpenRepository(filepath.Join(t.TempDir(), "finance.db"))
	if err == nil || !core.IsUserError(err) {
		t.Fatalf("expected user-facing error, got %v", err)
	}
}

func TestQueryNotLoaded(t *testing.T) {
	// An empty file is a valid SQLite database with no tables at all.
	path := filepath.Join(t.TempDir(), "finance.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}
	defer repo.Close()

	_, err = repo.Query(context.Background(), "")
	if !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Query on unloaded database = %v, want ErrNotLoaded", err)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clean := []core.Record{cleanRecord("2024-01-02", "coffee", "4.50", "Food", "jan.csv")}
	issues := []core.Record{{
		DateRaw: "junk", AmountRaw: "1.00",
		Amount: decimal.RequireFromString("1.00"), AmountOK: true,
		IssueDateInvalid: true, SourceFile: "jan.csv",
	}}
	if _, err := repo.LoadRun(ctx, clean, issues, "r1", "2024-01-03T00:00:00Z", ModeReplace); err != nil {
		t.Fatalf("LoadRun: %v", err)
	}

	gotClean, err := repo.CleanRecords(ctx, "r1")
	if err != nil {
		t.Fatalf("CleanRecords: %v", err)
	}
	if len(gotClean) != 1 || gotClean[0].Description != "coffee" || !gotClean[0].AmountOK {
		t.Errorf("clean records = %+v", gotClean)
	}

	gotIssues, err := repo.IssueRecords(ctx, "r1")
	if err != nil {
		t.Fatalf("IssueRecords: %v", err)
	}
	if len(gotIssues) != 1 || !gotIssues[0].IssueDateInvalid || gotIssues[0].DateRaw != "junk" {
		t.Errorf("issue records = %+v", gotIssues)
	}
}
