package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"finpipe/internal/core"
)

func TestLoadColumnMapMissingFile(t *testing.T) {
	_, err := LoadColumnMap(filepath.Join(t.TempDir(), "column_map.yaml"))
	if err == nil || !core.IsUserError(err) {
		t.Fatalf("expected user-facing error, got %v", err)
	}
}

func TestLoadColumnMapInvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "column_map.yaml")
	if err := os.WriteFile(path, []byte("date: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadColumnMap(path)
	if err == nil || !core.IsUserError(err) {
		t.Fatalf("expected user-facing error, got %v", err)
	}
}

func TestLoadColumnMapYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "column_map.yaml")
	content := "date:\n  - Transaction Date\n  - posted date\namount:\n  - Net Revenue\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cm, err := LoadColumnMap(path)
	if err != nil {
		t.Fatalf("LoadColumnMap: %v", err)
	}
	got := cm.aliasesFor("date")
	if len(got) != 2 || got[0] != "transaction_date" || got[1] != "posted_date" {
		t.Errorf("date aliases = %v", got)
	}
}

// JSON column maps from the older tooling still load: YAML is a superset.
func TestLoadColumnMapJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "column_map.json")
	content := `{"date": ["Transaction Date"], "amount": ["net revenue", "amount"]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cm, err := LoadColumnMap(path)
	if err != nil {
		t.Fatalf("LoadColumnMap: %v", err)
	}
	if got := cm.aliasesFor("amount"); len(got) != 2 || got[0] != "net_revenue" {
		t.Errorf("amount aliases = %v", got)
	}
}

func TestAliasesForDefaultsToCanonical(t *testing.T) {
	cm := ColumnMap{}
	if got := cm.aliasesFor("category"); len(got) != 1 || got[0] != "category" {
		t.Errorf("aliasesFor(category) = %v, want [category]", got)
	}
}
