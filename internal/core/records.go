// Package core defines the domain types shared across the pipeline:
// raw input records, normalized records, KPI view rows and the
// user-facing error kind.
package core

import "github.com/shopspring/decimal"

// Canonical field names every input row is mapped to, regardless of the
// original header text in the export.
const (
	FieldDate        = "date"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldSource      = "source"
	FieldSourceFile  = "source_file"
)

// RequiredFields must be present after alias mapping for a batch to be
// transformable. Description, category and source are optional.
var RequiredFields = []string{FieldDate, FieldAmount}

// OptionalFields default to empty strings when the exports do not carry them.
var OptionalFields = []string{FieldDescription, FieldCategory, FieldSource}

// RawRecord is one row of a combined export, untouched apart from header
// mapping. Any field may be blank or malformed.
type RawRecord struct {
	Date        string
	Amount      string
	Description string
	Category    string
	Source      string
	SourceFile  string
}

// RawBatch is the combined table handed from ingestion to the transform
// step. Columns records which canonical fields were actually mapped from
// at least one source file, so the transform can refuse a table that
// lacks date or amount.
type RawBatch struct {
	Rows    []RawRecord
	Columns map[string]bool
}

// Record is a normalized record derived from a RawRecord. The original
// date and amount text is retained so issue rows stay auditable.
type Record struct {
	DateRaw   string
	AmountRaw string

	DateISO     string          // YYYY-MM-DD, or empty
	Amount      decimal.Decimal // canonical signed amount, unrounded
	AmountOK    bool            // false when blank or unparseable
	Description string
	Category    string
	Source      string
	SourceFile  string

	IssueDateInvalid   bool
	IssueAmountInvalid bool

	TxnKey string
}

// HasIssue reports whether the record belongs in the issues bucket.
func (r Record) HasIssue() bool {
	return r.IssueDateInvalid || r.IssueAmountInvalid
}
