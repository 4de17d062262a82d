// Package transform builds normalized records from a raw combined batch,
// classifies them into clean and issue buckets and removes duplicate
// clean rows.
package transform

import (
	"fmt"

	"finpipe/internal/core"
	"finpipe/internal/normalize"
)

// Meta carries the row accounting for one transform pass. Two identities
// always hold: IssueRows + clean rows before dedup == RowsIn, and clean
// rows before dedup - DuplicatesRemoved == CleanRows.
type Meta struct {
	RowsIn            int
	CleanRows         int
	IssueRows         int
	DuplicatesRemoved int
}

// Result is the output of one transform pass. Every input row lands in
// exactly one of Clean or Issues; Clean is already deduplicated.
type Result struct {
	Clean  []core.Record
	Issues []core.Record
	Meta   Meta
}

// Run normalizes and classifies the batch.
//
// A record becomes an issue row iff its date or amount had content that
// failed to parse; blank fields are never issues. Clean rows are then
// deduplicated by transaction key, keeping the first occurrence in the
// original combined order.
//
// Returns a user-facing error when the batch lacks the required date or
// amount columns; ingestion normally catches this first.
func Run(batch core.RawBatch) (Result, error) {
	for _, field := range core.RequiredFields {
		if !batch.Columns[field] {
			return Result{}, core.NewUserError(fmt.Sprintf(
				"Missing required canonical column after mapping: %s\n"+
					"Fix the column map so your export's headers map to %q.",
				field, field))
		}
	}

	res := Result{Meta: Meta{RowsIn: len(batch.Rows)}}
	seen := make(map[string]bool, len(batch.Rows))

	for _, raw := range batch.Rows {
		rec := normalizeRecord(raw)

		if rec.HasIssue() {
			res.Issues = append(res.Issues, rec)
			continue
		}
		if seen[rec.TxnKey] {
			res.Meta.DuplicatesRemoved++
			continue
		}
		seen[rec.TxnKey] = true
		res.Clean = append(res.Clean, rec)
	}

	res.Meta.CleanRows = len(res.Clean)
	res.Meta.IssueRows = len(res.Issues)
	return res, nil
}

func normalizeRecord(raw core.RawRecord) core.Record {
	rec := core.Record{
		DateRaw:     raw.Date,
		AmountRaw:   raw.Amount,
		Description: normalize.Text(raw.Description),
		Category:    normalize.Text(raw.Category),
		Source:      normalize.Text(raw.Source),
		SourceFile:  raw.SourceFile,
	}

	rec.DateISO, rec.IssueDateInvalid = normalize.Date(raw.Date)
	rec.Amount, rec.AmountOK, rec.IssueAmountInvalid = normalize.Amount(raw.Amount)

	// Computed for issue rows too, but only meaningful for clean ones.
	rec.TxnKey = normalize.Key(rec.DateISO, rec.Description, rec.Amount, rec.AmountOK)
	return rec
}
