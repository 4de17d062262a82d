// Package ingest reads raw CSV export folders into the combined table
// the transform step consumes. It owns the user-facing preconditions:
// input folder present, at least one CSV, alias map readable, and the
// required canonical columns mapped.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"finpipe/internal/core"
)

// Meta describes one ingestion pass, for logging and the run report.
type Meta struct {
	FilesRead     int
	FilePaths     []string
	RowsRead      int
	ColumnsFound  []string
	MappedColumns map[string]string // canonical -> actual header used
}

type fileResult struct {
	rows    []core.RawRecord
	columns []string          // standardized headers found in the file
	mapped  map[string]string // canonical -> actual for this file
}

// Folder reads every *.csv under rawDir (sorted by file name), maps
// source columns to canonical fields and returns the combined batch.
//
// Files are read concurrently but combined in sorted file order, so the
// resulting row order is deterministic: file-sort order, then row order
// within each file.
func Folder(ctx context.Context, rawDir string, cm ColumnMap) (core.RawBatch, Meta, error) {
	if _, err := os.Stat(rawDir); os.IsNotExist(err) {
		return core.RawBatch{}, Meta{}, core.NewUserError(fmt.Sprintf(
			"Input folder not found: %s\nCreate it and place CSV files inside it.", rawDir))
	}

	paths, err := filepath.Glob(filepath.Join(rawDir, "*.csv"))
	if err != nil {
		return core.RawBatch{}, Meta{}, fmt.Errorf("list csv files: %w", err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return core.RawBatch{}, Meta{}, core.NewUserError(fmt.Sprintf(
			"No CSV files found in: %s\nAdd one or more CSV files, then run again.", rawDir))
	}

	results := make([]fileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := readFile(path, cm)
			if err != nil {
				return fmt.Errorf("read %s: %w", filepath.Base(path), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.RawBatch{}, Meta{}, err
	}

	batch := core.RawBatch{Columns: make(map[string]bool)}
	meta := Meta{
		FilesRead:     len(paths),
		FilePaths:     paths,
		MappedColumns: make(map[string]string),
	}
	colsFound := make(map[string]bool)

	for _, res := range results {
		batch.Rows = append(batch.Rows, res.rows...)
		meta.RowsRead += len(res.rows)
		for _, c := range res.columns {
			colsFound[c] = true
		}
		for canonical, actual := range res.mapped {
			batch.Columns[canonical] = true
			if _, ok := meta.MappedColumns[canonical]; !ok {
				meta.MappedColumns[canonical] = actual
			}
		}
	}
	for c := range colsFound {
		meta.ColumnsFound = append(meta.ColumnsFound, c)
	}
	sort.Strings(meta.ColumnsFound)

	var missing []string
	for _, field := range core.RequiredFields {
		if !batch.Columns[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return core.RawBatch{}, Meta{}, core.NewUserError(fmt.Sprintf(
			"Missing required canonical column(s) after mapping: %s\n\n"+
				"This pipeline requires at minimum:\n"+
				"- date (a date column)\n"+
				"- amount (a numeric revenue/expense column)\n\n"+
				"Columns found in your file(s):\n- %s\n\n"+
				"Fix by editing the column map so your column names map to 'date' and 'amount'.",
			strings.Join(missing, ", "), strings.Join(meta.ColumnsFound, "\n- ")))
	}

	return batch, meta, nil
}

// readFile parses one CSV into raw records. Everything is read as text;
// dirty exports get cleaned up later, not here.
func readFile(path string, cm ColumnMap) (fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileResult{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return fileResult{mapped: map[string]string{}}, nil
	}
	if err != nil {
		return fileResult{}, err
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		std := standardizeHeader(h)
		columns[i] = std
		if _, ok := index[std]; !ok {
			index[std] = i
		}
	}

	// First matching alias per canonical field wins for this file.
	fieldIdx := make(map[string]int)
	mapped := make(map[string]string)
	for _, canonical := range append(append([]string{}, core.RequiredFields...), core.OptionalFields...) {
		for _, alias := range cm.aliasesFor(canonical) {
			if i, ok := index[alias]; ok {
				fieldIdx[canonical] = i
				mapped[canonical] = alias
				break
			}
		}
	}

	sourceFile := filepath.Base(path)
	res := fileResult{columns: columns, mapped: mapped}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fileResult{}, err
		}
		get := func(canonical string) string {
			i, ok := fieldIdx[canonical]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		res.rows = append(res.rows, core.RawRecord{
			Date:        get(core.FieldDate),
			Amount:      get(core.FieldAmount),
			Description: get(core.FieldDescription),
			Category:    get(core.FieldCategory),
			Source:      get(core.FieldSource),
			SourceFile:  sourceFile,
		})
	}
	return res, nil
}
