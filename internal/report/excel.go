package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter renders the report tables to a single .xlsx workbook.
type ExcelWriter struct {
	Path string
}

var _ Writer = (*ExcelWriter)(nil)

// Write creates the workbook, one sheet per table, with a frozen header
// row, an auto-filter and readable column widths.
func (w *ExcelWriter) Write(ctx context.Context, tables []Table) (string, error) {
	if err := os.MkdirAll(filepath.Dir(w.Path), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := safeSheetName(table.Name)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return "", fmt.Errorf("rename sheet %s: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return "", fmt.Errorf("create sheet %s: %w", name, err)
			}
		}
		if err := writeSheet(f, name, table); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(w.Path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return w.Path, nil
}

func writeSheet(f *excelize.File, sheet string, table Table) error {
	header := make([]any, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header on %s: %w", sheet, err)
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name on %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", i+2, sheet, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header on %s: %w", sheet, err)
	}

	if len(table.Header) > 0 && len(table.Rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Header), len(table.Rows)+1)
		if err != nil {
			return fmt.Errorf("filter range on %s: %w", sheet, err)
		}
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("auto filter on %s: %w", sheet, err)
		}
	}

	return setColumnWidths(f, sheet, table)
}

// setColumnWidths sizes each column from the header plus a sample of the
// first 50 rows, capped so one long description cannot blow up the sheet.
func setColumnWidths(f *excelize.File, sheet string, table Table) error {
	const (
		maxWidth   = 45
		sampleRows = 50
	)
	for i, h := range table.Header {
		width := len(h)
		for j, row := range table.Rows {
			if j >= sampleRows {
				break
			}
			if i < len(row) {
				if l := len(cellString(row[i])); l > width {
					width = l
				}
			}
		}
		width += 2
		if width > maxWidth {
			width = maxWidth
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name on %s: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("column width on %s: %w", sheet, err)
		}
	}
	return nil
}
