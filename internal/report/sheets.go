package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finpipe/internal/core"
)

// SheetsWriter pushes the report tables into tabs of an existing Google
// Spreadsheet, for operators who share the numbers instead of mailing a
// workbook around.
type SheetsWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ Writer = (*SheetsWriter)(nil)

// NewSheetsWriterFromEnv builds a writer from environment configuration.
// Requires GOOGLE_SPREADSHEET_ID plus service-account credentials in one
// of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsWriterFromEnv(ctx context.Context) (*SheetsWriter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, core.NewUserError(
			"Missing GOOGLE_SPREADSHEET_ID.\n" +
				"Set it to the spreadsheet the report should be written into, or use the xlsx report backend.")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsWriter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// Write clears and rewrites one tab per table. Tabs must already exist
// in the spreadsheet; the writer does not manage sheet structure.
func (w *SheetsWriter) Write(ctx context.Context, tables []Table) (string, error) {
	for _, table := range tables {
		tab := safeSheetName(table.Name)

		_, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, tab, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("clear tab %s: %w", tab, err)
		}

		values := make([][]interface{}, 0, len(table.Rows)+1)
		header := make([]interface{}, len(table.Header))
		for i, h := range table.Header {
			header[i] = h
		}
		values = append(values, header)
		for _, row := range table.Rows {
			cells := make([]interface{}, len(row))
			for i, v := range row {
				if v == nil {
					cells[i] = ""
					continue
				}
				cells[i] = v
			}
			values = append(values, cells)
		}

		_, err = w.svc.Spreadsheets.Values.Update(w.spreadsheetID, tab+"!A1",
			&gsheet.ValueRange{Values: values}).
			ValueInputOption("RAW").
			Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update tab %s: %w", tab, err)
		}
	}

	return "https://docs.google.com/spreadsheets/d/" + w.spreadsheetID, nil
}
