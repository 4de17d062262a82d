// Package config loads pipeline settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Report backends.
const (
	ReportBackendXLSX   = "xlsx"
	ReportBackendSheets = "sheets"
)

type Config struct {
	// Input
	RawDir        string
	ColumnMapPath string

	// Database
	SQLiteDBPath string
	LoadMode     string // replace | append

	// Report
	ReportPath    string
	ReportBackend string // xlsx | sheets

	// AMQP notifications (blank URL disables)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets backend
	GoogleSpreadsheetID string
}

func Load() *Config {
	return &Config{
		RawDir:        getEnv("RAW_DIR", "./data/raw"),
		ColumnMapPath: getEnv("COLUMN_MAP_PATH", "./config/column_map.yaml"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finance.db"),
		LoadMode:     getEnv("LOAD_MODE", "replace"),

		ReportPath:    getEnv("REPORT_PATH", "./data/output/finance_report.xlsx"),
		ReportBackend: getEnv("REPORT_BACKEND", ReportBackendXLSX),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finpipe"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "pipeline_runs"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
	}
}

// Validate checks the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if c.RawDir == "" {
		errors = append(errors, "RAW_DIR must not be empty")
	}
	if c.ColumnMapPath == "" {
		errors = append(errors, "COLUMN_MAP_PATH must not be empty")
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLITE_DB_PATH must not be empty")
	}

	if c.LoadMode != "replace" && c.LoadMode != "append" {
		errors = append(errors, fmt.Sprintf("invalid load mode '%s': must be 'replace' or 'append'", c.LoadMode))
	}

	switch c.ReportBackend {
	case ReportBackendXLSX:
		if c.ReportPath == "" {
			errors = append(errors, "REPORT_PATH must not be empty for the xlsx backend")
		}
	case ReportBackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the sheets backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid report backend '%s': must be one of [%s %s]",
			c.ReportBackend, ReportBackendXLSX, ReportBackendSheets))
	}

	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP_EXCHANGE must not be empty when AMQP_URL is set")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP_QUEUE must not be empty when AMQP_URL is set")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// NotifyEnabled reports whether run-completion notifications are
// configured.
func (c *Config) NotifyEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
