// finpipe-report regenerates the KPI report from an already-loaded
// database without re-ingesting anything.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"finpipe/internal/cli"
	"finpipe/internal/config"
	"finpipe/internal/report"
	"finpipe/internal/services"
	"finpipe/internal/storage"
)

func main() {
	runID := flag.String("run", "", "run id to report on (default: latest run)")
	flag.Parse()

	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	repo, err := storage.OpenRepository(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, services.RenderError(err))
		os.Exit(1)
	}
	defer repo.Close()

	if *runID == "" {
		latest, err := repo.LatestRunID(ctx)
		if err != nil {
			fail(err)
		}
		*runID = latest
	}

	results, err := repo.Query(ctx, *runID)
	if err != nil {
		fail(err)
	}
	clean, err := repo.CleanRecords(ctx, *runID)
	if err != nil {
		fail(err)
	}
	issues, err := repo.IssueRecords(ctx, *runID)
	if err != nil {
		fail(err)
	}

	loadedAt := ""
	if ri, err := repo.RunInfo(ctx, *runID); err == nil {
		loadedAt = ri.LoadedAtUTC
	} else {
		logger.Warn("Could not resolve run load timestamp", "run_id", *runID, "error", err)
	}

	var writer report.Writer
	switch cfg.ReportBackend {
	case config.ReportBackendSheets:
		w, err := report.NewSheetsWriterFromEnv(ctx)
		if err != nil {
			fail(err)
		}
		writer = w
	default:
		writer = &report.ExcelWriter{Path: cfg.ReportPath}
	}

	tables := report.BuildTables(results, clean, issues, *runID, loadedAt)
	location, err := writer.Write(ctx, tables)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Report for run %s written to %s\n", *runID, location)
}

func fail(err error) {
	if errors.Is(err, storage.ErrNotLoaded) {
		fmt.Fprintln(os.Stderr, "Input Error:\nNo loaded data found. Run finpipe first to ingest and load data.")
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, services.RenderError(err))
	os.Exit(1)
}
