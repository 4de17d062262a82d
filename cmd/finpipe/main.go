package main

import (
	"context"
	"fmt"
	"os"

	"finpipe/internal/amqp"
	"finpipe/internal/cli"
	"finpipe/internal/config"
	"finpipe/internal/report"
	"finpipe/internal/services"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var reporter report.Writer
	switch cfg.ReportBackend {
	case config.ReportBackendSheets:
		w, err := report.NewSheetsWriterFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets backend", "error", err)
			fmt.Fprintln(os.Stderr, services.RenderError(err))
			os.Exit(1)
		}
		reporter = w
	default:
		reporter = &report.ExcelWriter{Path: cfg.ReportPath}
	}

	var notifier *amqp.Client
	if cfg.NotifyEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Notifications are best effort; the pipeline still runs.
			logger.Error("Failed to connect to AMQP, notifications disabled", "error", err)
		} else {
			notifier = client
			defer notifier.Close()
		}
	}

	pipeline := services.NewPipeline(cfg, repo, reporter, notifier)
	res, err := pipeline.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, services.RenderError(err))
		os.Exit(1)
	}

	fmt.Printf("Pipeline complete. Run %s: %d clean rows, %d issue rows, %d duplicates removed.\nReport: %s\n",
		res.RunID, res.Transform.CleanRows, res.Transform.IssueRows,
		res.Transform.DuplicatesRemoved, res.ReportPath)
}
