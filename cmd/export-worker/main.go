// export-worker mirrors the cleaned dataset to a Google Sheet. It consumes
// dataset-reload events when AMQP is configured and falls back to a periodic
// export otherwise.
package main

import (
	"context"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/pipeline"
	"bilancio/internal/sheets"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)

	repo := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var writer sheets.SnapshotWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewClient(context.Background(), gsheet.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			ClientFile:    cfg.GoogleOAuthClientFile,
			ClientJSON:    cfg.GoogleOAuthClientJSON,
			TokenFile:     cfg.GoogleOAuthTokenFile,
			TokenJSON:     cfg.GoogleOAuthTokenJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		writer = memory.New()
		logger.Warn("No spreadsheet configured, exporting to in-process sink")
	}

	svc := pipeline.NewService(repo, nil)
	exportWorker := worker.NewExportWorker(svc, writer)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Export once at startup so a fresh worker mirrors the current store.
	if err := exportWorker.Export(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		logger.Info("Consuming dataset reload events", "queue", cfg.AMQPQueue)
		go func() {
			err := amqpClient.ConsumeDatasetReloaded(ctx, func(msg *amqp.DatasetReloadedMessage) error {
				return exportWorker.HandleReloadMessage(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Consumer stopped", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP not configured, exporting on interval", "interval", cfg.ExportInterval)
		go func() {
			if err := exportWorker.RunPeriodic(ctx, cfg.ExportInterval); err != nil && err != context.Canceled {
				logger.Error("Periodic export stopped", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Export worker stopped gracefully")
}
