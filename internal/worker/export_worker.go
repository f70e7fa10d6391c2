// Package worker mirrors the cleaned dataset to an external sheet. It reacts
// to dataset-reload notifications and also exports on a timer, so a missed
// message only delays the mirror until the next tick.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/pipeline"
	"bilancio/internal/sheets"
)

type ExportWorker struct {
	svc    *pipeline.Service
	writer sheets.SnapshotWriter
}

func NewExportWorker(svc *pipeline.Service, writer sheets.SnapshotWriter) *ExportWorker {
	return &ExportWorker{svc: svc, writer: writer}
}

// HandleReloadMessage rebuilds the local snapshot from SQLite and exports it.
// The message carries only the generation; the data comes from the store.
func (w *ExportWorker) HandleReloadMessage(ctx context.Context, msg *amqp.DatasetReloadedMessage) error {
	slog.InfoContext(ctx, "Processing dataset reloaded message",
		"generation", msg.Generation,
		"transactions", msg.Transactions)
	return w.Export(ctx)
}

// Export refreshes the snapshot and writes it out.
func (w *ExportWorker) Export(ctx context.Context) error {
	if _, err := w.svc.Reload(ctx); err != nil {
		return fmt.Errorf("rebuild snapshot: %w", err)
	}
	txns, err := w.svc.Transactions(ctx, pipeline.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := w.writer.WriteSnapshot(ctx, txns); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Dataset exported", "transactions", len(txns))
	return nil
}

// RunPeriodic exports on the given interval until the context is cancelled.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Export(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}
