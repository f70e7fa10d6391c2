// bilancio-import scans a directory of bank and card CSV exports, merges
// them into the canonical transaction store, and records every ingest
// warning. Re-running over overlapping exports is safe: duplicates collapse
// on the dedup key and the store is rebuilt wholesale.
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/ingest"
	"bilancio/internal/log"
	"bilancio/internal/merge"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentIngest)
	ctx := context.Background()

	repo := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sources, err := listCSVFiles(cfg.SourceDir, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to scan source directory", log.FieldError, err, "dir", cfg.SourceDir)
		os.Exit(1)
	}
	if len(sources) == 0 {
		logger.Warn("No CSV files found", "dir", cfg.SourceDir)
	}

	var (
		files    []ingest.File
		warnings []core.Warning
		rawRows  int
	)
	for _, path := range sources {
		file, fileWarnings, err := ingest.ParseFile(path)
		if err != nil {
			logger.Error("Failed to parse file", log.FieldError, err, log.FieldSource, path)
			os.Exit(1)
		}
		warnings = append(warnings, fileWarnings...)
		rawRows += len(file.Rows)
		files = append(files, file)
		logger.Info("Parsed source file",
			log.FieldSource, file.Name,
			"account", file.Account,
			log.FieldRows, len(file.Rows),
			log.FieldWarnings, len(fileWarnings))
	}

	merged := merge.Merge(files)
	logger.Info("Merged source files",
		"files", len(files),
		"rows_before", rawRows,
		"rows_after", len(merged),
		"duplicates_dropped", rawRows-len(merged))

	if err := repo.ReplaceTransactions(ctx, merged); err != nil {
		logger.Error("Failed to replace transactions", log.FieldError, err)
		os.Exit(1)
	}
	if err := repo.ReplaceImportWarnings(ctx, warnings); err != nil {
		logger.Error("Failed to record import warnings", log.FieldError, err)
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("Import warning", "kind", string(w.Kind), log.FieldSource, w.Source, "detail", w.Detail)
	}

	// Notify consumers so the API server and export worker pick up the new
	// canonical store.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, skipping reload event", log.FieldError, err)
		} else {
			defer client.Close()
			if err := client.PublishDatasetReloaded(ctx, 0, len(merged)); err != nil {
				logger.Warn("Failed to publish reload event", log.FieldError, err)
			}
		}
	}

	logger.Info("Import complete", log.FieldRows, len(merged), log.FieldWarnings, len(warnings))
}

// listCSVFiles returns the CSV files under dir in name order, skipping the
// database file itself if it happens to live there.
func listCSVFiles(dir, dbPath string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if sameFile(path, dbPath) {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
