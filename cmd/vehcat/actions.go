package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"vehcat/internal"
	"vehcat/internal/catalog"
	"vehcat/internal/config"
	"vehcat/internal/document"
	"vehcat/internal/listener"
	"vehcat/internal/logx"
	"vehcat/internal/pipeline"
	"vehcat/internal/report"
	"vehcat/internal/storage"
)

func loadConfig(c *cli.Context) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadPath(c.String("config"))
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if c.Bool("verbose") {
		level = "debug"
	}
	return cfg, logx.New(level, cfg.LogFormat), nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("skip-count-check") {
		cfg.SkipCountCheck = true
	}
	if w := c.Int("workers"); w >= 0 {
		cfg.Workers = w
	}

	input := c.String("input")
	paths, err := pipeline.ExpandInputs(input)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported documents match %q", input)
	}

	output := c.String("output")
	if output == "" {
		output = filepath.Join(cfg.OutputDir, "records.csv")
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	runID, err := db.StartRun("run", input)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", runID)

	proc := pipeline.NewServiceFromConfig(cfg, logger)
	results := proc.ProcessAll(ctx, paths)
	records, drops := pipeline.Merge(results)

	if _, err := db.SaveResults(runID, results); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if err := db.FinishRun(runID, len(results), failed, len(records), len(drops)); err != nil {
		return err
	}

	if err := pipeline.ExportRecordsToCSV(records, output); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	logger.Info("records exported", "path", output, "records", len(records))
	if xlsx := c.String("xlsx"); xlsx != "" {
		if err := pipeline.ExportRecordsToXLSX(records, xlsx); err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		logger.Info("records exported", "path", xlsx, "records", len(records))
	}

	w := c.App.Writer
	report.Documents(w, results)
	report.Consistency(w, results)
	report.Batches(w, pipeline.VerifyAllBatches(records))
	report.Statistics(w, pipeline.CalculateStatistics(records))
	idx := catalog.BuildIndex(records)
	report.Duplicates(w, idx.DuplicateModels())
	report.Companies(w, idx.Companies())
	report.Drops(w, drops)

	if failed == len(results) {
		return errors.New("no document could be processed")
	}
	return nil
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: vehcat inspect <file>", 2)
	}
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	proc := pipeline.NewServiceFromConfig(cfg, logger)

	path := c.Args().First()
	doc, err := document.Open(path, proc.DocumentOptions())
	if err != nil {
		return err
	}
	res := proc.Scanner().Scan(path, doc.Blocks)

	w := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report.AsMap())
	}

	fmt.Fprintf(w, "document: %s (%s, %d paragraphs, %d tables)\n", path, doc.Format, len(doc.Paragraphs()), len(doc.Tables()))
	for _, s := range doc.Skipped {
		fmt.Fprintf(w, "skipped: %s\n", s)
	}
	fmt.Fprintf(w, "batch: %s\n", res.Batch.ID)
	if res.Batch.DeclaredCount != nil {
		fmt.Fprintf(w, "declared count: %d\n", *res.Batch.DeclaredCount)
	}
	fmt.Fprintf(w, "records: %d (%s)\n\n", len(res.Records()), res.Report.Message)
	report.Outline(w, res.Outline)
	fmt.Fprintln(w)
	report.Tables(w, res.Tables)
	if len(res.Notes) > 0 {
		fmt.Fprintln(w)
		report.Notes(w, res.Notes)
	}
	return nil
}

func historyAction(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	w := c.App.Writer
	if runID := c.String("run"); runID != "" {
		counts, err := db.CountDrops(runID)
		if err != nil {
			return err
		}
		report.DropCounts(w, runID, counts)
		return nil
	}

	runs, err := db.ListRuns(c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	report.Runs(w, runs)

	failed, err := db.ListDocumentsByStatus(internal.DocumentFailed, c.Int("limit"))
	if err != nil {
		return err
	}
	report.FailedDocuments(w, failed)

	last, err := db.GetMetadata("watch.last_cycle")
	if err != nil {
		return err
	}
	if last != nil {
		fmt.Fprintf(w, "last watch cycle: %s\n", *last)
	}
	return nil
}

func watchAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	dir := c.String("dir")
	if dir == "" {
		dir = cfg.WatchDir
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := listener.NewService(db, cfg, pipeline.NewServiceFromConfig(cfg, logger), dir, logger)
	ctx, cancel := signalContext(c)
	defer cancel()

	if c.Bool("once") {
		_, err := svc.RunCycle(ctx)
		return err
	}
	return svc.Run(ctx)
}
