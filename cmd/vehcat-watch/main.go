package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vehcat/internal/config"
	"vehcat/internal/listener"
	"vehcat/internal/logx"
	"vehcat/internal/pipeline"
	"vehcat/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := logx.New(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, pipeline.NewServiceFromConfig(cfg, logger), cfg.WatchDir, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("watching", "dir", cfg.WatchDir, "interval_sec", cfg.WatchIntervalSec)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
