package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantai-bot/internal/api"
	"quantai-bot/internal/eod"
	"quantai-bot/internal/logger"
	"quantai-bot/internal/runner"
	"quantai-bot/internal/trace"
	"quantai-bot/internal/tradelog"
)

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	journal := tradelog.New(cfg.Data.Dir)
	compressOldJournals(ctx, journal, cfg.Data.RetentionDays)

	st := initializeState(ctx, cfg)
	pipe := initializePipeline(cfg, st, journal)
	run := runner.New(pipe, st)
	summarizer := eod.NewSummarizer(journal, cfg.Data.Dir)

	bot := newApp(ctx, cfg, st, run, summarizer)
	server := api.NewServer(cfg.Server.ListenAddr, bot)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	if cfg.Runner.Autostart {
		if err := bot.StartContinuous(0, 0); err != nil {
			logger.ErrorWithErr(ctx, "Autostart failed", err)
		}
	}

	go dailyRollover(ctx, bot)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigc:
		logger.Info(ctx, "Shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.ErrorWithErr(ctx, "API server failed", err)
		}
	}

	if err := run.Stop(); err != nil && err != runner.ErrNotRunning {
		logger.Warn(ctx, "Runner stop failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Server shutdown failed", "error", err)
	}

	bot.rollDay(time.Now().UTC())

	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Tracer shutdown failed", "error", err)
	}
}

// dailyRollover summarizes the finished day and resets the daily counters
// at each UTC midnight.
func dailyRollover(ctx context.Context, bot *app) {
	for {
		next := eod.NextMidnightUTC(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			bot.rollDay(next.AddDate(0, 0, -1))
		}
	}
}
