package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpggio/proofchain/internal/audit"
	"github.com/rpggio/proofchain/internal/config"
	"github.com/rpggio/proofchain/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if cfg.Events.AMQPURL == "" {
		logger.Error("PROOFCHAIN_EVENTS_AMQP_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := queue.NewRabbitClient(cfg.Events.AMQPURL, cfg.Events.Queue)
	if err != nil {
		logger.Error("failed to connect to event queue", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	auditor := audit.New(logger)
	logger.Info("auditing ledger events", "queue", cfg.Events.Queue)
	if err := auditor.Run(ctx, client); err != nil {
		logger.Error("consume failed", "error", err)
		os.Exit(1)
	}

	report := auditor.Report()
	logger.Info("shutting down", "received", report.Received, "duplicates", report.Duplicates, "reordered", report.Reordered)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
