// Package main is the entry point of the notification worker.
//
// The worker drains the notification queue and delivers enrollment and help
// order mails. Several instances may run against the same Redis queue; each
// task goes to one of them, and tasks left in flight by a crashed instance are
// re-queued at start.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/config"
	"github.com/gympoint/academy-hub/internal/app"
	"github.com/gympoint/academy-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	log = log.With(logger.Component("worker"))
	defer func() { _ = log.Sync() }()

	if cfg.Queue.Driver != config.DriverRedis {
		return fmt.Errorf("the standalone worker needs QUEUE_DRIVER=redis (got %q); the memory queue runs inside cmd/api", cfg.Queue.Driver)
	}

	log.Info("starting notification worker",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("queue", cfg.Queue.Name),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.String("mail", cfg.Mail.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. QUEUE & MAIL TRANSPORT
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	mailer, err := app.NewMailer(cfg, log)
	if err != nil {
		return err
	}

	recovered, err := infra.Queue.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover in-flight tasks: %w", err)
	}
	if recovered > 0 {
		log.Warn("re-queued in-flight tasks", zap.Int("count", recovered))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. RUN UNTIL SIGNALLED
	// ─────────────────────────────────────────────────────────────────────────
	worker, err := app.NewWorker(cfg, infra.Queue, mailer, log)
	if err != nil {
		return err
	}

	sched, err := app.NewScheduler(cfg, infra, log)
	if err != nil {
		return err
	}
	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
	}

	if err := worker.Run(ctx); err != nil {
		return err
	}

	m := worker.Metrics().Snapshot()
	log.Info("shutdown completed successfully",
		zap.Int64("processed", m.Processed),
		zap.Int64("succeeded", m.Succeeded),
		zap.Int64("retried", m.Retried),
		zap.Int64("dead_lettered", m.DeadLettered),
	)
	return nil
}
