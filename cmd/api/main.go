// Package main is the entry point of the academy HTTP API.
//
// The API serves enrollments, check-ins and help orders. Notifications are
// enqueued and delivered by cmd/worker; with QUEUE_DRIVER=memory the worker
// runs inside this process instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/config"
	"github.com/gympoint/academy-hub/internal/app"
	"github.com/gympoint/academy-hub/internal/application/command"
	"github.com/gympoint/academy-hub/internal/application/query"
	"github.com/gympoint/academy-hub/internal/domain/checkin"
	httpapi "github.com/gympoint/academy-hub/internal/interface/http"
	"github.com/gympoint/academy-hub/internal/interface/http/handlers"
	"github.com/gympoint/academy-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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
	defer func() { _ = log.Sync() }()

	log.Info("starting academy API",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("database", cfg.Database.Driver),
		zap.String("queue", cfg.Queue.Driver),
		zap.String("mail", cfg.Mail.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORE & QUEUE
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	notifier := command.NewNotifier(infra.Queue, log)
	enrollDeps := command.EnrollmentDependencies{
		Students:    infra.Students,
		Plans:       infra.Plans,
		Enrollments: infra.Enrollments,
		Notifier:    notifier,
		Logger:      log,
	}
	policy := checkin.QuotaPolicy{Limit: cfg.Rules.CheckinLimit, Window: cfg.Rules.CheckinWindow}

	auth := handlers.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if !auth.Enabled() {
		log.Warn("AUTH_JWT_SECRET is empty; administrative routes are unauthenticated")
	}

	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	httpCfg.Name = cfg.App.Name
	httpCfg.Version = cfg.App.Version

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		CreateEnrollment: command.NewCreateEnrollmentHandler(enrollDeps),
		UpdateEnrollment: command.NewUpdateEnrollmentHandler(enrollDeps),
		DeleteEnrollment: command.NewDeleteEnrollmentHandler(enrollDeps),
		RecordCheckin:    command.NewRecordCheckinHandler(infra.Students, infra.Checkins, policy, nil, log),
		CreateHelpOrder:  command.NewCreateHelpOrderHandler(infra.Students, infra.HelpOrders, nil),
		AnswerHelpOrder:  command.NewAnswerHelpOrderHandler(infra.Students, infra.HelpOrders, notifier, nil, log),
		ListEnrollments:  query.NewListEnrollmentsHandler(infra.Enrollments),
		ListCheckins:     query.NewListCheckinsHandler(infra.Students, infra.Checkins),
		ListHelpOrders:   query.NewListHelpOrdersHandler(infra.Students, infra.HelpOrders),
		Auth:             auth,
		HealthChecker:    infra.HealthChecker(cfg.App.Version),
		Logger:           log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 4. IN-PROCESS WORKER (memory queue only)
	// ─────────────────────────────────────────────────────────────────────────
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	var wg sync.WaitGroup
	if cfg.Queue.Driver == config.DriverMemory {
		mailer, err := app.NewMailer(cfg, log)
		if err != nil {
			return err
		}
		worker, err := app.NewWorker(cfg, infra.Queue, mailer, log.With(logger.Component("worker")))
		if err != nil {
			return err
		}

		sched, err := app.NewScheduler(cfg, infra, log)
		if err != nil {
			return err
		}
		if sched != nil {
			if err := sched.Start(workerCtx); err != nil {
				return err
			}
			defer func() { _ = sched.Stop() }()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = worker.Run(workerCtx)
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SERVE & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	select {
	case err := <-errCh:
		if err != nil {
			stopWorker()
			wg.Wait()
			return err
		}
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("http shutdown: %w", err)
	}

	stopWorker()
	wg.Wait()

	if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		return shutdownErr
	}

	log.Info("shutdown completed successfully")
	return nil
}
