// Package app wires configuration into the concrete store, queue, mailer and
// worker shared by the API and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/config"
	"github.com/gympoint/academy-hub/internal/application/taskhandler"
	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/internal/infrastructure/mail"
	"github.com/gympoint/academy-hub/internal/infrastructure/messaging"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/memory"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/postgres"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/redis"
	"github.com/gympoint/academy-hub/internal/infrastructure/scheduler"
	"github.com/gympoint/academy-hub/internal/infrastructure/scheduler/jobs"
	"github.com/gympoint/academy-hub/internal/interface/http/handlers"
	"github.com/gympoint/academy-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// NewLogger builds the process logger from the observability settings.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.Options{
		Environment: string(cfg.App.Environment),
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version)), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INFRASTRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// TaskQueue is the producer and consumer side of the notification queue.
type TaskQueue interface {
	notification.Queue
	notification.Consumer

	// Recover re-queues tasks left in flight by a crashed worker.
	Recover(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Infrastructure holds the opened store and queue.
type Infrastructure struct {
	Students    student.Repository
	Plans       plan.Repository
	Enrollments enrollment.Repository
	Checkins    checkin.Repository
	HelpOrders  helporder.Repository

	// StudentWriter and PlanWriter bypass the cache; only seeding uses them.
	StudentWriter student.Writer
	PlanWriter    plan.Writer

	Queue TaskQueue

	// DB is the postgres connection, nil with the memory driver.
	DB *postgres.Connection

	// Checks are the health probes of every backend that was opened.
	// Optional ones only degrade health when they fail.
	Checks   map[string]handlers.Pinger
	Optional map[string]handlers.Pinger

	closers []func()
}

// Close releases every backend in reverse opening order.
func (i *Infrastructure) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
	i.closers = nil
}

// HealthChecker registers every backend probe on a composite checker.
func (i *Infrastructure) HealthChecker(version string) *handlers.CompositeHealthChecker {
	checker := handlers.NewCompositeHealthChecker(version)
	for name, p := range i.Checks {
		checker.AddCheck(name, handlers.NewPingCheck(p))
	}
	for name, p := range i.Optional {
		checker.AddOptionalCheck(name, handlers.NewPingCheck(p))
	}
	return checker
}

// Open connects the store and queue selected by cfg. On error everything
// opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *Infrastructure, err error) {
	infra := &Infrastructure{
		Checks:   make(map[string]handlers.Pinger),
		Optional: make(map[string]handlers.Pinger),
	}
	defer func() {
		if err != nil {
			infra.Close()
		}
	}()

	var redisClient *goredis.Client
	if !cfg.Redis.Disabled && (cfg.Queue.Driver == config.DriverRedis || cfg.Database.Driver == config.DriverPostgres) {
		redisClient, err = openRedis(ctx, cfg, log)
		if err != nil {
			if cfg.Queue.Driver == config.DriverRedis {
				return nil, err
			}
			log.Warn("redis unavailable, student cache disabled", zap.Error(err))
			redisClient = nil
		}
		if redisClient != nil {
			infra.closers = append(infra.closers, func() { _ = redisClient.Close() })
		}
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := infra.openPostgres(ctx, cfg, redisClient, log); err != nil {
			return nil, err
		}
	default:
		infra.openMemory(ctx, log)
	}

	switch cfg.Queue.Driver {
	case config.DriverRedis:
		q := redis.NewTaskQueue(redisClient, cfg.Queue.Name, cfg.Queue.DeadLetterSize)
		infra.Queue = q
		infra.Checks["queue"] = q
	default:
		q := messaging.NewMemoryQueue(cfg.Queue.DeadLetterSize)
		infra.Queue = q
		infra.Checks["queue"] = q
	}

	return infra, nil
}

func openRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*goredis.Client, error) {
	client, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("redis connection established")
	return client, nil
}

func (i *Infrastructure) openPostgres(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, log *zap.Logger) error {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout
	pgCfg.Logger = log

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	i.closers = append(i.closers, conn.Close)
	i.DB = conn
	i.Checks["database"] = conn
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		migrator, err := postgres.NewMigrator(conn, log)
		if err != nil {
			return err
		}
		defer func() { _ = migrator.Close() }()
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	studentRepo := postgres.NewStudentRepository(conn)
	planRepo := postgres.NewPlanRepository(conn)
	i.StudentWriter = studentRepo
	i.PlanWriter = planRepo

	var students student.Repository = studentRepo
	if redisClient != nil {
		cache := redis.NewCache(redisClient)
		students = redis.NewCachedStudentRepository(students, cache, cfg.Redis.StudentCacheTTL, log)
		i.Optional["cache"] = cache
	}

	i.Students = students
	i.Plans = planRepo
	i.Enrollments = postgres.NewEnrollmentRepository(conn)
	i.Checkins = postgres.NewCheckinRepository(conn)
	i.HelpOrders = postgres.NewHelpOrderRepository(conn)
	return nil
}

func (i *Infrastructure) openMemory(ctx context.Context, log *zap.Logger) {
	store := memory.NewStore()
	if err := SeedDemo(ctx, store.Students(), store.Plans()); err != nil {
		log.Warn("seed demo data", zap.Error(err))
	}
	log.Warn("using in-memory store; data is lost on exit")

	i.Students = store.Students()
	i.Plans = store.Plans()
	i.StudentWriter = store.Students()
	i.PlanWriter = store.Plans()
	i.Enrollments = store.Enrollments()
	i.Checkins = store.Checkins()
	i.HelpOrders = store.HelpOrders()
	i.Checks["database"] = store
}

// SeedDemo stores a few students and the standard plans so an in-memory
// instance is usable right away.
func SeedDemo(ctx context.Context, students student.Writer, plans plan.Writer) error {
	for _, s := range []*student.Student{
		{ID: 1, Name: "Ana Souza", Email: "ana@example.com"},
		{ID: 2, Name: "Bruno Lima", Email: "bruno@example.com"},
	} {
		if err := students.Save(ctx, s); err != nil {
			return err
		}
	}
	for _, p := range []*plan.Plan{
		{ID: 1, Title: "Start", Duration: 1, Price: shared.NewMoney(129, 0)},
		{ID: 2, Title: "Gold", Duration: 3, Price: shared.NewMoney(109, 0)},
		{ID: 3, Title: "Diamond", Duration: 6, Price: shared.NewMoney(89, 0)},
	} {
		if err := plans.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIL & WORKER
// ══════════════════════════════════════════════════════════════════════════════

// NewMailer returns the transport selected by cfg.Mail.Driver.
func NewMailer(cfg *config.Config, log *zap.Logger) (notification.Mailer, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}

	switch cfg.Mail.Driver {
	case config.DriverSendgrid:
		transport, err := mail.NewSendgridTransport(mail.SendgridConfig{
			APIKey:    cfg.Mail.SendgridAPIKey,
			Host:      cfg.Mail.SendgridHost,
			FromName:  cfg.Mail.FromName,
			FromEmail: cfg.Mail.FromEmail,
		}, renderer, log)
		if err != nil {
			return nil, err
		}
		return transport, nil
	case config.DriverLog:
		from := notification.Address{Name: cfg.Mail.FromName, Email: cfg.Mail.FromEmail}
		return mail.NewLogTransport(from, renderer, log), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}

// NewWorker builds a worker on consumer with every notification handler
// registered behind the recovery and logging middleware.
func NewWorker(cfg *config.Config, consumer notification.Consumer, mailer notification.Mailer, log *zap.Logger) (*messaging.Worker, error) {
	worker := messaging.NewWorker(consumer, messaging.WorkerConfig{
		Concurrency:    cfg.Queue.Concurrency,
		PollTimeout:    cfg.Queue.PollTimeout,
		HandlerTimeout: cfg.Queue.HandlerTimeout,
		Retry: messaging.RetryConfig{
			MaxRetries:     cfg.Queue.MaxRetries,
			InitialBackoff: cfg.Queue.InitialBackoff,
			MaxBackoff:     cfg.Queue.MaxBackoff,
			JitterPercent:  messaging.DefaultRetryConfig().JitterPercent,
		},
		Logger: log,
	})

	worker.Use(messaging.RecoveryMiddleware(log))
	worker.Use(messaging.LoggingMiddleware(log))

	handlerSet := taskhandler.Handlers(taskhandler.Dependencies{
		Mailer:   mailer,
		Flags:    cfg.Features,
		Location: cfg.App.Location,
		Logger:   log,
	})

	var errs []error
	for key, h := range handlerSet {
		errs = append(errs, worker.Register(key, messaging.Handler(h)))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return worker, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// QueueDepth reads the size of the opened queue.
func (i *Infrastructure) QueueDepth(ctx context.Context) (jobs.QueueDepth, error) {
	switch q := i.Queue.(type) {
	case *redis.TaskQueue:
		st, err := q.Stats(ctx)
		if err != nil {
			return jobs.QueueDepth{}, err
		}
		return jobs.QueueDepth{Pending: st.Pending, Processing: st.Processing, Dead: st.Dead}, nil
	case *messaging.MemoryQueue:
		return jobs.QueueDepth{
			Pending:    int64(len(q.Pending())),
			Processing: int64(q.InFlight()),
			Dead:       int64(q.DeadLetters().Size()),
		}, nil
	default:
		return jobs.QueueDepth{}, fmt.Errorf("queue depth unsupported for %T", i.Queue)
	}
}

// NewScheduler returns a scheduler with the queue monitor registered, or nil
// when QUEUE_MONITOR_INTERVAL is zero.
func NewScheduler(cfg *config.Config, infra *Infrastructure, log *zap.Logger) (*scheduler.Scheduler, error) {
	if cfg.Queue.MonitorInterval <= 0 {
		return nil, nil
	}

	s := scheduler.New(scheduler.Config{Logger: log})
	monitor := jobs.NewQueueMonitor(infra.QueueDepth, int64(cfg.Queue.BacklogWarn), log)
	if err := s.Register(monitor, scheduler.Every(cfg.Queue.MonitorInterval)); err != nil {
		return nil, err
	}
	return s, nil
}
