// Package main is the operator tool: schema migrations, reference data,
// development tokens and dead-letter inspection.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/config"
	"github.com/gympoint/academy-hub/internal/app"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/postgres"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/redis"
	"github.com/gympoint/academy-hub/internal/interface/http/handlers"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|version     - manage the postgres schema")
	fmt.Fprintln(cli.out, "  seed                        - store demo students and the standard plans")
	fmt.Fprintln(cli.out, "  token -user ID [-ttl 24h]   - sign an administrator token")
	fmt.Fprintln(cli.out, "  deadletters [-limit N]      - show queue sizes and dead-lettered tasks")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2])

	case "seed":
		return cli.seed(ctx)

	case "token":
		fs := flag.NewFlagSet("token", flag.ContinueOnError)
		userID := fs.Int64("user", 0, "The administrator's user id.")
		ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *userID <= 0 {
			fs.Usage()
			return errHelp
		}
		return cli.token(*userID, *ttl)

	case "deadletters":
		fs := flag.NewFlagSet("deadletters", flag.ContinueOnError)
		limit := fs.Int64("limit", 20, "Maximum number of tasks to print.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		return cli.deadLetters(ctx, *limit)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context, direction string) error {
	if cli.cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate needs DATABASE_DRIVER=postgres")
	}

	cfg := *cli.cfg
	cfg.Database.AutoMigrate = false
	cfg.Redis.Disabled = true
	cfg.Queue.Driver = config.DriverMemory

	infra, err := app.Open(ctx, &cfg, cli.log)
	if err != nil {
		return err
	}
	defer infra.Close()

	migrator, err := postgres.NewMigrator(infra.DB, cli.log)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	switch direction {
	case "up":
		return migrator.Up(ctx)
	case "down":
		return migrator.Down(ctx)
	case "version":
		v, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "schema version: %d\n", v)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) seed(ctx context.Context) error {
	cfg := *cli.cfg
	cfg.Queue.Driver = config.DriverMemory

	infra, err := app.Open(ctx, &cfg, cli.log)
	if err != nil {
		return err
	}
	defer infra.Close()

	if err := app.SeedDemo(ctx, infra.StudentWriter, infra.PlanWriter); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Fprintln(cli.out, "seeded demo students and plans")
	return nil
}

func (cli *commandLine) token(userID int64, ttl time.Duration) error {
	auth := handlers.NewJWTAuth(cli.cfg.Auth.JWTSecret, cli.cfg.Auth.Issuer)
	if !auth.Enabled() {
		return fmt.Errorf("AUTH_JWT_SECRET is not set")
	}

	token, err := auth.Issue(userID, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) deadLetters(ctx context.Context, limit int64) error {
	if cli.cfg.Queue.Driver != config.DriverRedis {
		return fmt.Errorf("deadletters needs QUEUE_DRIVER=redis")
	}

	cfg := *cli.cfg
	cfg.Database.Driver = config.DriverMemory

	infra, err := app.Open(ctx, &cfg, cli.log)
	if err != nil {
		return err
	}
	defer infra.Close()

	q, ok := infra.Queue.(*redis.TaskQueue)
	if !ok {
		return fmt.Errorf("unexpected queue type %T", infra.Queue)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		return err
	}
	tasks, err := q.DeadLetters(ctx, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"stats": stats, "dead_letters": tasks})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cli := &commandLine{cfg: cfg, log: log, out: os.Stdout}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
