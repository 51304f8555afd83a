package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopledger/shopledger/cmd/shopledger/cli"
	"github.com/shopledger/shopledger/internal/app"
	"github.com/shopledger/shopledger/internal/platform/cache"
	"github.com/shopledger/shopledger/jobs"
)

const usage = `usage: shopledger [command]

commands:
  serve                 run the HTTP API (default)
  migrate               apply the database schema
  drift [-json]         compare every ledger entry with its stock card
  jobs trigger <name>   enqueue a job (stock:reconcile)
  jobs stats            print queue sizes`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "drift":
		os.Exit(drift(ctx, cfg, logger, args))
	case "jobs":
		err = jobsCommand(ctx, cfg, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()
	if cfg.StoreDriver == app.DriverMemory {
		logger.Warn("memory store selected, data is lost on exit")
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      container.Router(),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.StoreDriver != app.DriverPostgres {
		return fmt.Errorf("migrate needs the %s driver", app.DriverPostgres)
	}
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()
	if err := container.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func drift(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("drift", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("drift", slog.Any("error", err))
		return 1
	}
	defer container.Close()
	job := jobs.NewStockReconcileJob(container.Services.Stock, logger, nil)
	return cli.DriftCommand(ctx, job, cli.DriftOptions{JSONOutput: *jsonOut})
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR must be set for job commands")
	}
	ops := cli.NewJobsCLI(cache.Config{Addr: cfg.RedisAddr}.AsynqOpt())
	defer ops.Close()

	switch {
	case len(args) == 2 && args[0] == "trigger":
		info, err := ops.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case len(args) == 1 && args[0] == "stats":
		stats, err := ops.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Printf("%-10s pending=%d active=%d scheduled=%d retry=%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		return errors.New("unknown jobs command")
	}
	return nil
}
