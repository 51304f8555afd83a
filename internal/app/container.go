package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shopledger/shopledger/internal/auth"
	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/platform/cache"
	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/store/memory"
	"github.com/shopledger/shopledger/internal/store/postgres"
	"github.com/shopledger/shopledger/internal/vendors"
	"github.com/shopledger/shopledger/jobs"
)

// Container holds the long-lived dependencies of one process.
type Container struct {
	Config   *Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Services *Services
	Auth     *auth.Service

	Redis     *redis.Client
	Jobs      *jobs.Client
	Inspector *asynq.Inspector

	pool    *pgxpool.Pool
	pg      *postgres.Store
	closers []func()
}

// NewContainer connects to the configured backends and builds every service.
// Redis is optional: without it idempotency keys are ignored and fallback
// reviews are recorded inline instead of through the queue.
func NewContainer(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	authSvc, err := auth.NewService(auth.Config{
		Secret:           cfg.AuthSecret,
		AdminPasskeyHash: cfg.AdminPasskeyHash,
		StaffPasskeyHash: cfg.StaffPasskeyHash,
		TokenTTL:         cfg.AuthTokenTTL,
	})
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, Metrics: observability.NewMetrics(), Auth: authSvc}

	var idem *shared.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisCfg := cache.Config{Addr: cfg.RedisAddr}
		client, err := cache.New(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		c.Redis = client
		c.closers = append(c.closers, func() { _ = client.Close() })
		idem = shared.NewIdempotencyStore(client, cfg.IdempotencyTTL)

		if cfg.JobsEnabled {
			jobClient, err := jobs.NewClient(redisCfg.AsynqOpt())
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("app: job client: %w", err)
			}
			inspector := asynq.NewInspector(redisCfg.AsynqOpt())
			c.Jobs = jobClient
			c.Inspector = inspector
			c.closers = append(c.closers, func() {
				_ = jobClient.Close()
				_ = inspector.Close()
			})
		}
	}

	deps := serviceDeps{idempotency: idem, logger: logger}
	switch cfg.StoreDriver {
	case DriverMemory:
		store := memory.New(memory.Options{Transactions: cfg.MemoryTransactions})
		deps.observer = c.observer(store.Direct().Reviews())
		c.Services = buildServices(store, deps)
	case DriverPostgres:
		pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.pool = pool
		c.closers = append(c.closers, pool.Close)
		c.pg = postgres.New(pool)
		deps.classify = postgres.IsTransactionsUnsupported
		deps.observer = c.observer(c.pg.Direct().Reviews())
		c.Services = buildServices(c.pg, deps)
	default:
		c.Close()
		return nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}
	return c, nil
}

func (c *Container) observer(reviews jobs.ReviewLog) uow.Observer {
	var enqueuer jobs.ReviewEnqueuer = inlineReviews{log: reviews}
	if c.Jobs != nil {
		enqueuer = c.Jobs
	}
	return uow.Observers{c.Metrics, jobs.NewFallbackNotifier(enqueuer, c.Logger)}
}

// Migrate applies the database schema. The memory driver has nothing to migrate.
func (c *Container) Migrate(ctx context.Context) error {
	if c.pg == nil {
		return nil
	}
	return c.pg.Migrate(ctx)
}

// Health pings every configured backend.
func (c *Container) Health(ctx context.Context) error {
	if c.pool != nil {
		if err := c.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Router builds the HTTP handler for the API process.
func (c *Container) Router() http.Handler {
	rbac := auth.Middleware{Service: c.Auth, Logger: c.Logger}
	return NewRouter(RouterParams{
		Logger:        c.Logger,
		Config:        c.Config,
		Metrics:       c.Metrics,
		RBAC:          rbac,
		Auth:          auth.NewHandler(c.Logger, c.Auth),
		Items:         catalog.NewHandler(c.Logger, c.Services.Catalog, rbac),
		Stock:         stock.NewHandler(c.Logger, c.Services.Stock, rbac),
		Customers:     customers.NewHandler(c.Logger, c.Services.Customers, rbac),
		Bills:         billing.NewHandler(c.Logger, c.Services.Billing, rbac),
		Manufacturing: manufacturing.NewHandler(c.Logger, c.Services.Manufacturing, rbac),
		Vendors:       vendors.NewHandler(c.Logger, c.Services.Vendors, rbac),
		Jobs:          jobs.NewHandler(c.jobDeps()),
		Health:        c.Health,
	})
}

func (c *Container) jobDeps() jobs.HandlerDeps {
	deps := jobs.HandlerDeps{Inspector: c.Inspector, Reviews: c.Services.Reviews, Logger: c.Logger}
	if c.Jobs != nil {
		deps.Trigger = c.Jobs
	}
	return deps
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
