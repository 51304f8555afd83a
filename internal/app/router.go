package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shopledger/shopledger/internal/auth"
	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/vendors"
	"github.com/shopledger/shopledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	RBAC    auth.Middleware

	Auth          *auth.Handler
	Items         *catalog.Handler
	Stock         *stock.Handler
	Customers     *customers.Handler
	Bills         *billing.Handler
	Manufacturing *manufacturing.Handler
	Vendors       *vendors.Handler
	Jobs          *jobs.Handler

	Health func(ctx context.Context) error
}

// NewRouter constructs the chi.Router with shopledger defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			if err := params.Health(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.Auth != nil {
			r.Route("/auth", params.Auth.MountRoutes)
		}
		r.Group(func(r chi.Router) {
			r.Use(params.RBAC.Authenticate)
			if params.Items != nil {
				r.Route("/items", params.Items.MountRoutes)
			}
			if params.Stock != nil {
				r.Route("/stock", params.Stock.MountRoutes)
			}
			if params.Customers != nil {
				r.Route("/customers", params.Customers.MountRoutes)
			}
			if params.Bills != nil {
				r.Route("/bills", params.Bills.MountRoutes)
			}
			if params.Manufacturing != nil {
				r.Route("/manufacturing", params.Manufacturing.MountRoutes)
			}
			if params.Vendors != nil {
				r.Route("/vendors", params.Vendors.MountRoutes)
			}
			if params.Jobs != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(params.RBAC.RequireRole(auth.RoleAdmin))
					params.Jobs.MountRoutes(r)
				})
			}
		})
	})

	return r
}
