package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/platform/httpx"
)

// ReconcileTrigger queues a reconciliation pass on demand.
type ReconcileTrigger interface {
	EnqueueStockReconcile(ctx context.Context) (*asynq.TaskInfo, error)
}

// HandlerDeps groups what the operator endpoints read from. Inspector and
// Trigger are nil when no queue is configured.
type HandlerDeps struct {
	Inspector *asynq.Inspector
	Reviews   ReviewLog
	Trigger   ReconcileTrigger
	Logger    *slog.Logger
}

// Handler exposes operator endpoints for the queue and the fallback review log.
type Handler struct {
	deps HandlerDeps
}

// NewHandler constructs Handler.
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{deps: deps}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/fallbacks", h.fallbacks)
	r.Post("/reconcile", h.reconcile)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queue": "disabled"})
		return
	}
	unreachable := func(err error) {
		h.deps.Logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "queue unreachable")
	}
	known, err := h.deps.Inspector.Queues()
	if err != nil {
		unreachable(err)
		return
	}
	out := map[string]int{QueueCritical: 0, QueueDefault: 0}
	for _, queue := range known {
		if _, ok := out[queue]; !ok {
			continue
		}
		info, err := h.deps.Inspector.GetQueueInfo(queue)
		if err != nil {
			unreachable(err)
			return
		}
		out[queue] = info.Pending
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pending": out})
}

func (h *Handler) fallbacks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	out, err := h.deps.Reviews.ListFallbacks(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, r, h.deps.Logger, err)
		return
	}
	if out == nil {
		out = []FallbackReview{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fallbacks": out})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	if h.deps.Trigger == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue not configured")
		return
	}
	info, err := h.deps.Trigger.EnqueueStockReconcile(r.Context())
	if errors.Is(err, asynq.ErrDuplicateTask) {
		httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "already queued"})
		return
	}
	if err != nil {
		httpx.RespondError(w, r, h.deps.Logger, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued", "task_id": info.ID})
}
