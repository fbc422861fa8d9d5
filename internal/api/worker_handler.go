package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/triggerworker/internal/api/shared"
	"github.com/phrazzld/triggerworker/internal/platform/logger"
	"github.com/phrazzld/triggerworker/internal/redact"
	"github.com/phrazzld/triggerworker/internal/task"
)

// MaxIdleTimeout caps the per-request idle wait a client may ask for.
const MaxIdleTimeout = 10 * time.Minute

// WorkerService is the part of task.Worker the handlers depend on.
type WorkerService interface {
	Trigger()
	AwaitIdle(ctx context.Context) error
	Stats() task.Stats
}

// TriggerResponse is returned by POST /api/trigger.
type TriggerResponse struct {
	Accepted bool `json:"accepted"`
}

// IdleRequest is the optional body of POST /api/idle.
type IdleRequest struct {
	// TimeoutMS narrows the server's idle timeout for this request.
	TimeoutMS int64 `json:"timeout_ms" validate:"gte=0,lte=600000"`
}

// WorkerHandler serves the worker control endpoints.
type WorkerHandler struct {
	worker      WorkerService
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewWorkerHandler creates a WorkerHandler. idleTimeout bounds every
// POST /api/idle request; zero means the request context alone applies.
func NewWorkerHandler(worker WorkerService, idleTimeout time.Duration, logger *slog.Logger) *WorkerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerHandler{
		worker:      worker,
		idleTimeout: idleTimeout,
		logger:      logger.With("component", "worker_handler"),
	}
}

// Trigger handles POST /api/trigger. It never blocks on the task.
func (h *WorkerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.worker.Trigger()

	log := h.requestLogger(r)
	if subject, ok := shared.GetSubject(r.Context()); ok {
		log = log.With("subject", subject)
	}
	log.Debug("trigger accepted")

	shared.RespondWithJSON(w, r, http.StatusAccepted, TriggerResponse{Accepted: true})
}

// AwaitIdle handles POST /api/idle. It returns the worker stats once every
// run requested before the call has finished.
func (h *WorkerHandler) AwaitIdle(w http.ResponseWriter, r *http.Request) {
	var req IdleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	ctx := r.Context()
	timeout := h.idleTimeout
	if req.TimeoutMS > 0 {
		requested := time.Duration(req.TimeoutMS) * time.Millisecond
		if timeout <= 0 || requested < timeout {
			timeout = requested
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := h.worker.AwaitIdle(ctx); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.requestLogger(r).Debug("worker idle",
		"waited_ms", time.Since(start).Milliseconds())

	shared.RespondWithJSON(w, r, http.StatusOK, h.publicStats())
}

// Status handles GET /api/status.
func (h *WorkerHandler) Status(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.publicStats())
}

// publicStats returns the worker stats with the last failure redacted.
func (h *WorkerHandler) publicStats() task.Stats {
	stats := h.worker.Stats()
	stats.LastError = redact.String(stats.LastError)
	return stats
}

func (h *WorkerHandler) requestLogger(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}
