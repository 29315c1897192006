package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/arbstack/flasharb/internal/domain"
)

// ExecutionsHandler serves persisted execution history. The store is optional;
// without one the endpoints report 503.
type ExecutionsHandler struct {
	store  domain.ExecutionStore
	logger *slog.Logger
}

// NewExecutionsHandler creates an ExecutionsHandler.
func NewExecutionsHandler(store domain.ExecutionStore, logger *slog.Logger) *ExecutionsHandler {
	return &ExecutionsHandler{store: store, logger: logHandler(logger, "executions")}
}

// ListRecent responds with the most recent execution results.
// GET /api/executions/recent?limit=N
func (h *ExecutionsHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "execution store not configured")
		return
	}
	list, err := h.store.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list executions", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "list executions failed")
		return
	}
	if list == nil {
		list = []domain.ExecutionResult{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetExecution responds with a single execution result by request ID.
// GET /api/executions/{request_id}
func (h *ExecutionsHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "execution store not configured")
		return
	}
	res, err := h.store.GetByRequestID(r.Context(), r.PathValue("request_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "execution not found")
			return
		}
		h.logger.Error("get execution", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "get execution failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
