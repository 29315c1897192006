package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/engine"
)

// AttemptHandler accepts ad-hoc arbitrage requests over HTTP and runs them
// synchronously. Useful for manual testing and replay; the feed is the
// primary ingestion path.
type AttemptHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewAttemptHandler creates an AttemptHandler.
func NewAttemptHandler(eng *engine.Engine, logger *slog.Logger) *AttemptHandler {
	return &AttemptHandler{engine: eng, logger: logHandler(logger, "attempt")}
}

// SubmitAttempt decodes an ArbitrageRequest, runs it through the engine, and
// responds with the execution result. Aborted attempts respond 200 with
// succeeded=false and a failure reason; only transport-level problems map to
// error statuses.
// POST /api/attempts
func (h *AttemptHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req domain.ArbitrageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AmountIn == nil || req.AmountIn.IsZero() {
		writeError(w, http.StatusBadRequest, "amount_in is required")
		return
	}

	res, err := h.engine.Attempt(r.Context(), req)
	if err != nil {
		h.logger.Info("attempt aborted",
			slog.String("request_id", res.RequestID),
			slog.String("reason", string(res.Reason)),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, http.StatusOK, res)
}
