package handler

import (
	"log/slog"
	"net/http"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/stats"
)

// StatsHandler serves the per-strategy ledger.
type StatsHandler struct {
	ledger *stats.Ledger
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(ledger *stats.Ledger, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{ledger: ledger, logger: logHandler(logger, "stats")}
}

// ListStats responds with the full ledger snapshot, ordered by strategy kind.
// GET /api/stats
func (h *StatsHandler) ListStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.Snapshot())
}

// GetStats responds with a single strategy's ledger entry. Unknown kinds get
// a zero entry rather than a 404: a strategy that has never run has zero
// executions.
// GET /api/stats/{kind}
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	kind := domain.StrategyKind(r.PathValue("kind"))
	if !kind.Known() {
		writeError(w, http.StatusBadRequest, "unknown strategy kind")
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.Get(kind))
}
