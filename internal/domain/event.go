package domain

import "time"

// AttemptEvent is the structured observability record emitted once per
// settled or aborted attempt. Dashboards and ledger readers consume it; the
// engine never reads it back.
type AttemptEvent struct {
	RequestID string        `json:"request_id"`
	Kind      StrategyKind  `json:"strategy_kind"`
	Succeeded bool          `json:"succeeded"`
	Profit    string        `json:"profit"`
	Reason    FailureReason `json:"failure_reason,omitempty"`
	LegCount  int           `json:"leg_count"`
	EmittedAt time.Time     `json:"emitted_at"`
}
