package domain

import "math/big"

// StrategyStats is the long-lived per-kind ledger entry. It is mutated only
// by the statistics ledger at the end of an attempt and persists for the
// lifetime of the engine process.
type StrategyStats struct {
	Kind             StrategyKind `json:"strategy_kind"`
	ExecutionCount   int64        `json:"execution_count"`
	SuccessCount     int64        `json:"success_count"`
	CumulativeProfit *big.Int     `json:"cumulative_profit"`

	// SuccessRate is the boolean success ratio in [0, 1].
	SuccessRate float64 `json:"success_rate"`

	// AvgProfitBps is cumulativeProfit * 10000 / executionCount: the
	// profit-per-attempt figure historically reported as a "rate". It is a
	// distinct metric from SuccessRate and is kept under its own name.
	AvgProfitBps *big.Int `json:"avg_profit_bps"`
}
