package domain

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"
)

// FailureReason is the closed taxonomy of non-settled outcomes. The first
// three are resolved locally before any side effect; the last three require
// the executor to roll back everything executed so far.
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonInvalidRoute        FailureReason = "invalid_route"
	ReasonUnsupportedStrategy FailureReason = "unsupported_strategy"
	ReasonUnprofitable        FailureReason = "unprofitable"
	ReasonLoanFailed          FailureReason = "loan_failed"
	ReasonSlippageExceeded    FailureReason = "slippage_exceeded"
	ReasonInsufficientProfit  FailureReason = "insufficient_profit"
)

// ExecutionResult is the output of one attempt. Profit is
// amountOut - amountIn - capitalFee - executionCost and may be negative on
// aborted attempts; Succeeded is false whenever Reason is set.
type ExecutionResult struct {
	RequestID  string        `json:"request_id"`
	Kind       StrategyKind  `json:"strategy_kind"`
	Succeeded  bool          `json:"succeeded"`
	AmountIn   *uint256.Int  `json:"amount_in"`
	AmountOut  *uint256.Int  `json:"amount_out"`
	Profit     *big.Int      `json:"profit"`
	Cost       *uint256.Int  `json:"cost"`
	Reason     FailureReason `json:"failure_reason,omitempty"`
	LegCount   int           `json:"leg_count"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Failed builds an ExecutionResult for a non-settled terminal state. Every
// abort path produces a populated reason; no error is silently swallowed.
func Failed(req ArbitrageRequest, reason FailureReason, legCount int) ExecutionResult {
	return ExecutionResult{
		RequestID:  req.ID,
		Kind:       req.Kind,
		Succeeded:  false,
		AmountIn:   req.AmountIn,
		AmountOut:  uint256.NewInt(0),
		Profit:     new(big.Int),
		Cost:       uint256.NewInt(0),
		Reason:     reason,
		LegCount:   legCount,
		FinishedAt: time.Now(),
	}
}
