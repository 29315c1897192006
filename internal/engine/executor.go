package engine

import (
	"context"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
	"github.com/arbstack/flasharb/internal/venue"
)

// state is the attempt's position in the execution state machine. States
// advance strictly forward; every non-terminal state can fall to aborted.
type state int

const (
	stateIdle state = iota
	stateValidated
	stateLoanPending
	stateLoanReceived
	stateLegsExecuting
	stateRepaymentVerifying
	stateRepaid
	stateSettled
	stateAborted
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateValidated:
		return "validated"
	case stateLoanPending:
		return "loan_pending"
	case stateLoanReceived:
		return "loan_received"
	case stateLegsExecuting:
		return "legs_executing"
	case stateRepaymentVerifying:
		return "repayment_verifying"
	case stateRepaid:
		return "repaid"
	case stateSettled:
		return "settled"
	case stateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// executedLeg is one entry in the attempt's compensation log: enough to undo
// the swap exactly, in reverse order, on any abort.
type executedLeg struct {
	adapter   venue.Adapter
	params    venue.SwapParams
	amountOut *uint256.Int
}

// attempt is the mutable footprint of one execution. It is private to the
// attempt: only the statistics ledger is shared across attempts.
type attempt struct {
	req   domain.ArbitrageRequest
	route domain.Route
	quote pricing.Quote
	state state

	// book tracks the attempt's asset balances, starting from the borrowed
	// (or self-funded) principal. It is discarded with the attempt.
	book map[string]*uint256.Int

	loan        *domain.CapitalLoan
	executed    []executedLeg
	abortReason domain.FailureReason

	logger *slog.Logger
}

func newAttempt(req domain.ArbitrageRequest, logger *slog.Logger) *attempt {
	return &attempt{
		req:   req,
		state: stateIdle,
		book:  make(map[string]*uint256.Int),
		logger: logger.With(
			slog.String("request_id", req.ID),
			slog.String("strategy", string(req.Kind)),
		),
	}
}

func (a *attempt) to(next state) {
	a.logger.Debug("state transition",
		slog.String("from", a.state.String()),
		slog.String("to", next.String()),
	)
	a.state = next
}

func (a *attempt) credit(asset string, amount *uint256.Int) {
	bal, ok := a.book[asset]
	if !ok {
		bal = new(uint256.Int)
		a.book[asset] = bal
	}
	bal.Add(bal, amount)
}

func (a *attempt) debit(asset string, amount *uint256.Int) {
	if bal, ok := a.book[asset]; ok {
		bal.Sub(bal, amount)
	}
}

func (a *attempt) balance(asset string) *uint256.Int {
	bal, ok := a.book[asset]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}

// runLegs executes every leg in order against its venue adapter, each with a
// minimum-output guard derived from the request's slippage tolerance. On any
// failure the already-applied legs are rolled back before returning: legs
// are never partially kept.
func (e *Engine) runLegs(ctx context.Context, a *attempt) (domain.FailureReason, error) {
	a.to(stateLegsExecuting)
	for i, leg := range a.route.Legs {
		adapter, err := e.venues.Adapter(leg.Venue)
		if err != nil {
			a.rollbackLegs(ctx)
			return domain.ReasonSlippageExceeded, err
		}
		amountIn := a.balance(leg.TokenIn)
		params := venue.SwapParams{
			TokenIn:      leg.TokenIn,
			TokenOut:     leg.TokenOut,
			AmountIn:     amountIn,
			MinAmountOut: pricing.MinOutForLeg(a.quote.LegOuts[i], a.req.MaxSlipBps),
		}
		out, err := adapter.Swap(ctx, params)
		if err != nil {
			a.logger.Info("leg failed",
				slog.Int("leg", i),
				slog.String("venue", leg.Venue),
				slog.String("error", err.Error()),
			)
			a.rollbackLegs(ctx)
			return domain.ReasonSlippageExceeded, err
		}
		a.debit(leg.TokenIn, amountIn)
		a.credit(leg.TokenOut, out)
		a.executed = append(a.executed, executedLeg{adapter: adapter, params: params, amountOut: out})
	}
	return domain.ReasonNone, nil
}

// rollbackLegs runs the compensation log in reverse order, restoring every
// touched venue to its pre-attempt state.
func (a *attempt) rollbackLegs(ctx context.Context) {
	for i := len(a.executed) - 1; i >= 0; i-- {
		leg := a.executed[i]
		if err := leg.adapter.Revert(ctx, leg.params, leg.amountOut); err != nil {
			a.logger.Error("leg revert failed",
				slog.Int("leg", i),
				slog.String("error", err.Error()),
			)
		}
	}
	a.executed = nil
}
