// Package engine drives one arbitrage attempt as a single atomic unit. An
// attempt either settles with repayment verified or is undone as if it never
// happened.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/bridge"
	"github.com/arbstack/flasharb/internal/capital"
	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
	"github.com/arbstack/flasharb/internal/stats"
	"github.com/arbstack/flasharb/internal/strategy"
	"github.com/arbstack/flasharb/internal/venue"
)

// Params bundles the engine's collaborators. Bus and Store may be nil; the
// engine then runs without observability export or persistence.
type Params struct {
	Venues    *venue.Registry
	Providers *capital.Registry
	Bridges   *bridge.Registry
	Validator *Validator
	Calc      *pricing.Calculator
	Ledger    *stats.Ledger
	Treasury  *Treasury
	Bus       domain.EventBus
	Store     domain.ExecutionStore

	// Global guards set by the administrative surface. Nil disables a guard.
	MaxAcceptedCost *uint256.Int
	MinGlobalProfit *uint256.Int

	Logger *slog.Logger
}

// Engine is the single entry point for arbitrage execution. It is passive:
// callers construct an ArbitrageRequest and submit it to Attempt.
type Engine struct {
	venues    *venue.Registry
	providers *capital.Registry
	bridges   *bridge.Registry
	validator *Validator
	calc      *pricing.Calculator
	ledger    *stats.Ledger
	treasury  *Treasury
	bus       domain.EventBus
	store     domain.ExecutionStore

	maxAcceptedCost *uint256.Int
	minGlobalProfit *uint256.Int

	logger *slog.Logger
}

// New creates an Engine from its collaborators.
func New(p Params) *Engine {
	return &Engine{
		venues:          p.Venues,
		providers:       p.Providers,
		bridges:         p.Bridges,
		validator:       p.Validator,
		calc:            p.Calc,
		ledger:          p.Ledger,
		treasury:        p.Treasury,
		bus:             p.Bus,
		store:           p.Store,
		maxAcceptedCost: p.MaxAcceptedCost,
		minGlobalProfit: p.MinGlobalProfit,
		logger:          p.Logger.With(slog.String("component", "engine")),
	}
}

// Attempt executes one arbitrage request end to end and returns its result.
// Business failures are reported through the result's FailureReason, never
// as an error; the error return is reserved for context cancellation.
func (e *Engine) Attempt(ctx context.Context, req domain.ArbitrageRequest) (domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionResult{}, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.AmountIn == nil {
		req.AmountIn = uint256.NewInt(0)
	}

	a := newAttempt(req, e.logger)

	route, err := strategy.BuildRoute(req, e.venues)
	if err != nil {
		a.logger.Info("dispatch rejected", slog.String("error", err.Error()))
		return e.abort(ctx, a, domain.ReasonUnsupportedStrategy, false), nil
	}
	a.route = route

	if err := e.validator.Validate(req, route); err != nil {
		a.logger.Info("validation rejected", slog.String("error", err.Error()))
		return e.abort(ctx, a, domain.ReasonInvalidRoute, false), nil
	}
	a.to(stateValidated)

	// Resolve the capital source before quoting: the provider's fee rate is
	// part of the profitability decision. No capital moves here.
	var (
		provider   capital.Provider
		provInfo   domain.ProviderInfo
		selfFunded = req.Provider == "" || req.Provider == domain.SelfFunded
	)
	if !selfFunded {
		if req.Provider == capital.AutoSelect {
			provInfo, provider, err = e.providers.Select(req.AmountIn)
		} else {
			provInfo, provider, err = e.providers.Get(req.Provider)
		}
		if err != nil {
			a.logger.Info("provider unavailable", slog.String("error", err.Error()))
			return e.abort(ctx, a, domain.ReasonLoanFailed, true), nil
		}
	}

	quote, err := e.calc.Quote(route, req, provInfo.FeeRateBps, func(expected *uint256.Int) (*uint256.Int, error) {
		return strategy.SideProfit(req.Kind, req.Payload, req.AmountIn, expected)
	})
	if err != nil {
		a.logger.Info("quote failed", slog.String("error", err.Error()))
		return e.abort(ctx, a, domain.ReasonUnprofitable, true), nil
	}
	a.quote = quote

	// Unprofitable attempts never touch a provider: the go/no-go check runs
	// strictly before any capital is requested.
	if !quote.Profitable || e.breaksGlobalGuards(quote) {
		return e.abort(ctx, a, domain.ReasonUnprofitable, true), nil
	}

	asset := route.StartToken()
	if selfFunded {
		return e.runSelfFunded(ctx, a, asset), nil
	}
	return e.runWithLoan(ctx, a, provider, asset), nil
}

// breaksGlobalGuards applies the administrative cost and profit floors on
// top of the request's own minProfit.
func (e *Engine) breaksGlobalGuards(q pricing.Quote) bool {
	if e.maxAcceptedCost != nil {
		cost := totalCost(q)
		if cost.Cmp(e.maxAcceptedCost) > 0 {
			return true
		}
	}
	if e.minGlobalProfit != nil && q.NetProfit.Cmp(e.minGlobalProfit.ToBig()) < 0 {
		return true
	}
	return false
}

func totalCost(q pricing.Quote) *uint256.Int {
	cost := new(uint256.Int).Add(q.CapitalFee, q.BridgeFees)
	return cost.Add(cost, q.Overhead)
}

// runWithLoan drives the loan path: the provider's synchronous callback
// brackets leg execution and the repayment check, so the loan and the trade
// are one indivisible unit.
func (e *Engine) runWithLoan(ctx context.Context, a *attempt, provider capital.Provider, asset string) domain.ExecutionResult {
	a.to(stateLoanPending)

	err := provider.Initiate(ctx, asset, a.req.AmountIn, func(cbCtx context.Context, loan domain.CapitalLoan) (*uint256.Int, error) {
		a.loan = &loan
		a.to(stateLoanReceived)
		a.credit(asset, loan.Amount)

		if reason, err := e.runLegs(cbCtx, a); err != nil {
			a.abortReason = reason
			return nil, err
		}

		a.to(stateRepaymentVerifying)
		owed := loan.Owed()
		if a.balance(asset).Cmp(owed) < 0 {
			a.rollbackLegs(cbCtx)
			a.abortReason = domain.ReasonInsufficientProfit
			return nil, fmt.Errorf("engine: balance %s below owed %s: %w",
				a.balance(asset).Dec(), owed.Dec(), domain.ErrLoanNotRepaid)
		}
		a.debit(asset, owed)
		a.to(stateRepaid)
		return owed, nil
	})
	if err != nil {
		reason := a.abortReason
		if reason == domain.ReasonNone {
			reason = domain.ReasonLoanFailed
		}
		a.logger.Info("loan attempt aborted",
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
		return e.abort(ctx, a, reason, true)
	}

	// The surplus left after repayment is the engine's realized profit.
	surplus := a.balance(asset)
	e.treasury.Deposit(asset, surplus)
	return e.settle(ctx, a)
}

// runSelfFunded drives the no-loan path: the principal comes from the
// engine's treasury and the repayment check degenerates to restoring it.
func (e *Engine) runSelfFunded(ctx context.Context, a *attempt, asset string) domain.ExecutionResult {
	if err := e.treasury.Withdraw(asset, a.req.AmountIn); err != nil {
		a.logger.Info("treasury short", slog.String("error", err.Error()))
		return e.abort(ctx, a, domain.ReasonLoanFailed, true)
	}
	a.credit(asset, a.req.AmountIn)

	if reason, err := e.runLegs(ctx, a); err != nil {
		e.treasury.Deposit(asset, a.req.AmountIn)
		return e.abort(ctx, a, reason, true)
	}

	a.to(stateRepaymentVerifying)
	final := a.balance(asset)
	if final.Cmp(a.req.AmountIn) < 0 {
		a.rollbackLegs(ctx)
		e.treasury.Deposit(asset, a.req.AmountIn)
		return e.abort(ctx, a, domain.ReasonInsufficientProfit, true)
	}
	a.to(stateRepaid)
	e.treasury.Deposit(asset, final)
	return e.settle(ctx, a)
}

// settle books a successful attempt: actual output, realized profit, ledger
// update, event emission, optional persistence.
func (e *Engine) settle(ctx context.Context, a *attempt) domain.ExecutionResult {
	a.to(stateSettled)

	amountOut := uint256.NewInt(0)
	if n := len(a.executed); n > 0 {
		amountOut = new(uint256.Int).Set(a.executed[n-1].amountOut)
	}

	capitalFee := uint256.NewInt(0)
	if a.loan != nil {
		capitalFee = a.loan.Fee
	}
	cost := new(uint256.Int).Add(capitalFee, a.quote.BridgeFees)
	cost.Add(cost, a.quote.Overhead)

	profit := new(big.Int).Add(amountOut.ToBig(), a.quote.SideProfit.ToBig())
	profit.Sub(profit, a.req.AmountIn.ToBig())
	profit.Sub(profit, cost.ToBig())

	res := domain.ExecutionResult{
		RequestID:  a.req.ID,
		Kind:       a.req.Kind,
		Succeeded:  true,
		AmountIn:   a.req.AmountIn,
		AmountOut:  amountOut,
		Profit:     profit,
		Cost:       cost,
		Reason:     domain.ReasonNone,
		LegCount:   len(a.route.Legs),
		FinishedAt: time.Now(),
	}

	e.ledger.Record(ctx, a.req.Kind, true, profit)
	e.publish(ctx, a, res)
	a.logger.Info("attempt settled",
		slog.String("amount_out", amountOut.Dec()),
		slog.String("profit", profit.String()),
		slog.Int("legs", res.LegCount),
	)
	return res
}

// abort finalizes a failed attempt. counted controls whether the ledger
// books it: attempts rejected before or at validation are not counted,
// everything after is.
func (e *Engine) abort(ctx context.Context, a *attempt, reason domain.FailureReason, counted bool) domain.ExecutionResult {
	a.to(stateAborted)
	res := domain.Failed(a.req, reason, len(a.route.Legs))
	if counted {
		e.ledger.Record(ctx, a.req.Kind, false, nil)
	}
	e.publish(ctx, a, res)
	return res
}

// publish emits the attempt event and persists the result. Both are
// best-effort: export failures never affect the execution outcome.
func (e *Engine) publish(ctx context.Context, a *attempt, res domain.ExecutionResult) {
	if e.bus != nil {
		ev := domain.AttemptEvent{
			RequestID: res.RequestID,
			Kind:      res.Kind,
			Succeeded: res.Succeeded,
			Profit:    res.Profit.String(),
			Reason:    res.Reason,
			LegCount:  res.LegCount,
			EmittedAt: time.Now(),
		}
		if err := e.bus.PublishAttempt(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("event publish failed", slog.String("error", err.Error()))
		}
	}
	if e.store != nil {
		if err := e.store.Insert(ctx, res, a.route); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("execution persist failed", slog.String("error", err.Error()))
		}
	}
}

// Ledger exposes the statistics ledger for status surfaces.
func (e *Engine) Ledger() *stats.Ledger { return e.ledger }

// Validator exposes the validator for the administrative surface.
func (e *Engine) Validator() *Validator { return e.validator }
