package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
)

// maxUndoDepth bounds the simulator's undo history. Reverts only ever target
// the most recent swaps of the current attempt, so older entries can be
// discarded.
const maxUndoDepth = 128

// SimConfig describes one simulated pool. TokenA/TokenB (with reserves or
// sqrt-price state) cover the two-asset models; Coins/Balances cover
// stable-swap pools with two or more assets.
type SimConfig struct {
	Info domain.VenueInfo

	TokenA   string
	TokenB   string
	ReserveA *uint256.Int
	ReserveB *uint256.Int

	// Weighted pools.
	WeightA uint64
	WeightB uint64

	// Concentrated pools: TokenA is token0.
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int

	// Stable-swap pools.
	Coins    []string
	Balances []*uint256.Int
	Amp      uint64
}

type undoRecord struct {
	tokenIn   string
	tokenOut  string
	amountIn  *uint256.Int
	amountOut *uint256.Int
	prevSqrtP *uint256.Int
}

// SimVenue is an in-process venue holding mutable pool state. Swaps apply
// real reserve movements; Revert restores them exactly, so an aborted
// attempt leaves the venue indistinguishable from one that never traded.
type SimVenue struct {
	mu  sync.Mutex
	cfg SimConfig

	reserveA  *uint256.Int
	reserveB  *uint256.Int
	sqrtPrice *uint256.Int
	balances  []*uint256.Int

	undo []undoRecord
}

// NewSim creates a simulated venue from cfg, copying all mutable state.
func NewSim(cfg SimConfig) (*SimVenue, error) {
	if !cfg.Info.Model.Known() {
		return nil, fmt.Errorf("venue %q: model %q: %w", cfg.Info.ID, cfg.Info.Model, domain.ErrUnknownPricingModel)
	}
	v := &SimVenue{cfg: cfg}
	if cfg.ReserveA != nil {
		v.reserveA = new(uint256.Int).Set(cfg.ReserveA)
	}
	if cfg.ReserveB != nil {
		v.reserveB = new(uint256.Int).Set(cfg.ReserveB)
	}
	if cfg.SqrtPriceX96 != nil {
		v.sqrtPrice = new(uint256.Int).Set(cfg.SqrtPriceX96)
	}
	for _, b := range cfg.Balances {
		v.balances = append(v.balances, new(uint256.Int).Set(b))
	}
	return v, nil
}

// Info returns the venue's registration record.
func (v *SimVenue) Info() domain.VenueInfo { return v.cfg.Info }

// Snapshot returns the current pool state oriented for tokenIn -> tokenOut.
func (v *SimVenue) Snapshot(tokenIn, tokenOut string) (pricing.PoolState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked(tokenIn, tokenOut)
}

func (v *SimVenue) snapshotLocked(tokenIn, tokenOut string) (pricing.PoolState, error) {
	state := pricing.PoolState{
		Model:  v.cfg.Info.Model,
		FeeBps: v.cfg.Info.FeeBps,
	}

	switch v.cfg.Info.Model {
	case domain.ModelStableSwap:
		iIn, iOut := v.coinIndex(tokenIn), v.coinIndex(tokenOut)
		if iIn < 0 || iOut < 0 || iIn == iOut {
			return pricing.PoolState{}, v.pairErr(tokenIn, tokenOut)
		}
		state.Balances = make([]*uint256.Int, len(v.balances))
		for i, b := range v.balances {
			state.Balances[i] = new(uint256.Int).Set(b)
		}
		state.IndexIn, state.IndexOut, state.Amp = iIn, iOut, v.cfg.Amp
		return state, nil

	case domain.ModelConcentrated:
		switch {
		case tokenIn == v.cfg.TokenA && tokenOut == v.cfg.TokenB:
			state.ZeroForOne = true
		case tokenIn == v.cfg.TokenB && tokenOut == v.cfg.TokenA:
			state.ZeroForOne = false
		default:
			return pricing.PoolState{}, v.pairErr(tokenIn, tokenOut)
		}
		state.SqrtPriceX96 = new(uint256.Int).Set(v.sqrtPrice)
		state.Liquidity = new(uint256.Int).Set(v.cfg.Liquidity)
		return state, nil

	default:
		switch {
		case tokenIn == v.cfg.TokenA && tokenOut == v.cfg.TokenB:
			state.ReserveIn = new(uint256.Int).Set(v.reserveA)
			state.ReserveOut = new(uint256.Int).Set(v.reserveB)
			state.WeightIn, state.WeightOut = v.cfg.WeightA, v.cfg.WeightB
		case tokenIn == v.cfg.TokenB && tokenOut == v.cfg.TokenA:
			state.ReserveIn = new(uint256.Int).Set(v.reserveB)
			state.ReserveOut = new(uint256.Int).Set(v.reserveA)
			state.WeightIn, state.WeightOut = v.cfg.WeightB, v.cfg.WeightA
		default:
			return pricing.PoolState{}, v.pairErr(tokenIn, tokenOut)
		}
		return state, nil
	}
}

// Swap executes one leg against the pool. The output is priced with the
// venue's declared model; if it falls below p.MinAmountOut the swap fails
// without touching state.
func (v *SimVenue) Swap(ctx context.Context, p SwapParams) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	state, err := v.snapshotLocked(p.TokenIn, p.TokenOut)
	if err != nil {
		return nil, err
	}
	out, err := pricing.SwapOut(state, p.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("venue %q: swap: %w", v.cfg.Info.ID, err)
	}
	if p.MinAmountOut != nil && out.Cmp(p.MinAmountOut) < 0 {
		return nil, fmt.Errorf("venue %q: out %s < min %s: %w",
			v.cfg.Info.ID, out.Dec(), p.MinAmountOut.Dec(), domain.ErrMinAmountOut)
	}

	rec := undoRecord{
		tokenIn:   p.TokenIn,
		tokenOut:  p.TokenOut,
		amountIn:  new(uint256.Int).Set(p.AmountIn),
		amountOut: new(uint256.Int).Set(out),
	}

	switch v.cfg.Info.Model {
	case domain.ModelStableSwap:
		iIn, iOut := v.coinIndex(p.TokenIn), v.coinIndex(p.TokenOut)
		v.balances[iIn].Add(v.balances[iIn], p.AmountIn)
		v.balances[iOut].Sub(v.balances[iOut], out)
	case domain.ModelConcentrated:
		rec.prevSqrtP = new(uint256.Int).Set(v.sqrtPrice)
		inEff := pricing.ApplyFee(p.AmountIn, v.cfg.Info.FeeBps)
		_, next, err := pricing.ConcentratedSwap(inEff, v.sqrtPrice, v.cfg.Liquidity, state.ZeroForOne)
		if err != nil {
			return nil, fmt.Errorf("venue %q: swap: %w", v.cfg.Info.ID, err)
		}
		v.sqrtPrice = next
	default:
		if p.TokenIn == v.cfg.TokenA {
			v.reserveA.Add(v.reserveA, p.AmountIn)
			v.reserveB.Sub(v.reserveB, out)
		} else {
			v.reserveB.Add(v.reserveB, p.AmountIn)
			v.reserveA.Sub(v.reserveA, out)
		}
	}

	v.undo = append(v.undo, rec)
	if len(v.undo) > maxUndoDepth {
		v.undo = v.undo[len(v.undo)-maxUndoDepth:]
	}
	return out, nil
}

// Revert undoes the most recent swap, which must match p and amountOut. The
// reserve deltas are restored exactly, so net asset movement after an abort
// is zero.
func (v *SimVenue) Revert(ctx context.Context, p SwapParams, amountOut *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.undo) == 0 {
		return fmt.Errorf("venue %q: revert: no swap to undo", v.cfg.Info.ID)
	}
	rec := v.undo[len(v.undo)-1]
	if rec.tokenIn != p.TokenIn || rec.tokenOut != p.TokenOut ||
		rec.amountIn.Cmp(p.AmountIn) != 0 || rec.amountOut.Cmp(amountOut) != 0 {
		return fmt.Errorf("venue %q: revert: swap mismatch", v.cfg.Info.ID)
	}
	v.undo = v.undo[:len(v.undo)-1]

	switch v.cfg.Info.Model {
	case domain.ModelStableSwap:
		iIn, iOut := v.coinIndex(p.TokenIn), v.coinIndex(p.TokenOut)
		v.balances[iIn].Sub(v.balances[iIn], rec.amountIn)
		v.balances[iOut].Add(v.balances[iOut], rec.amountOut)
	case domain.ModelConcentrated:
		v.sqrtPrice = rec.prevSqrtP
	default:
		if p.TokenIn == v.cfg.TokenA {
			v.reserveA.Sub(v.reserveA, rec.amountIn)
			v.reserveB.Add(v.reserveB, rec.amountOut)
		} else {
			v.reserveB.Sub(v.reserveB, rec.amountIn)
			v.reserveA.Add(v.reserveA, rec.amountOut)
		}
	}
	return nil
}

func (v *SimVenue) coinIndex(token string) int {
	for i, c := range v.cfg.Coins {
		if c == token {
			return i
		}
	}
	return -1
}

func (v *SimVenue) pairErr(tokenIn, tokenOut string) error {
	return fmt.Errorf("venue %q: pair %s/%s: %w", v.cfg.Info.ID, tokenIn, tokenOut, domain.ErrNotFound)
}
