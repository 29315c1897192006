// Package pricing implements the profitability calculator: pure, leg-by-leg
// simulation of a route against venue pool snapshots. All amounts are
// unsigned fixed-point integers; fees are deducted before applying the
// pricing formula at basis-point precision and every intermediate division
// rounds down, so the simulation can never manufacture phantom profit.
package pricing

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// bpsDenom is the basis-point denominator shared by fee tiers, slippage
// guards, and provider fee rates.
const bpsDenom = 10_000

// PoolState is a point-in-time snapshot of one venue's pool, oriented for a
// specific tokenIn -> tokenOut direction. Only the fields for the declared
// model are populated.
type PoolState struct {
	Model  domain.PricingModel
	FeeBps uint64

	// Constant-product and weighted pools.
	ReserveIn  *uint256.Int
	ReserveOut *uint256.Int

	// Weighted pools: normalized weights in basis points (WeightIn +
	// WeightOut need not sum to anything in particular; only the ratio is
	// used).
	WeightIn  uint64
	WeightOut uint64

	// Concentrated-liquidity pools: active-range liquidity and the current
	// sqrt price in Q64.96. ZeroForOne is true when tokenIn is token0.
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	ZeroForOne   bool

	// Stable-swap pools: all coin balances plus the indexes of the swap
	// direction and the amplification coefficient.
	Balances []*uint256.Int
	IndexIn  int
	IndexOut int
	Amp      uint64
}

// ApplyFee deducts the venue fee from amountIn before the pricing formula,
// rounding down.
func ApplyFee(amountIn *uint256.Int, feeBps uint64) *uint256.Int {
	if feeBps == 0 {
		return new(uint256.Int).Set(amountIn)
	}
	keep := new(uint256.Int).Mul(amountIn, uint256.NewInt(bpsDenom-feeBps))
	return keep.Div(keep, uint256.NewInt(bpsDenom))
}

// FeePortion returns amount * feeBps / 10000, rounded down.
func FeePortion(amount *uint256.Int, feeBps uint64) *uint256.Int {
	fee := new(uint256.Int).Mul(amount, uint256.NewInt(feeBps))
	return fee.Div(fee, uint256.NewInt(bpsDenom))
}

// SwapOut simulates swapping amountIn through the pool, selecting the
// formula for the pool's declared pricing model. The pool state is not
// mutated.
func SwapOut(p PoolState, amountIn *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return uint256.NewInt(0), nil
	}
	inEff := ApplyFee(amountIn, p.FeeBps)

	switch p.Model {
	case domain.ModelConstantProduct:
		return constantProductOut(inEff, p.ReserveIn, p.ReserveOut)
	case domain.ModelConcentrated:
		return concentratedOut(inEff, p.SqrtPriceX96, p.Liquidity, p.ZeroForOne)
	case domain.ModelStableSwap:
		return stableSwapOut(inEff, p.Balances, p.IndexIn, p.IndexOut, p.Amp)
	case domain.ModelWeighted:
		return weightedOut(inEff, p.ReserveIn, p.ReserveOut, p.WeightIn, p.WeightOut)
	default:
		return nil, fmt.Errorf("pricing: model %q: %w", p.Model, domain.ErrUnknownPricingModel)
	}
}
