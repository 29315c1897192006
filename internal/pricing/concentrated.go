package pricing

import (
	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// q96 is the Q64.96 fixed-point scale used by concentrated-liquidity sqrt
// prices.
var q96 = func() *uint256.Int {
	one := uint256.NewInt(1)
	return one.Lsh(one, 96)
}()

// concentratedOut prices a swap within the pool's active tick range.
func concentratedOut(inEff, sqrtPriceX96, liquidity *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	out, _, err := ConcentratedSwap(inEff, sqrtPriceX96, liquidity, zeroForOne)
	return out, err
}

// ConcentratedSwap prices a fee-adjusted swap within the pool's active tick
// range given its liquidity L and current sqrt price P (Q64.96), returning
// both the output and the post-swap sqrt price.
//
// zeroForOne (token0 in): P' = L*P / (L + in*P/Q96), out = L*(P-P')/Q96.
// oneForZero (token1 in): P' = P + in*Q96/L,         out = L*(P'-P)*Q96/(P'*P).
//
// All divisions floor. Crossing out of the active range is treated as
// insufficient liquidity rather than walking ticks; the simulators only
// quote within the snapshot's range.
func ConcentratedSwap(inEff, sqrtPriceX96, liquidity *uint256.Int, zeroForOne bool) (out, nextSqrtPrice *uint256.Int, err error) {
	if sqrtPriceX96 == nil || liquidity == nil || sqrtPriceX96.IsZero() || liquidity.IsZero() {
		return nil, nil, domain.ErrInsufficientLiq
	}

	if zeroForOne {
		// P' = (L * P) / (L + in * P / Q96)
		shift := new(uint256.Int).Mul(inEff, sqrtPriceX96)
		shift.Div(shift, q96)
		den := new(uint256.Int).Add(liquidity, shift)
		next := new(uint256.Int).Mul(liquidity, sqrtPriceX96)
		next.Div(next, den)
		if next.IsZero() || next.Cmp(sqrtPriceX96) > 0 {
			return nil, nil, domain.ErrInsufficientLiq
		}
		// out = L * (P - P') / Q96
		diff := new(uint256.Int).Sub(sqrtPriceX96, next)
		o := new(uint256.Int).Mul(liquidity, diff)
		return o.Div(o, q96), next, nil
	}

	// P' = P + in * Q96 / L
	bump := new(uint256.Int).Mul(inEff, q96)
	bump.Div(bump, liquidity)
	next := new(uint256.Int).Add(sqrtPriceX96, bump)
	if next.Cmp(sqrtPriceX96) < 0 {
		return nil, nil, domain.ErrInsufficientLiq
	}
	// out = L * (P' - P) * Q96 / (P' * P), factored to keep intermediates
	// inside 256 bits: t = L*(P'-P)/P', out = t*Q96/P.
	diff := new(uint256.Int).Sub(next, sqrtPriceX96)
	t := new(uint256.Int).Mul(liquidity, diff)
	t.Div(t, next)
	o := t.Mul(t, q96)
	return o.Div(o, sqrtPriceX96), next, nil
}
