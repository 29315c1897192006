package pricing

import (
	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// constantProductOut prices a swap against an x*y=k pool:
// out = reserveOut * in / (reserveIn + in), rounded down. The fee has
// already been deducted from in by the caller.
func constantProductOut(inEff, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, domain.ErrInsufficientLiq
	}
	num := new(uint256.Int).Mul(reserveOut, inEff)
	den := new(uint256.Int).Add(reserveIn, inEff)
	out := num.Div(num, den)
	if out.Cmp(reserveOut) >= 0 {
		return nil, domain.ErrInsufficientLiq
	}
	return out, nil
}
