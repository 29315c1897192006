package pricing

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// weightedOut prices a swap against a weighted pool:
//
//	out = reserveOut * (1 - (reserveIn / (reserveIn + in))^(wIn/wOut))
//
// The exponentiation is carried out in float64, so precision is bounded by
// the float mantissa; that is acceptable for a go/no-go estimate. The final
// scaling by reserveOut happens in big.Float so outputs larger than a
// machine word survive intact, and the result is truncated toward zero,
// never rounded up.
func weightedOut(inEff, reserveIn, reserveOut *uint256.Int, wIn, wOut uint64) (*uint256.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() || wIn == 0 || wOut == 0 {
		return nil, domain.ErrInsufficientLiq
	}

	rIn := reserveIn.Float64()
	in := inEff.Float64()

	base := rIn / (rIn + in)
	power := float64(wIn) / float64(wOut)
	ratio := 1 - math.Pow(base, power)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return uint256.NewInt(0), nil
	}
	if ratio >= 1 {
		return nil, domain.ErrInsufficientLiq
	}

	outF := new(big.Float).Mul(new(big.Float).SetInt(reserveOut.ToBig()), big.NewFloat(ratio))
	outBig, _ := outF.Int(nil)
	out, overflow := uint256.FromBig(outBig)
	if overflow || out.Cmp(reserveOut) >= 0 {
		return nil, domain.ErrInsufficientLiq
	}
	return out, nil
}
