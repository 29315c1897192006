package pricing

import (
	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// maxStableIter bounds the Newton iterations for the stable-swap invariant.
const maxStableIter = 255

// stableSwapOut prices a swap against a stable-swap pool by solving the
// invariant: compute D from the current balances, then the new balance y of
// the output coin after the input coin grows by inEff. out = y_old - y - 1
// (the -1 absorbs rounding in the solver, matching reference pools).
func stableSwapOut(inEff *uint256.Int, balances []*uint256.Int, iIn, iOut int, amp uint64) (*uint256.Int, error) {
	n := len(balances)
	if n < 2 || iIn < 0 || iOut < 0 || iIn >= n || iOut >= n || iIn == iOut || amp == 0 {
		return nil, domain.ErrInsufficientLiq
	}
	for _, b := range balances {
		if b == nil || b.IsZero() {
			return nil, domain.ErrInsufficientLiq
		}
	}

	d, ok := stableD(balances, amp)
	if !ok {
		return nil, domain.ErrInsufficientLiq
	}

	xNew := new(uint256.Int).Add(balances[iIn], inEff)
	y, ok := stableY(balances, iIn, iOut, xNew, amp, d)
	if !ok || y.Cmp(balances[iOut]) >= 0 {
		return nil, domain.ErrInsufficientLiq
	}

	out := new(uint256.Int).Sub(balances[iOut], y)
	if out.IsZero() {
		return out, nil
	}
	return out.Sub(out, uint256.NewInt(1)), nil
}

// stableD computes the invariant D by Newton iteration:
//
//	D = (Ann*S + n*D_P) * D / ((Ann-1)*D + (n+1)*D_P)
//
// where D_P = D^(n+1) / (n^n * prod(x)) and Ann = amp * n.
func stableD(balances []*uint256.Int, amp uint64) (*uint256.Int, bool) {
	n := uint64(len(balances))
	s := new(uint256.Int)
	for _, b := range balances {
		s.Add(s, b)
	}
	if s.IsZero() {
		return nil, false
	}

	d := new(uint256.Int).Set(s)
	ann := uint256.NewInt(amp * n)
	nInt := uint256.NewInt(n)

	for i := 0; i < maxStableIter; i++ {
		dp := new(uint256.Int).Set(d)
		for _, b := range balances {
			den := new(uint256.Int).Mul(b, nInt)
			dp.Mul(dp, d)
			dp.Div(dp, den)
		}
		prev := new(uint256.Int).Set(d)

		// numerator: (Ann*S + n*D_P) * D
		num := new(uint256.Int).Mul(ann, s)
		num.Add(num, new(uint256.Int).Mul(dp, nInt))
		num.Mul(num, d)
		// denominator: (Ann-1)*D + (n+1)*D_P
		den := new(uint256.Int).Mul(new(uint256.Int).Sub(ann, uint256.NewInt(1)), d)
		den.Add(den, new(uint256.Int).Mul(new(uint256.Int).Add(nInt, uint256.NewInt(1)), dp))

		d = num.Div(num, den)
		if converged(d, prev) {
			return d, true
		}
	}
	return nil, false
}

// stableY solves for the output-coin balance y that keeps the invariant D
// when coin iIn's balance becomes xNew.
func stableY(balances []*uint256.Int, iIn, iOut int, xNew *uint256.Int, amp uint64, d *uint256.Int) (*uint256.Int, bool) {
	n := uint64(len(balances))
	ann := uint256.NewInt(amp * n)
	nInt := uint256.NewInt(n)

	c := new(uint256.Int).Set(d)
	s := new(uint256.Int)
	for k := range balances {
		if k == iOut {
			continue
		}
		x := balances[k]
		if k == iIn {
			x = xNew
		}
		s.Add(s, x)
		den := new(uint256.Int).Mul(x, nInt)
		c.Mul(c, d)
		c.Div(c, den)
	}
	// c = c * D / (Ann * n)
	c.Mul(c, d)
	c.Div(c, new(uint256.Int).Mul(ann, nInt))
	// b = S + D/Ann
	b := new(uint256.Int).Div(d, ann)
	b.Add(b, s)

	y := new(uint256.Int).Set(d)
	for i := 0; i < maxStableIter; i++ {
		prev := new(uint256.Int).Set(y)
		// y = (y*y + c) / (2y + b - D)
		num := new(uint256.Int).Mul(y, y)
		num.Add(num, c)
		den := new(uint256.Int).Lsh(new(uint256.Int).Set(y), 1)
		den.Add(den, b)
		if den.Cmp(d) <= 0 {
			return nil, false
		}
		den.Sub(den, d)
		y = num.Div(num, den)
		if converged(y, prev) {
			return y, true
		}
	}
	return nil, false
}

// converged reports |a-b| <= 1.
func converged(a, b *uint256.Int) bool {
	var diff uint256.Int
	if a.Cmp(b) >= 0 {
		diff.Sub(a, b)
	} else {
		diff.Sub(b, a)
	}
	return diff.CmpUint64(1) <= 0
}
