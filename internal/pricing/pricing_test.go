package pricing

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbstack/flasharb/internal/domain"
)

func TestApplyFee(t *testing.T) {
	t.Run("zero fee returns amount unchanged", func(t *testing.T) {
		in := uint256.NewInt(1_000_000)
		out := ApplyFee(in, 0)
		assert.Equal(t, "1000000", out.Dec())
	})

	t.Run("30 bps deducted with floor", func(t *testing.T) {
		out := ApplyFee(uint256.NewInt(1_000_000), 30)
		assert.Equal(t, "997000", out.Dec())
	})

	t.Run("floor never rounds up", func(t *testing.T) {
		// 9999 * 9970 / 10000 = 9969.0003
		out := ApplyFee(uint256.NewInt(9_999), 30)
		assert.Equal(t, "9969", out.Dec())
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := uint256.NewInt(500)
		ApplyFee(in, 100)
		assert.Equal(t, "500", in.Dec())
	})
}

func TestFeePortion(t *testing.T) {
	assert.Equal(t, "900", FeePortion(uint256.NewInt(1_000_000), 9).Dec())
	assert.Equal(t, "0", FeePortion(uint256.NewInt(1_000_000), 0).Dec())
	// 999 * 30 / 10000 = 2.997 floors to 2
	assert.Equal(t, "2", FeePortion(uint256.NewInt(999), 30).Dec())
}

func TestSwapOutConstantProduct(t *testing.T) {
	pool := func(feeBps uint64, rIn, rOut uint64) PoolState {
		return PoolState{
			Model:      domain.ModelConstantProduct,
			FeeBps:     feeBps,
			ReserveIn:  uint256.NewInt(rIn),
			ReserveOut: uint256.NewInt(rOut),
		}
	}

	t.Run("balanced pool no fee", func(t *testing.T) {
		out, err := SwapOut(pool(0, 1_000, 1_000), uint256.NewInt(1_000))
		require.NoError(t, err)
		assert.Equal(t, "500", out.Dec())
	})

	t.Run("30 bps fee deducted before formula", func(t *testing.T) {
		// inEff = 9970, out = 1_000_000 * 9970 / 1_009_970 = 9871
		out, err := SwapOut(pool(30, 1_000_000, 1_000_000), uint256.NewInt(10_000))
		require.NoError(t, err)
		assert.Equal(t, "9871", out.Dec())
	})

	t.Run("zero input yields zero output", func(t *testing.T) {
		out, err := SwapOut(pool(30, 1_000_000, 1_000_000), uint256.NewInt(0))
		require.NoError(t, err)
		assert.True(t, out.IsZero())
	})

	t.Run("empty reserves rejected", func(t *testing.T) {
		_, err := SwapOut(pool(0, 0, 1_000), uint256.NewInt(100))
		assert.ErrorIs(t, err, domain.ErrInsufficientLiq)
	})

	t.Run("output strictly below reserve", func(t *testing.T) {
		out, err := SwapOut(pool(0, 10, 1_000_000), uint256.NewInt(1_000_000_000))
		require.NoError(t, err)
		assert.Less(t, out.Uint64(), uint64(1_000_000))
	})

	t.Run("fee lowers output", func(t *testing.T) {
		noFee, err := SwapOut(pool(0, 1_000_000, 1_000_000), uint256.NewInt(10_000))
		require.NoError(t, err)
		withFee, err := SwapOut(pool(100, 1_000_000, 1_000_000), uint256.NewInt(10_000))
		require.NoError(t, err)
		assert.Equal(t, -1, withFee.Cmp(noFee))
	})
}

func TestSwapOutWeighted(t *testing.T) {
	t.Run("equal weights match constant product closely", func(t *testing.T) {
		in := uint256.NewInt(10_000)
		cp, err := SwapOut(PoolState{
			Model:      domain.ModelConstantProduct,
			ReserveIn:  uint256.NewInt(1_000_000),
			ReserveOut: uint256.NewInt(2_000_000),
		}, in)
		require.NoError(t, err)
		w, err := SwapOut(PoolState{
			Model:      domain.ModelWeighted,
			ReserveIn:  uint256.NewInt(1_000_000),
			ReserveOut: uint256.NewInt(2_000_000),
			WeightIn:   5_000,
			WeightOut:  5_000,
		}, in)
		require.NoError(t, err)

		var diff uint256.Int
		if cp.Cmp(w) >= 0 {
			diff.Sub(cp, w)
		} else {
			diff.Sub(w, cp)
		}
		assert.LessOrEqual(t, diff.Uint64(), uint64(2))
	})

	t.Run("heavier output weight pays more", func(t *testing.T) {
		in := uint256.NewInt(10_000)
		base := PoolState{
			Model:      domain.ModelWeighted,
			ReserveIn:  uint256.NewInt(1_000_000),
			ReserveOut: uint256.NewInt(1_000_000),
			WeightIn:   5_000,
			WeightOut:  5_000,
		}
		even, err := SwapOut(base, in)
		require.NoError(t, err)

		skewed := base
		skewed.WeightIn = 8_000
		skewed.WeightOut = 2_000
		heavy, err := SwapOut(skewed, in)
		require.NoError(t, err)

		assert.Equal(t, 1, heavy.Cmp(even))
	})

	t.Run("zero weight rejected", func(t *testing.T) {
		_, err := SwapOut(PoolState{
			Model:      domain.ModelWeighted,
			ReserveIn:  uint256.NewInt(1_000),
			ReserveOut: uint256.NewInt(1_000),
			WeightIn:   0,
			WeightOut:  5_000,
		}, uint256.NewInt(10))
		assert.ErrorIs(t, err, domain.ErrInsufficientLiq)
	})

	t.Run("18-decimal reserves exceed a machine word", func(t *testing.T) {
		// 10,000 tokens at 18 decimals per side, 50 tokens in. The output
		// is near 5e19, which does not fit in a uint64.
		reserve := uint256.MustFromDecimal("10000000000000000000000")
		in := uint256.MustFromDecimal("50000000000000000000")

		cp, err := SwapOut(PoolState{
			Model:      domain.ModelConstantProduct,
			ReserveIn:  reserve.Clone(),
			ReserveOut: reserve.Clone(),
		}, in)
		require.NoError(t, err)
		w, err := SwapOut(PoolState{
			Model:      domain.ModelWeighted,
			ReserveIn:  reserve.Clone(),
			ReserveOut: reserve.Clone(),
			WeightIn:   5_000,
			WeightOut:  5_000,
		}, in)
		require.NoError(t, err)

		maxWord := new(uint256.Int).SetUint64(math.MaxUint64)
		assert.Equal(t, 1, w.Cmp(maxWord))

		var diff uint256.Int
		if cp.Cmp(w) >= 0 {
			diff.Sub(cp, w)
		} else {
			diff.Sub(w, cp)
		}
		assert.LessOrEqual(t, diff.Uint64(), uint64(1_000_000))
	})
}

func TestSwapOutStableSwap(t *testing.T) {
	balanced := func() PoolState {
		return PoolState{
			Model: domain.ModelStableSwap,
			Balances: []*uint256.Int{
				uint256.NewInt(1_000_000_000),
				uint256.NewInt(1_000_000_000),
			},
			IndexIn:  0,
			IndexOut: 1,
			Amp:      100,
		}
	}

	t.Run("near parity on balanced pool", func(t *testing.T) {
		in := uint256.NewInt(1_000_000)
		out, err := SwapOut(balanced(), in)
		require.NoError(t, err)
		assert.Equal(t, -1, out.Cmp(in))
		// High amplification keeps the curve flat: less than 0.1% away from
		// parity for a trade of 0.1% of the pool.
		floor := uint256.NewInt(999_000)
		assert.True(t, out.Cmp(floor) >= 0, "out %s below %s", out.Dec(), floor.Dec())
	})

	t.Run("higher amplification flattens the curve", func(t *testing.T) {
		in := uint256.NewInt(100_000_000)
		low := balanced()
		low.Amp = 10
		high := balanced()
		high.Amp = 1_000

		lowOut, err := SwapOut(low, in)
		require.NoError(t, err)
		highOut, err := SwapOut(high, in)
		require.NoError(t, err)
		assert.Equal(t, 1, highOut.Cmp(lowOut))
	})

	t.Run("same indexes rejected", func(t *testing.T) {
		p := balanced()
		p.IndexOut = 0
		_, err := SwapOut(p, uint256.NewInt(100))
		assert.ErrorIs(t, err, domain.ErrInsufficientLiq)
	})

	t.Run("three coin pool", func(t *testing.T) {
		p := PoolState{
			Model: domain.ModelStableSwap,
			Balances: []*uint256.Int{
				uint256.NewInt(1_000_000_000),
				uint256.NewInt(1_000_000_000),
				uint256.NewInt(1_000_000_000),
			},
			IndexIn:  0,
			IndexOut: 2,
			Amp:      100,
		}
		in := uint256.NewInt(1_000_000)
		out, err := SwapOut(p, in)
		require.NoError(t, err)
		assert.Equal(t, -1, out.Cmp(in))
		assert.False(t, out.IsZero())
	})
}

func TestConcentratedSwap(t *testing.T) {
	// Price 1.0 in Q64.96.
	price := func() *uint256.Int {
		one := uint256.NewInt(1)
		return one.Lsh(one, 96)
	}

	t.Run("zeroForOne near parity at price one", func(t *testing.T) {
		liq := uint256.NewInt(1_000_000_000_000)
		in := uint256.NewInt(1_000_000)
		out, next, err := ConcentratedSwap(in, price(), liq, true)
		require.NoError(t, err)
		assert.Equal(t, -1, out.Cmp(in))
		assert.True(t, out.Cmp(uint256.NewInt(999_000)) >= 0, "out %s", out.Dec())
		assert.Equal(t, -1, next.Cmp(price()), "price must fall when selling token0")
	})

	t.Run("oneForZero raises the price", func(t *testing.T) {
		liq := uint256.NewInt(1_000_000_000_000)
		in := uint256.NewInt(1_000_000)
		out, next, err := ConcentratedSwap(in, price(), liq, false)
		require.NoError(t, err)
		assert.Equal(t, 1, next.Cmp(price()))
		assert.Equal(t, -1, out.Cmp(in))
	})

	t.Run("zero liquidity rejected", func(t *testing.T) {
		_, _, err := ConcentratedSwap(uint256.NewInt(100), price(), uint256.NewInt(0), true)
		assert.ErrorIs(t, err, domain.ErrInsufficientLiq)
	})

	t.Run("deterministic", func(t *testing.T) {
		liq := uint256.NewInt(5_000_000_000)
		in := uint256.NewInt(123_456)
		out1, next1, err := ConcentratedSwap(in, price(), liq, true)
		require.NoError(t, err)
		out2, next2, err := ConcentratedSwap(in, price(), liq, true)
		require.NoError(t, err)
		assert.Equal(t, 0, out1.Cmp(out2))
		assert.Equal(t, 0, next1.Cmp(next2))
	})
}

func TestSwapOutUnknownModel(t *testing.T) {
	_, err := SwapOut(PoolState{Model: "curve_v9"}, uint256.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrUnknownPricingModel)
}
