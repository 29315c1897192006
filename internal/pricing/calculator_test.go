package pricing

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbstack/flasharb/internal/domain"
)

type stubPools struct {
	states map[string]PoolState
}

func (s *stubPools) Snapshot(venueID, tokenIn, tokenOut string) (PoolState, error) {
	state, ok := s.states[venueID]
	if !ok {
		return PoolState{}, fmt.Errorf("venue %q: %w", venueID, domain.ErrNotFound)
	}
	return state, nil
}

type stubBridges struct {
	fee   *uint256.Int
	calls int
}

func (s *stubBridges) EstimateFee(fromNetwork, toNetwork, asset string, amount *uint256.Int) (*uint256.Int, error) {
	s.calls++
	return new(uint256.Int).Set(s.fee), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func crossVenuePools() *stubPools {
	return &stubPools{states: map[string]PoolState{
		"v1": {
			Model:      domain.ModelConstantProduct,
			ReserveIn:  uint256.NewInt(1_000_000_000),
			ReserveOut: uint256.NewInt(2_000_000_000),
		},
		"v2": {
			Model:      domain.ModelConstantProduct,
			ReserveIn:  uint256.NewInt(2_000_000_000),
			ReserveOut: uint256.NewInt(1_030_000_000),
		},
	}}
}

func crossVenueRoute() domain.Route {
	return domain.Route{Legs: []domain.Leg{
		{Venue: "v1", TokenIn: "WETH", TokenOut: "USDC"},
		{Venue: "v2", TokenIn: "USDC", TokenOut: "WETH"},
	}}
}

func TestCalculatorSimulate(t *testing.T) {
	calc := NewCalculator(crossVenuePools(), &stubBridges{fee: uint256.NewInt(0)}, 0, testLogger())

	t.Run("carries each output into the next leg", func(t *testing.T) {
		outs, err := calc.Simulate(crossVenueRoute(), uint256.NewInt(1_000_000))
		require.NoError(t, err)
		require.Len(t, outs, 2)
		assert.Equal(t, "1998001", outs[0].Dec())
		assert.Equal(t, "1027943", outs[1].Dec())
	})

	t.Run("empty route rejected", func(t *testing.T) {
		_, err := calc.Simulate(domain.Route{}, uint256.NewInt(100))
		assert.Error(t, err)
	})

	t.Run("unknown venue surfaces snapshot error", func(t *testing.T) {
		route := domain.Route{Legs: []domain.Leg{{Venue: "nope", TokenIn: "A", TokenOut: "B"}}}
		_, err := calc.Simulate(route, uint256.NewInt(100))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCalculatorQuote(t *testing.T) {
	req := domain.ArbitrageRequest{
		ID:       "q-1",
		Kind:     domain.CrossVenueSimple,
		AmountIn: uint256.NewInt(1_000_000),
	}

	t.Run("profitable round trip", func(t *testing.T) {
		calc := NewCalculator(crossVenuePools(), &stubBridges{fee: uint256.NewInt(0)}, 5_000, testLogger())
		q, err := calc.Quote(crossVenueRoute(), req, 9, nil)
		require.NoError(t, err)

		assert.Equal(t, "1027943", q.ExpectedOut.Dec())
		assert.Equal(t, "900", q.CapitalFee.Dec())
		assert.Equal(t, "10000", q.Overhead.Dec())
		assert.True(t, q.BridgeFees.IsZero())
		// 1027943 - 1000000 - 900 - 10000
		assert.Equal(t, "17043", q.NetProfit.String())
		assert.True(t, q.Profitable)
	})

	t.Run("min profit threshold flips the verdict", func(t *testing.T) {
		calc := NewCalculator(crossVenuePools(), &stubBridges{fee: uint256.NewInt(0)}, 5_000, testLogger())
		strict := req
		strict.MinProfit = uint256.NewInt(20_000)
		q, err := calc.Quote(crossVenueRoute(), strict, 9, nil)
		require.NoError(t, err)
		assert.False(t, q.Profitable)
	})

	t.Run("deterministic for identical snapshots", func(t *testing.T) {
		calc := NewCalculator(crossVenuePools(), &stubBridges{fee: uint256.NewInt(0)}, 5_000, testLogger())
		q1, err := calc.Quote(crossVenueRoute(), req, 9, nil)
		require.NoError(t, err)
		q2, err := calc.Quote(crossVenueRoute(), req, 9, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, q1.ExpectedOut.Cmp(q2.ExpectedOut))
		assert.Equal(t, 0, q1.NetProfit.Cmp(q2.NetProfit))
	})

	t.Run("bridge fees charged per network hop", func(t *testing.T) {
		bridges := &stubBridges{fee: uint256.NewInt(500)}
		calc := NewCalculator(crossVenuePools(), bridges, 0, testLogger())

		route := crossVenueRoute()
		route.Legs[0].Network = "ethereum"
		route.Legs[1].Network = "arbitrum"
		q, err := calc.Quote(route, req, 0, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, bridges.calls)
		assert.Equal(t, "500", q.BridgeFees.Dec())
		// 1027943 - 1000000 - 500
		assert.Equal(t, "27443", q.NetProfit.String())
	})

	t.Run("same network hops skip the bridge", func(t *testing.T) {
		bridges := &stubBridges{fee: uint256.NewInt(500)}
		calc := NewCalculator(crossVenuePools(), bridges, 0, testLogger())

		route := crossVenueRoute()
		route.Legs[0].Network = "ethereum"
		route.Legs[1].Network = "ethereum"
		_, err := calc.Quote(route, req, 0, nil)
		require.NoError(t, err)
		assert.Zero(t, bridges.calls)
	})

	t.Run("side term added to net profit", func(t *testing.T) {
		calc := NewCalculator(crossVenuePools(), &stubBridges{fee: uint256.NewInt(0)}, 0, testLogger())
		base, err := calc.Quote(crossVenueRoute(), req, 0, nil)
		require.NoError(t, err)

		withSide, err := calc.Quote(crossVenueRoute(), req, 0, func(expected *uint256.Int) (*uint256.Int, error) {
			return uint256.NewInt(1_234), nil
		})
		require.NoError(t, err)

		diff := new(big.Int).Sub(withSide.NetProfit, base.NetProfit)
		assert.Equal(t, "1234", diff.String())
		assert.Equal(t, "1234", withSide.SideProfit.Dec())
	})
}

func TestMinOutForLeg(t *testing.T) {
	expected := uint256.NewInt(1_000_000)
	assert.Equal(t, "995000", MinOutForLeg(expected, 50).Dec())
	assert.Equal(t, "1000000", MinOutForLeg(expected, 0).Dec())
	assert.Equal(t, "0", MinOutForLeg(expected, 10_000).Dec())
	assert.Equal(t, "0", MinOutForLeg(expected, 20_000).Dec())
}
