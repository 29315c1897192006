package pricing

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// SnapshotSource yields pool snapshots for simulation. Given identical
// snapshots the calculator is fully deterministic.
type SnapshotSource interface {
	Snapshot(venueID, tokenIn, tokenOut string) (PoolState, error)
}

// BridgeFeeEstimator estimates the fee of moving an asset between two
// networks. Used only for cross-network routes.
type BridgeFeeEstimator interface {
	EstimateFee(fromNetwork, toNetwork, asset string, amount *uint256.Int) (*uint256.Int, error)
}

// Quote is the calculator's go/no-go verdict for one route.
type Quote struct {
	ExpectedOut *uint256.Int
	LegOuts     []*uint256.Int
	CapitalFee  *uint256.Int
	BridgeFees  *uint256.Int
	Overhead    *uint256.Int
	SideProfit  *uint256.Int
	NetProfit   *big.Int
	Profitable  bool
}

// Calculator simulates routes leg by leg and decides profitability against a
// request's minimum-profit threshold. It never mutates venue state.
type Calculator struct {
	pools          SnapshotSource
	bridges        BridgeFeeEstimator
	overheadPerLeg uint64
	logger         *slog.Logger
}

// NewCalculator creates a Calculator. overheadPerLeg is the flat estimated
// execution cost charged per leg, in the smallest unit of the principal
// asset.
func NewCalculator(pools SnapshotSource, bridges BridgeFeeEstimator, overheadPerLeg uint64, logger *slog.Logger) *Calculator {
	return &Calculator{
		pools:          pools,
		bridges:        bridges,
		overheadPerLeg: overheadPerLeg,
		logger:         logger.With(slog.String("component", "calculator")),
	}
}

// Simulate runs the route leg by leg, carrying each simulated output into
// the next leg's input, and returns the per-leg outputs. The final element
// is the route's expected output.
func (c *Calculator) Simulate(route domain.Route, amountIn *uint256.Int) ([]*uint256.Int, error) {
	if len(route.Legs) == 0 {
		return nil, fmt.Errorf("calculator: empty route")
	}
	outs := make([]*uint256.Int, 0, len(route.Legs))
	carry := new(uint256.Int).Set(amountIn)
	for i, leg := range route.Legs {
		state, err := c.pools.Snapshot(leg.Venue, leg.TokenIn, leg.TokenOut)
		if err != nil {
			return nil, fmt.Errorf("calculator: leg %d snapshot %s: %w", i, leg.Venue, err)
		}
		out, err := SwapOut(state, carry)
		if err != nil {
			return nil, fmt.Errorf("calculator: leg %d simulate %s: %w", i, leg.Venue, err)
		}
		outs = append(outs, out)
		carry = out
	}
	return outs, nil
}

// SideFn computes a strategy-specific side profitability term from the
// simulated route output. It must be a pure function; nil means a zero side
// term.
type SideFn func(expectedOut *uint256.Int) (*uint256.Int, error)

// Quote simulates the route and decides go/no-go. capitalFeeBps is the
// selected provider's fee rate (zero for self-funded attempts).
func (c *Calculator) Quote(route domain.Route, req domain.ArbitrageRequest, capitalFeeBps uint64, sideFn SideFn) (Quote, error) {
	legOuts, err := c.Simulate(route, req.AmountIn)
	if err != nil {
		return Quote{}, err
	}
	expected := legOuts[len(legOuts)-1]

	capitalFee := FeePortion(req.AmountIn, capitalFeeBps)
	overhead := uint256.NewInt(c.overheadPerLeg * uint64(len(route.Legs)))

	bridgeFees := uint256.NewInt(0)
	for i := 0; i+1 < len(route.Legs); i++ {
		from, to := route.Legs[i].Network, route.Legs[i+1].Network
		if from == "" || to == "" || from == to {
			continue
		}
		fee, err := c.bridges.EstimateFee(from, to, route.Legs[i].TokenOut, legOuts[i])
		if err != nil {
			return Quote{}, fmt.Errorf("calculator: bridge %s->%s: %w", from, to, err)
		}
		bridgeFees.Add(bridgeFees, fee)
	}

	side := uint256.NewInt(0)
	if sideFn != nil {
		side, err = sideFn(expected)
		if err != nil {
			return Quote{}, fmt.Errorf("calculator: side term: %w", err)
		}
		if side == nil {
			side = uint256.NewInt(0)
		}
	}

	// net = expected + side - amountIn - capitalFee - bridgeFees - overhead
	net := new(big.Int).Add(expected.ToBig(), side.ToBig())
	net.Sub(net, req.AmountIn.ToBig())
	net.Sub(net, capitalFee.ToBig())
	net.Sub(net, bridgeFees.ToBig())
	net.Sub(net, overhead.ToBig())

	minProfit := new(big.Int)
	if req.MinProfit != nil {
		minProfit = req.MinProfit.ToBig()
	}

	q := Quote{
		ExpectedOut: expected,
		LegOuts:     legOuts,
		CapitalFee:  capitalFee,
		BridgeFees:  bridgeFees,
		Overhead:    overhead,
		SideProfit:  side,
		NetProfit:   net,
		Profitable:  net.Cmp(minProfit) >= 0,
	}
	c.logger.Debug("route quoted",
		slog.String("expected_out", expected.Dec()),
		slog.String("net_profit", net.String()),
		slog.Bool("profitable", q.Profitable),
	)
	return q, nil
}

// MinOutForLeg derives the per-leg minimum-output guard from the expected
// output and the request's slippage tolerance, rounding the floor down.
func MinOutForLeg(expected *uint256.Int, maxSlipBps uint64) *uint256.Int {
	if maxSlipBps >= bpsDenom {
		return uint256.NewInt(0)
	}
	min := new(uint256.Int).Mul(expected, uint256.NewInt(bpsDenom-maxSlipBps))
	return min.Div(min, uint256.NewInt(bpsDenom))
}
