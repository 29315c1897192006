// Package venue defines the uniform adapter contract the executor uses to
// trade on heterogeneous venues, a registry of venue registrations, and an
// in-process simulated venue used for tests and the sim mode.
package venue

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/pricing"
)

// SwapParams describes one leg execution against a venue.
type SwapParams struct {
	TokenIn      string
	TokenOut     string
	AmountIn     *uint256.Int
	MinAmountOut *uint256.Int
}

// Adapter is the uniform venue contract. Swap must fail, not clamp, when the
// output would fall below MinAmountOut. Revert is the compensating action
// for an already-applied swap: the executor calls it in reverse order when an
// attempt aborts, restoring the venue to its pre-swap state.
type Adapter interface {
	Swap(ctx context.Context, p SwapParams) (*uint256.Int, error)
	Revert(ctx context.Context, p SwapParams, amountOut *uint256.Int) error
	Snapshot(tokenIn, tokenOut string) (pricing.PoolState, error)
}
