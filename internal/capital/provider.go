// Package capital defines the borrowed-capital (flash-loan) contract: a
// provider lends an amount, synchronously invokes the engine's callback, and
// must see amount+fee repaid before the callback returns, or the whole loan
// is annulled.
package capital

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// Callback is invoked by a provider once the borrowed amount has been made
// available. The implementation must return the repayment, at least
// loan.Owed() of the borrowed asset, before returning; a short repayment or
// an error causes the provider to roll the loan back atomically. There is no
// partial-loan state.
type Callback func(ctx context.Context, loan domain.CapitalLoan) (repayment *uint256.Int, err error)

// Provider is the uniform borrowed-capital contract.
type Provider interface {
	// Initiate lends amount of asset and fires cb within the same atomic
	// unit. On any callback failure the loan is undone and an error
	// returned; on success the provider has reclaimed amount+fee.
	Initiate(ctx context.Context, asset string, amount *uint256.Int, cb Callback) error
}
