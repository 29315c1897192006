package domain

import "github.com/holiman/uint256"

// CapitalLoan is the ephemeral record of one flash loan. It exists only
// between "loan granted" and "loan repaid" within a single atomic attempt;
// if the attempt aborts the loan is annulled along with everything else.
type CapitalLoan struct {
	Provider string
	Asset    string
	Amount   *uint256.Int
	Fee      *uint256.Int
}

// Owed returns amount + fee, the balance the provider must be able to
// reclaim before its callback returns.
func (l CapitalLoan) Owed() *uint256.Int {
	return new(uint256.Int).Add(l.Amount, l.Fee)
}
