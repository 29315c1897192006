package engine

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// Treasury holds the engine's own capital, used as the principal source for
// self-funded attempts. It is shared across attempts and guarded by a mutex.
type Treasury struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
}

// NewTreasury creates a Treasury with the given starting balances.
func NewTreasury(balances map[string]*uint256.Int) *Treasury {
	t := &Treasury{balances: make(map[string]*uint256.Int, len(balances))}
	for asset, bal := range balances {
		t.balances[asset] = new(uint256.Int).Set(bal)
	}
	return t
}

// Withdraw debits amount of asset, failing without mutation when the
// balance is short.
func (t *Treasury) Withdraw(asset string, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[asset]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("treasury: asset %s: %w", asset, domain.ErrInsufficientLiq)
	}
	bal.Sub(bal, amount)
	return nil
}

// Deposit credits amount of asset.
func (t *Treasury) Deposit(asset string, amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[asset]
	if !ok {
		bal = new(uint256.Int)
		t.balances[asset] = bal
	}
	bal.Add(bal, amount)
}

// Balance returns the current balance of asset.
func (t *Treasury) Balance(asset string) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[asset]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}
