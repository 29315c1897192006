package capital

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
)

// SimProvider is a treasury-backed in-process capital provider. A loan
// debits the treasury, runs the callback, and either collects amount+fee or
// restores the treasury to its pre-loan balance.
type SimProvider struct {
	mu       sync.Mutex
	info     domain.ProviderInfo
	treasury map[string]*uint256.Int
}

// NewSim creates a SimProvider whose treasury holds balances per asset.
func NewSim(info domain.ProviderInfo, treasury map[string]*uint256.Int) *SimProvider {
	t := make(map[string]*uint256.Int, len(treasury))
	for asset, bal := range treasury {
		t[asset] = new(uint256.Int).Set(bal)
	}
	return &SimProvider{info: info, treasury: t}
}

// Info returns the provider's registration record.
func (p *SimProvider) Info() domain.ProviderInfo { return p.info }

// Balance returns the treasury balance for asset. Used by tests to assert
// the atomicity property: after an aborted attempt the balance is unchanged.
func (p *SimProvider) Balance(asset string) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	bal, ok := p.treasury[asset]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}

// Initiate implements Provider. The callback runs while the treasury lock is
// held: the loan and its repayment are one indivisible unit.
func (p *SimProvider) Initiate(ctx context.Context, asset string, amount *uint256.Int, cb Callback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.info.Enabled {
		return fmt.Errorf("provider %q: %w", p.info.ID, domain.ErrProviderDisabled)
	}
	if p.info.MaxLoan != nil && amount.Cmp(p.info.MaxLoan) > 0 {
		return fmt.Errorf("provider %q: amount %s exceeds max loan: %w",
			p.info.ID, amount.Dec(), domain.ErrInsufficientLiq)
	}
	bal, ok := p.treasury[asset]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("provider %q: asset %s: %w", p.info.ID, asset, domain.ErrInsufficientLiq)
	}

	loan := domain.CapitalLoan{
		Provider: p.info.ID,
		Asset:    asset,
		Amount:   new(uint256.Int).Set(amount),
		Fee:      pricing.FeePortion(amount, p.info.FeeRateBps),
	}

	bal.Sub(bal, amount)

	repayment, err := cb(ctx, loan)
	if err != nil {
		bal.Add(bal, amount)
		return fmt.Errorf("provider %q: callback: %w", p.info.ID, err)
	}
	if repayment == nil || repayment.Cmp(loan.Owed()) < 0 {
		bal.Add(bal, amount)
		return fmt.Errorf("provider %q: %w", p.info.ID, domain.ErrLoanNotRepaid)
	}

	bal.Add(bal, repayment)
	return nil
}
