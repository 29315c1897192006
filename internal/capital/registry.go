package capital

import (
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// AutoSelect is the capitalProvider value asking the engine to pick the best
// registered provider for the requested amount.
const AutoSelect = "auto"

// Registry manages registered capital providers. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registration
}

type registration struct {
	info     domain.ProviderInfo
	provider Provider
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*registration)}
}

// Register adds a provider under its declared ID, replacing any existing
// registration.
func (r *Registry) Register(info domain.ProviderInfo, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[info.ID] = &registration{info: info, provider: p}
}

// Get returns the registration and implementation for an enabled provider.
func (r *Registry) Get(id string) (domain.ProviderInfo, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.providers[id]
	if !ok {
		return domain.ProviderInfo{}, nil, fmt.Errorf("provider %q: %w", id, domain.ErrNotFound)
	}
	if !reg.info.Enabled {
		return domain.ProviderInfo{}, nil, fmt.Errorf("provider %q: %w", id, domain.ErrProviderDisabled)
	}
	return reg.info, reg.provider, nil
}

// Select picks the best enabled provider able to lend amount: lowest fee
// rate first, ties broken by highest available liquidity, then by lowest ID
// so the choice is stable across runs.
func (r *Registry) Select(amount *uint256.Int) (domain.ProviderInfo, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *registration
	for _, reg := range r.providers {
		if !reg.info.Enabled {
			continue
		}
		if reg.info.MaxLoan != nil && amount.Cmp(reg.info.MaxLoan) > 0 {
			continue
		}
		if reg.info.Liquidity != nil && amount.Cmp(reg.info.Liquidity) > 0 {
			continue
		}
		if best == nil || better(reg.info, best.info) {
			best = reg
		}
	}
	if best == nil {
		return domain.ProviderInfo{}, nil, fmt.Errorf("provider for amount %s: %w", amount.Dec(), domain.ErrNotFound)
	}
	return best.info, best.provider, nil
}

func better(a, b domain.ProviderInfo) bool {
	if a.FeeRateBps != b.FeeRateBps {
		return a.FeeRateBps < b.FeeRateBps
	}
	switch {
	case a.Liquidity == nil && b.Liquidity == nil:
	case a.Liquidity == nil:
		return false
	case b.Liquidity == nil:
		return true
	default:
		if c := a.Liquidity.Cmp(b.Liquidity); c != 0 {
			return c > 0
		}
	}
	return a.ID < b.ID
}

// SetEnabled flips a provider's enabled flag.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.providers[id]
	if !ok {
		return fmt.Errorf("provider %q: %w", id, domain.ErrNotFound)
	}
	reg.info.Enabled = enabled
	return nil
}

// List returns all registrations sorted by ID.
func (r *Registry) List() []domain.ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProviderInfo, 0, len(r.providers))
	for _, reg := range r.providers {
		out = append(out, reg.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
