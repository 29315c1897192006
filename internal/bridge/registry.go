// Package bridge tracks registered cross-network value-transfer routes and
// estimates their fees. Bridges are a pluggable transport with a fee and a
// declared confirmation time; the engine never waits on one.
package bridge

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
)

// Registry holds one bridge registration per directed network pair. Safe for
// concurrent use and implements pricing.BridgeFeeEstimator.
type Registry struct {
	mu      sync.RWMutex
	bridges map[pairKey]*domain.BridgeInfo
}

type pairKey struct {
	from string
	to   string
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{bridges: make(map[pairKey]*domain.BridgeInfo)}
}

// Register adds a bridge for its (from, to) pair, replacing any existing
// registration for that pair.
func (r *Registry) Register(info domain.BridgeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := info
	if info.FlatFee != nil {
		copied.FlatFee = new(uint256.Int).Set(info.FlatFee)
	}
	r.bridges[pairKey{from: info.FromNetwork, to: info.ToNetwork}] = &copied
}

// Get returns the enabled bridge for the directed network pair.
func (r *Registry) Get(from, to string) (domain.BridgeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.bridges[pairKey{from: from, to: to}]
	if !ok {
		return domain.BridgeInfo{}, fmt.Errorf("bridge %s->%s: %w", from, to, domain.ErrNotFound)
	}
	if !info.Enabled {
		return domain.BridgeInfo{}, fmt.Errorf("bridge %s->%s: %w", from, to, domain.ErrVenueDisabled)
	}
	return *info, nil
}

// EstimateFee implements pricing.BridgeFeeEstimator:
// fee = amount * feeBps / 10000 + flatFee, rounded down.
func (r *Registry) EstimateFee(from, to, asset string, amount *uint256.Int) (*uint256.Int, error) {
	info, err := r.Get(from, to)
	if err != nil {
		return nil, err
	}
	fee := pricing.FeePortion(amount, info.FeeBps)
	if info.FlatFee != nil {
		fee.Add(fee, info.FlatFee)
	}
	return fee, nil
}

// ConfirmationTime returns the declared confirmation time for the pair. It
// is informational only.
func (r *Registry) ConfirmationTime(from, to string) (time.Duration, error) {
	info, err := r.Get(from, to)
	if err != nil {
		return 0, err
	}
	return info.ConfirmationTime, nil
}

// SetEnabled flips a bridge's enabled flag.
func (r *Registry) SetEnabled(from, to string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.bridges[pairKey{from: from, to: to}]
	if !ok {
		return fmt.Errorf("bridge %s->%s: %w", from, to, domain.ErrNotFound)
	}
	info.Enabled = enabled
	return nil
}

// List returns all registrations sorted by (from, to).
func (r *Registry) List() []domain.BridgeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.BridgeInfo, 0, len(r.bridges))
	for _, info := range r.bridges {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromNetwork != out[j].FromNetwork {
			return out[i].FromNetwork < out[j].FromNetwork
		}
		return out[i].ToNetwork < out[j].ToNetwork
	})
	return out
}
