package venue

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
)

// Registry manages the set of registered venues and their adapters. It is
// safe for concurrent use and implements pricing.SnapshotSource for the
// calculator.
type Registry struct {
	mu     sync.RWMutex
	venues map[string]*registration
}

type registration struct {
	info    domain.VenueInfo
	adapter Adapter
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{venues: make(map[string]*registration)}
}

// Register adds a venue under its declared ID. An existing registration with
// the same ID is replaced.
func (r *Registry) Register(info domain.VenueInfo, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[info.ID] = &registration{info: info, adapter: adapter}
}

// Info returns the registration record for a venue ID.
func (r *Registry) Info(id string) (domain.VenueInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.venues[id]
	if !ok {
		return domain.VenueInfo{}, fmt.Errorf("venue %q: %w", id, domain.ErrNotFound)
	}
	return reg.info, nil
}

// Adapter returns the adapter for an enabled venue.
func (r *Registry) Adapter(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.venues[id]
	if !ok {
		return nil, fmt.Errorf("venue %q: %w", id, domain.ErrNotFound)
	}
	if !reg.info.Enabled {
		return nil, fmt.Errorf("venue %q: %w", id, domain.ErrVenueDisabled)
	}
	return reg.adapter, nil
}

// SetEnabled flips a venue's enabled flag. Used by the administrative
// surface only.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.venues[id]
	if !ok {
		return fmt.Errorf("venue %q: %w", id, domain.ErrNotFound)
	}
	reg.info.Enabled = enabled
	return nil
}

// List returns all registrations sorted by ID.
func (r *Registry) List() []domain.VenueInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.VenueInfo, 0, len(r.venues))
	for _, reg := range r.venues {
		out = append(out, reg.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot implements pricing.SnapshotSource. Disabled venues cannot be
// simulated against.
func (r *Registry) Snapshot(venueID, tokenIn, tokenOut string) (pricing.PoolState, error) {
	adapter, err := r.Adapter(venueID)
	if err != nil {
		return pricing.PoolState{}, err
	}
	return adapter.Snapshot(tokenIn, tokenOut)
}
