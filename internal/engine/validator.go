package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arbstack/flasharb/internal/bridge"
	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/venue"
)

// ValidationError is the specific reason the validator rejected a route.
// The first failing check short-circuits; no partial results are cached.
type ValidationError struct {
	Check  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid route: %s: %s", e.Check, e.Detail)
}

// Validator checks a built route before any capital is committed.
type Validator struct {
	venues  *venue.Registry
	bridges *bridge.Registry

	mu      sync.RWMutex
	allowed map[string]struct{}
}

// NewValidator creates a Validator with the supported-asset allowlist.
func NewValidator(venues *venue.Registry, bridges *bridge.Registry, allowedTokens []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedTokens))
	for _, t := range allowedTokens {
		allowed[t] = struct{}{}
	}
	return &Validator{venues: venues, bridges: bridges, allowed: allowed}
}

// AllowToken adds a token to the supported-asset allowlist.
func (v *Validator) AllowToken(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.allowed[token] = struct{}{}
}

// DenyToken removes a token from the allowlist.
func (v *Validator) DenyToken(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.allowed, token)
}

// AllowedTokens returns the allowlist in sorted order.
func (v *Validator) AllowedTokens() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.allowed))
	for t := range v.allowed {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (v *Validator) tokenAllowed(token string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.allowed[token]
	return ok
}

// Validate runs the pre-capital checks in order: length compatibility,
// venue registration and enablement, token allowlist, leg continuity, and
// bridge coverage for cross-network routes. The deadline guard is applied
// here, once; it is not re-checked mid-execution.
func (v *Validator) Validate(req domain.ArbitrageRequest, route domain.Route) error {
	if len(route.Legs) == 0 {
		return &ValidationError{Check: "length", Detail: "empty route"}
	}
	if req.Kind.IsCrossNetwork() && len(req.Networks) < 2 {
		return &ValidationError{Check: "length", Detail: "cross-network kind without network pair"}
	}
	if !req.Deadline.IsZero() && time.Now().After(req.Deadline) {
		return &ValidationError{Check: "deadline", Detail: "deadline expired"}
	}

	for i, leg := range route.Legs {
		info, err := v.venues.Info(leg.Venue)
		if err != nil {
			return &ValidationError{Check: "venue", Detail: fmt.Sprintf("leg %d: venue %q not registered", i, leg.Venue)}
		}
		if !info.Enabled {
			return &ValidationError{Check: "venue", Detail: fmt.Sprintf("leg %d: venue %q disabled", i, leg.Venue)}
		}
	}

	for i, leg := range route.Legs {
		if !v.tokenAllowed(leg.TokenIn) {
			return &ValidationError{Check: "allowlist", Detail: fmt.Sprintf("leg %d: token %q not supported", i, leg.TokenIn)}
		}
		if !v.tokenAllowed(leg.TokenOut) {
			return &ValidationError{Check: "allowlist", Detail: fmt.Sprintf("leg %d: token %q not supported", i, leg.TokenOut)}
		}
	}

	if !route.Continuous() {
		return &ValidationError{Check: "continuity", Detail: "adjacent legs do not connect"}
	}

	if req.Kind.IsCrossNetwork() {
		for i := 0; i+1 < len(route.Legs); i++ {
			from, to := route.Legs[i].Network, route.Legs[i+1].Network
			if from == "" || to == "" || from == to {
				continue
			}
			if _, err := v.bridges.Get(from, to); err != nil {
				return &ValidationError{
					Check:  "bridge",
					Detail: fmt.Sprintf("no bridge registered for %s->%s", from, to),
				}
			}
		}
	}

	return nil
}
