// Package strategy maps each strategy kind to its leg-sequencing and
// profit-accounting logic. The mapping is closed: every supported kind is
// dispatched exhaustively and anything else fails fast with
// UnsupportedStrategy before validation or any capital movement.
package strategy

import (
	"fmt"

	"github.com/arbstack/flasharb/internal/domain"
)

// ErrUnsupported marks requests the dispatcher cannot map: an unknown kind
// or a kind/cardinality combination that does not exist.
type ErrUnsupported struct {
	Kind   domain.StrategyKind
	Detail string
}

func (e ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported strategy %q: %s", e.Kind, e.Detail)
}

// VenueDirectory resolves venue registration records when building legs.
// Unknown venues are tolerated here; the route validator rejects them with
// its own reason.
type VenueDirectory interface {
	Info(id string) (domain.VenueInfo, error)
}

// Descriptor carries the per-kind cardinality rules.
type Descriptor struct {
	Kind domain.StrategyKind

	// MinTokens/MaxTokens bound the token path length.
	MinTokens int
	MaxTokens int

	// SingleVenue means all legs execute on venues[0]; otherwise one venue
	// per leg is required.
	SingleVenue bool

	// MinNetworks is non-zero for cross-network kinds.
	MinNetworks int
}

// Dispatch returns the descriptor for a kind, or ErrUnsupported.
func Dispatch(kind domain.StrategyKind) (Descriptor, error) {
	switch kind {
	case domain.SameVenueSimple:
		return Descriptor{Kind: kind, MinTokens: 2, MaxTokens: 2, SingleVenue: true}, nil
	case domain.SameVenueTriangular:
		return Descriptor{Kind: kind, MinTokens: 3, MaxTokens: 3, SingleVenue: true}, nil
	case domain.CrossVenueSimple:
		return Descriptor{Kind: kind, MinTokens: 2, MaxTokens: 2}, nil
	case domain.CrossVenueTriangular:
		return Descriptor{Kind: kind, MinTokens: 3, MaxTokens: 3}, nil
	case domain.CrossNetworkSimple:
		return Descriptor{Kind: kind, MinTokens: 2, MaxTokens: 2, MinNetworks: 2}, nil
	case domain.CrossNetworkTriangular:
		return Descriptor{Kind: kind, MinTokens: 3, MaxTokens: 3, MinNetworks: 2}, nil
	case domain.IntentBased, domain.AccountAbstraction, domain.Modular,
		domain.LiquidityFragmentation, domain.GovernanceToken, domain.RealWorldAsset:
		// The specialized kinds share the generic execution skeleton and
		// allow longer paths.
		return Descriptor{Kind: kind, MinTokens: 2, MaxTokens: 4}, nil
	default:
		return Descriptor{}, ErrUnsupported{Kind: kind, Detail: "unknown kind"}
	}
}

// BuildRoute enforces the kind's cardinality invariants and builds the
// closed route for the request: tokens[0] -> tokens[1] -> ... -> tokens[0],
// one leg per hop including the closing hop.
func BuildRoute(req domain.ArbitrageRequest, dir VenueDirectory) (domain.Route, error) {
	desc, err := Dispatch(req.Kind)
	if err != nil {
		return domain.Route{}, err
	}

	n := len(req.Tokens)
	if n < desc.MinTokens || n > desc.MaxTokens {
		return domain.Route{}, ErrUnsupported{
			Kind:   req.Kind,
			Detail: fmt.Sprintf("%d tokens, want %d..%d", n, desc.MinTokens, desc.MaxTokens),
		}
	}

	legCount := n
	switch {
	case desc.SingleVenue:
		if len(req.Venues) != 1 {
			return domain.Route{}, ErrUnsupported{
				Kind:   req.Kind,
				Detail: fmt.Sprintf("%d venues, want exactly 1", len(req.Venues)),
			}
		}
	default:
		if len(req.Venues) != legCount {
			return domain.Route{}, ErrUnsupported{
				Kind:   req.Kind,
				Detail: fmt.Sprintf("%d venues, want %d", len(req.Venues), legCount),
			}
		}
	}

	if desc.MinNetworks > 0 && len(req.Networks) < desc.MinNetworks {
		return domain.Route{}, ErrUnsupported{
			Kind:   req.Kind,
			Detail: fmt.Sprintf("%d networks, want at least %d", len(req.Networks), desc.MinNetworks),
		}
	}

	legs := make([]domain.Leg, 0, legCount)
	for i := 0; i < legCount; i++ {
		venueID := req.Venues[0]
		if !desc.SingleVenue {
			venueID = req.Venues[i]
		}
		leg := domain.Leg{
			Venue:    venueID,
			TokenIn:  req.Tokens[i],
			TokenOut: req.Tokens[(i+1)%n],
		}
		if info, err := dir.Info(venueID); err == nil {
			leg.FeeBps = info.FeeBps
			leg.Network = info.Network
		}
		if leg.Network == "" && len(req.Networks) > 0 {
			if i < len(req.Networks) {
				leg.Network = req.Networks[i]
			} else {
				leg.Network = req.Networks[len(req.Networks)-1]
			}
		}
		legs = append(legs, leg)
	}

	return domain.Route{Legs: legs}, nil
}
