package domain

import (
	"encoding/json"
	"time"

	"github.com/holiman/uint256"
)

// StrategyKind classifies an arbitrage attempt. The set is closed: the
// dispatcher maps every kind exhaustively and rejects anything else before
// capital is touched.
type StrategyKind string

const (
	SameVenueSimple        StrategyKind = "same_venue_simple"
	SameVenueTriangular    StrategyKind = "same_venue_triangular"
	CrossVenueSimple       StrategyKind = "cross_venue_simple"
	CrossVenueTriangular   StrategyKind = "cross_venue_triangular"
	CrossNetworkSimple     StrategyKind = "cross_network_simple"
	CrossNetworkTriangular StrategyKind = "cross_network_triangular"
	IntentBased            StrategyKind = "intent_based"
	AccountAbstraction     StrategyKind = "account_abstraction"
	Modular                StrategyKind = "modular"
	LiquidityFragmentation StrategyKind = "liquidity_fragmentation"
	GovernanceToken        StrategyKind = "governance_token"
	RealWorldAsset         StrategyKind = "real_world_asset"
)

// Kinds lists every supported strategy kind in a stable order.
func Kinds() []StrategyKind {
	return []StrategyKind{
		SameVenueSimple, SameVenueTriangular,
		CrossVenueSimple, CrossVenueTriangular,
		CrossNetworkSimple, CrossNetworkTriangular,
		IntentBased, AccountAbstraction, Modular,
		LiquidityFragmentation, GovernanceToken, RealWorldAsset,
	}
}

// SelfFunded is the capitalProvider value meaning no loan is taken: the
// principal comes from the engine's own treasury.
const SelfFunded = "none"

// ArbitrageRequest is the immutable input to one execution attempt. It is
// constructed by an upstream opportunity feed and never mutated by the engine.
type ArbitrageRequest struct {
	ID          string          `json:"id"`
	Kind        StrategyKind    `json:"strategy_kind"`
	Tokens      []string        `json:"tokens"`
	Venues      []string        `json:"venues"`
	Networks    []string        `json:"networks,omitempty"`
	AmountIn    *uint256.Int    `json:"amount_in"`
	MinProfit   *uint256.Int    `json:"min_profit"`
	MaxSlipBps  uint64          `json:"max_slippage_bps"`
	Deadline    time.Time       `json:"deadline"`
	Provider    string          `json:"capital_provider"`
	Payload     json.RawMessage `json:"strategy_payload,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// IsCrossNetwork reports whether the kind routes value across networks.
func (k StrategyKind) IsCrossNetwork() bool {
	return k == CrossNetworkSimple || k == CrossNetworkTriangular
}

// IsTriangular reports whether the kind uses a 3-leg closed route.
func (k StrategyKind) IsTriangular() bool {
	switch k {
	case SameVenueTriangular, CrossVenueTriangular, CrossNetworkTriangular:
		return true
	}
	return false
}

// Known reports whether k is one of the supported strategy kinds.
func (k StrategyKind) Known() bool {
	switch k {
	case SameVenueSimple, SameVenueTriangular,
		CrossVenueSimple, CrossVenueTriangular,
		CrossNetworkSimple, CrossNetworkTriangular,
		IntentBased, AccountAbstraction, Modular,
		LiquidityFragmentation, GovernanceToken, RealWorldAsset:
		return true
	}
	return false
}
