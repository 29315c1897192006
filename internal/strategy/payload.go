package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Typed payloads for the six specialized strategy kinds. Each is decoded
// from the request's opaque strategyPayload and consumed only by the pure
// side-profitability functions in side.go.

// IntentPayload parameterizes intent-based execution: the engine fills a
// signed order and collects the maker's fill premium.
type IntentPayload struct {
	OrderHash      string `json:"order_hash"`
	FillPremiumBps uint64 `json:"fill_premium_bps"`
}

// AccountAbstractionPayload parameterizes ERC-4337-style execution where a
// paymaster rebates part of the execution cost.
type AccountAbstractionPayload struct {
	Paymaster          string `json:"paymaster"`
	PaymasterRebateBps uint64 `json:"paymaster_rebate_bps"`
}

// ModularPayload parameterizes execution through a modular venue hook that
// shares its module fee with the filler.
type ModularPayload struct {
	ModuleID        string `json:"module_id"`
	ModuleRebateBps uint64 `json:"module_rebate_bps"`
}

// FragmentationPayload carries the pre-quoted outputs of the same trade
// across fragmented sibling pools; the best one is compared against the
// base route output.
type FragmentationPayload struct {
	FragmentOutputs []string `json:"fragment_outputs"`
}

// GovernancePayload parameterizes governance-token arbitrage: holding the
// token through a snapshot carries a voting-power premium.
type GovernancePayload struct {
	ProposalID       string `json:"proposal_id"`
	VotingPremiumBps uint64 `json:"voting_premium_bps"`
}

// RealWorldAssetPayload parameterizes RWA arbitrage: the yield differential
// between the on-chain wrapper and its off-chain reference.
type RealWorldAssetPayload struct {
	AssetClass   string `json:"asset_class"`
	YieldDiffBps uint64 `json:"yield_diff_bps"`
}

func decodePayload(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("strategy payload: %w", err)
	}
	return nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("strategy payload: amount %q: %w", s, err)
	}
	return v, nil
}
