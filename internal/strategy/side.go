package strategy

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/pricing"
)

// SideProfit computes the strategy-specific side profitability term for the
// six specialized kinds. It is a pure function of the payload and the base
// simulation results: it mutates no shared state and returns zero for the
// plain route families or an absent payload.
func SideProfit(kind domain.StrategyKind, payload json.RawMessage, amountIn, expectedOut *uint256.Int) (*uint256.Int, error) {
	zero := uint256.NewInt(0)

	switch kind {
	case domain.IntentBased:
		var p IntentPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return pricing.FeePortion(amountIn, p.FillPremiumBps), nil

	case domain.AccountAbstraction:
		var p AccountAbstractionPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return pricing.FeePortion(amountIn, p.PaymasterRebateBps), nil

	case domain.Modular:
		var p ModularPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return pricing.FeePortion(amountIn, p.ModuleRebateBps), nil

	case domain.LiquidityFragmentation:
		var p FragmentationPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		// Best-of-N: the side term is how much the best fragmented pool
		// beats the base route output by, never negative.
		best := new(uint256.Int)
		for _, s := range p.FragmentOutputs {
			v, err := parseAmount(s)
			if err != nil {
				return nil, err
			}
			if v.Cmp(best) > 0 {
				best = v
			}
		}
		if expectedOut == nil || best.Cmp(expectedOut) <= 0 {
			return zero, nil
		}
		return new(uint256.Int).Sub(best, expectedOut), nil

	case domain.GovernanceToken:
		var p GovernancePayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return pricing.FeePortion(amountIn, p.VotingPremiumBps), nil

	case domain.RealWorldAsset:
		var p RealWorldAssetPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return pricing.FeePortion(amountIn, p.YieldDiffBps), nil

	default:
		return zero, nil
	}
}
