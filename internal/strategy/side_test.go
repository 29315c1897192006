package strategy

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbstack/flasharb/internal/domain"
)

func TestSideProfit(t *testing.T) {
	amountIn := uint256.NewInt(1_000_000)
	expectedOut := uint256.NewInt(1_010_000)

	t.Run("plain route kinds have a zero side term", func(t *testing.T) {
		for _, kind := range []domain.StrategyKind{
			domain.SameVenueSimple, domain.CrossVenueTriangular, domain.CrossNetworkSimple,
		} {
			side, err := SideProfit(kind, nil, amountIn, expectedOut)
			require.NoError(t, err)
			assert.True(t, side.IsZero(), "kind %s", kind)
		}
	})

	t.Run("intent fill premium", func(t *testing.T) {
		payload, _ := json.Marshal(IntentPayload{OrderHash: "0xabc", FillPremiumBps: 25})
		side, err := SideProfit(domain.IntentBased, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.Equal(t, "2500", side.Dec())
	})

	t.Run("paymaster rebate", func(t *testing.T) {
		payload, _ := json.Marshal(AccountAbstractionPayload{Paymaster: "pm-1", PaymasterRebateBps: 10})
		side, err := SideProfit(domain.AccountAbstraction, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.Equal(t, "1000", side.Dec())
	})

	t.Run("module rebate", func(t *testing.T) {
		payload, _ := json.Marshal(ModularPayload{ModuleID: "hook-7", ModuleRebateBps: 5})
		side, err := SideProfit(domain.Modular, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.Equal(t, "500", side.Dec())
	})

	t.Run("fragmentation picks the best pool above the base output", func(t *testing.T) {
		payload, _ := json.Marshal(FragmentationPayload{
			FragmentOutputs: []string{"1005000", "1012500", "990000"},
		})
		side, err := SideProfit(domain.LiquidityFragmentation, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.Equal(t, "2500", side.Dec())
	})

	t.Run("fragmentation below base output is zero", func(t *testing.T) {
		payload, _ := json.Marshal(FragmentationPayload{
			FragmentOutputs: []string{"1000000", "1009999"},
		})
		side, err := SideProfit(domain.LiquidityFragmentation, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.True(t, side.IsZero())
	})

	t.Run("governance voting premium", func(t *testing.T) {
		payload, _ := json.Marshal(GovernancePayload{ProposalID: "prop-42", VotingPremiumBps: 15})
		side, err := SideProfit(domain.GovernanceToken, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.Equal(t, "1500", side.Dec())
	})

	t.Run("rwa yield differential", func(t *testing.T) {
		payload, _ := json.Marshal(RealWorldAssetPayload{AssetClass: "tbill", YieldDiffBps: 40})
		side, err := SideProfit(domain.RealWorldAsset, payload, amountIn, expectedOut)
		require.NoError(t, err)
		assert.Equal(t, "4000", side.Dec())
	})

	t.Run("absent payload means zero", func(t *testing.T) {
		side, err := SideProfit(domain.GovernanceToken, nil, amountIn, expectedOut)
		require.NoError(t, err)
		assert.True(t, side.IsZero())
	})

	t.Run("malformed payload rejected", func(t *testing.T) {
		_, err := SideProfit(domain.IntentBased, json.RawMessage(`{"fill_premium_bps":`), amountIn, expectedOut)
		assert.Error(t, err)
	})

	t.Run("malformed fragment amount rejected", func(t *testing.T) {
		payload, _ := json.Marshal(FragmentationPayload{FragmentOutputs: []string{"not-a-number"}})
		_, err := SideProfit(domain.LiquidityFragmentation, payload, amountIn, expectedOut)
		assert.Error(t, err)
	})
}
