package engine

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbstack/flasharb/internal/bridge"
	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/venue"
)

func validatorFixture(t *testing.T) (*Validator, *venue.Registry, *bridge.Registry) {
	t.Helper()
	venues := venue.NewRegistry()
	for _, cfg := range []venue.SimConfig{
		{
			Info:     domain.VenueInfo{ID: "eth-pool", Model: domain.ModelConstantProduct, FeeBps: 30, Network: "ethereum", Enabled: true},
			TokenA:   "WETH",
			TokenB:   "USDC",
			ReserveA: uint256.NewInt(1_000_000),
			ReserveB: uint256.NewInt(1_000_000),
		},
		{
			Info:     domain.VenueInfo{ID: "arb-pool", Model: domain.ModelConstantProduct, FeeBps: 30, Network: "arbitrum", Enabled: true},
			TokenA:   "WETH",
			TokenB:   "USDC",
			ReserveA: uint256.NewInt(1_000_000),
			ReserveB: uint256.NewInt(1_000_000),
		},
	} {
		v, err := venue.NewSim(cfg)
		require.NoError(t, err)
		venues.Register(v.Info(), v)
	}

	bridges := bridge.NewRegistry()
	return NewValidator(venues, bridges, []string{"WETH", "USDC"}), venues, bridges
}

func twoLegRoute() domain.Route {
	return domain.Route{Legs: []domain.Leg{
		{Venue: "eth-pool", TokenIn: "WETH", TokenOut: "USDC", Network: "ethereum"},
		{Venue: "eth-pool", TokenIn: "USDC", TokenOut: "WETH", Network: "ethereum"},
	}}
}

func TestValidate(t *testing.T) {
	req := domain.ArbitrageRequest{
		Kind:     domain.SameVenueSimple,
		AmountIn: uint256.NewInt(1_000),
	}

	t.Run("valid route passes", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		assert.NoError(t, v.Validate(req, twoLegRoute()))
	})

	t.Run("empty route rejected", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		err := v.Validate(req, domain.Route{})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "length", verr.Check)
	})

	t.Run("unregistered venue rejected", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		route := twoLegRoute()
		route.Legs[1].Venue = "ghost"
		err := v.Validate(req, route)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "venue", verr.Check)
	})

	t.Run("disabled venue rejected", func(t *testing.T) {
		v, venues, _ := validatorFixture(t)
		require.NoError(t, venues.SetEnabled("eth-pool", false))
		err := v.Validate(req, twoLegRoute())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "venue", verr.Check)
		assert.Contains(t, verr.Detail, "disabled")
	})

	t.Run("token outside the allowlist rejected", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		route := twoLegRoute()
		route.Legs[0].TokenOut = "PEPE"
		route.Legs[1].TokenIn = "PEPE"
		err := v.Validate(req, route)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "allowlist", verr.Check)
	})

	t.Run("continuity violation rejected", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		route := twoLegRoute()
		route.Legs[1].TokenIn = "WETH"
		route.Legs[1].TokenOut = "USDC"
		err := v.Validate(req, route)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "continuity", verr.Check)
	})

	t.Run("expired deadline rejected", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		expired := req
		expired.Deadline = time.Now().Add(-time.Minute)
		err := v.Validate(expired, twoLegRoute())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "deadline", verr.Check)
	})

	t.Run("future deadline passes", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		live := req
		live.Deadline = time.Now().Add(time.Minute)
		assert.NoError(t, v.Validate(live, twoLegRoute()))
	})
}

func TestValidateCrossNetwork(t *testing.T) {
	crossRoute := domain.Route{Legs: []domain.Leg{
		{Venue: "eth-pool", TokenIn: "WETH", TokenOut: "USDC", Network: "ethereum"},
		{Venue: "arb-pool", TokenIn: "USDC", TokenOut: "WETH", Network: "arbitrum"},
	}}
	req := domain.ArbitrageRequest{
		Kind:     domain.CrossNetworkSimple,
		Networks: []string{"ethereum", "arbitrum"},
		AmountIn: uint256.NewInt(1_000),
	}

	t.Run("missing bridge names the pair", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		err := v.Validate(req, crossRoute)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "bridge", verr.Check)
		assert.Contains(t, verr.Detail, "ethereum->arbitrum")
	})

	t.Run("registered bridge passes", func(t *testing.T) {
		v, _, bridges := validatorFixture(t)
		bridges.Register(domain.BridgeInfo{
			ID:          "hop",
			FromNetwork: "ethereum",
			ToNetwork:   "arbitrum",
			FeeBps:      10,
			Enabled:     true,
		})
		assert.NoError(t, v.Validate(req, crossRoute))
	})

	t.Run("cross network without a pair rejected", func(t *testing.T) {
		v, _, _ := validatorFixture(t)
		single := req
		single.Networks = []string{"ethereum"}
		err := v.Validate(single, crossRoute)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "length", verr.Check)
	})
}

func TestValidatorAllowlist(t *testing.T) {
	v, _, _ := validatorFixture(t)

	v.AllowToken("DAI")
	assert.Equal(t, []string{"DAI", "USDC", "WETH"}, v.AllowedTokens())

	v.DenyToken("DAI")
	assert.Equal(t, []string{"USDC", "WETH"}, v.AllowedTokens())
}

func TestTreasury(t *testing.T) {
	tr := NewTreasury(map[string]*uint256.Int{"WETH": uint256.NewInt(1_000)})

	t.Run("withdraw within balance", func(t *testing.T) {
		require.NoError(t, tr.Withdraw("WETH", uint256.NewInt(400)))
		assert.Equal(t, "600", tr.Balance("WETH").Dec())
	})

	t.Run("overdraw fails without mutation", func(t *testing.T) {
		err := tr.Withdraw("WETH", uint256.NewInt(601))
		require.ErrorIs(t, err, domain.ErrInsufficientLiq)
		assert.Equal(t, "600", tr.Balance("WETH").Dec())
	})

	t.Run("deposit creates missing assets", func(t *testing.T) {
		tr.Deposit("USDC", uint256.NewInt(50))
		assert.Equal(t, "50", tr.Balance("USDC").Dec())
	})

	t.Run("unknown asset has a zero balance", func(t *testing.T) {
		assert.True(t, tr.Balance("DAI").IsZero())
	})
}
