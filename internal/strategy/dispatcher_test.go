package strategy

import (
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbstack/flasharb/internal/domain"
)

type stubDirectory struct {
	venues map[string]domain.VenueInfo
}

func (d *stubDirectory) Info(id string) (domain.VenueInfo, error) {
	info, ok := d.venues[id]
	if !ok {
		return domain.VenueInfo{}, fmt.Errorf("venue %q: %w", id, domain.ErrNotFound)
	}
	return info, nil
}

func dir() *stubDirectory {
	return &stubDirectory{venues: map[string]domain.VenueInfo{
		"uni":     {ID: "uni", Model: domain.ModelConstantProduct, FeeBps: 30, Network: "ethereum", Enabled: true},
		"sushi":   {ID: "sushi", Model: domain.ModelConstantProduct, FeeBps: 30, Network: "ethereum", Enabled: true},
		"camelot": {ID: "camelot", Model: domain.ModelConstantProduct, FeeBps: 25, Network: "arbitrum", Enabled: true},
	}}
}

func TestDispatch(t *testing.T) {
	t.Run("every kind maps to a descriptor", func(t *testing.T) {
		for _, kind := range domain.Kinds() {
			desc, err := Dispatch(kind)
			require.NoError(t, err, "kind %s", kind)
			assert.Equal(t, kind, desc.Kind)
			assert.Greater(t, desc.MinTokens, 1)
		}
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := Dispatch(domain.StrategyKind("quantum_arb"))
		var unsupported ErrUnsupported
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, domain.StrategyKind("quantum_arb"), unsupported.Kind)
	})

	t.Run("cross network kinds require networks", func(t *testing.T) {
		desc, err := Dispatch(domain.CrossNetworkSimple)
		require.NoError(t, err)
		assert.Equal(t, 2, desc.MinNetworks)
	})
}

func TestBuildRoute(t *testing.T) {
	amount := uint256.NewInt(1_000_000)

	t.Run("same venue simple builds a closed two leg route", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.SameVenueSimple,
			Tokens:   []string{"WETH", "USDC"},
			Venues:   []string{"uni"},
			AmountIn: amount,
		}
		route, err := BuildRoute(req, dir())
		require.NoError(t, err)
		require.Len(t, route.Legs, 2)
		assert.True(t, route.Closed())
		assert.True(t, route.Continuous())
		assert.Equal(t, "uni", route.Legs[0].Venue)
		assert.Equal(t, "uni", route.Legs[1].Venue)
		assert.Equal(t, uint64(30), route.Legs[0].FeeBps)
		assert.Equal(t, "ethereum", route.Legs[0].Network)
	})

	t.Run("cross venue triangular builds three legs on three venues", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.CrossVenueTriangular,
			Tokens:   []string{"WETH", "USDC", "DAI"},
			Venues:   []string{"uni", "sushi", "camelot"},
			AmountIn: amount,
		}
		route, err := BuildRoute(req, dir())
		require.NoError(t, err)
		require.Len(t, route.Legs, 3)
		assert.True(t, route.Closed())
		assert.Equal(t, "WETH", route.Legs[0].TokenIn)
		assert.Equal(t, "WETH", route.Legs[2].TokenOut)
		assert.Equal(t, "sushi", route.Legs[1].Venue)
	})

	t.Run("token cardinality enforced", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.SameVenueSimple,
			Tokens:   []string{"WETH", "USDC", "DAI"},
			Venues:   []string{"uni"},
			AmountIn: amount,
		}
		_, err := BuildRoute(req, dir())
		var unsupported ErrUnsupported
		assert.ErrorAs(t, err, &unsupported)
	})

	t.Run("venue cardinality enforced per kind", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.CrossVenueSimple,
			Tokens:   []string{"WETH", "USDC"},
			Venues:   []string{"uni"},
			AmountIn: amount,
		}
		_, err := BuildRoute(req, dir())
		assert.Error(t, err)

		req.Kind = domain.SameVenueTriangular
		req.Tokens = []string{"WETH", "USDC", "DAI"}
		req.Venues = []string{"uni", "sushi"}
		_, err = BuildRoute(req, dir())
		assert.Error(t, err)
	})

	t.Run("cross network kind needs at least two networks", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.CrossNetworkSimple,
			Tokens:   []string{"WETH", "USDC"},
			Venues:   []string{"uni", "camelot"},
			AmountIn: amount,
		}
		_, err := BuildRoute(req, dir())
		assert.Error(t, err)

		req.Networks = []string{"ethereum", "arbitrum"}
		route, err := BuildRoute(req, dir())
		require.NoError(t, err)
		assert.Equal(t, "ethereum", route.Legs[0].Network)
		assert.Equal(t, "arbitrum", route.Legs[1].Network)
	})

	t.Run("unknown kind fails before venue resolution", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.StrategyKind("mystery"),
			Tokens:   []string{"WETH", "USDC"},
			Venues:   []string{"uni"},
			AmountIn: amount,
		}
		_, err := BuildRoute(req, dir())
		var unsupported ErrUnsupported
		assert.ErrorAs(t, err, &unsupported)
	})

	t.Run("unknown venue tolerated during build", func(t *testing.T) {
		req := domain.ArbitrageRequest{
			Kind:     domain.SameVenueSimple,
			Tokens:   []string{"WETH", "USDC"},
			Venues:   []string{"ghost"},
			AmountIn: amount,
		}
		route, err := BuildRoute(req, dir())
		require.NoError(t, err)
		assert.Equal(t, "ghost", route.Legs[0].Venue)
	})
}
