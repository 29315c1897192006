package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "sim", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Feed.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("empty path keeps defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "sim", cfg.Mode)
	})

	t.Run("toml file layered over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
mode = "serve"
log_level = "debug"

[engine]
overhead_per_leg = 5000
allowed_tokens = ["WETH", "USDC"]

[[venues]]
id = "pool-a"
model = "constant_product"
fee_bps = 30
network = "ethereum"
enabled = true
token_a = "WETH"
token_b = "USDC"
reserve_a = "1000000000"
reserve_b = "2000000000"

[[providers]]
id = "aave"
fee_rate_bps = 9
max_loan = "100000000"
enabled = true

[[bridges]]
id = "hop"
from_network = "ethereum"
to_network = "arbitrum"
fee_bps = 10
confirmation_sec = 120
enabled = true
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "serve", cfg.Mode)
		assert.Equal(t, uint64(5_000), cfg.Engine.OverheadPerLeg)
		require.Len(t, cfg.Venues, 1)
		assert.Equal(t, "pool-a", cfg.Venues[0].ID)
		require.Len(t, cfg.Bridges, 1)
		assert.Equal(t, 2*time.Minute, cfg.Bridges[0].ConfirmationTime())
		// Untouched defaults survive the layering.
		assert.Equal(t, 5432, cfg.Postgres.Port)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing named file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("environment overrides win", func(t *testing.T) {
		t.Setenv("FLASHARB_MODE", "feed")
		t.Setenv("FLASHARB_REDIS_ADDR", "redis.internal:6380")
		t.Setenv("FLASHARB_POSTGRES_PORT", "6543")
		t.Setenv("FLASHARB_FEED_ENABLED", "true")
		t.Setenv("FLASHARB_FEED_WS_URL", "wss://feed.internal/ws")
		t.Setenv("FLASHARB_SERVER_API_KEY", "sekrit")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "feed", cfg.Mode)
		assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
		assert.Equal(t, 6543, cfg.Postgres.Port)
		assert.True(t, cfg.Feed.Enabled)
		assert.Equal(t, "wss://feed.internal/ws", cfg.Feed.WsURL)
		assert.Equal(t, "sekrit", cfg.Server.APIKey)
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Defaults()
		cfg.Venues = []VenueConfig{{
			ID:      "pool-a",
			Model:   "constant_product",
			FeeBps:  30,
			Enabled: true,
		}}
		return cfg
	}

	t.Run("unknown mode", func(t *testing.T) {
		cfg := base()
		cfg.Mode = "turbo"
		assert.ErrorContains(t, cfg.Validate(), "unsupported mode")
	})

	t.Run("duplicate venue id", func(t *testing.T) {
		cfg := base()
		cfg.Venues = append(cfg.Venues, cfg.Venues[0])
		assert.ErrorContains(t, cfg.Validate(), "duplicate id")
	})

	t.Run("unknown pricing model", func(t *testing.T) {
		cfg := base()
		cfg.Venues[0].Model = "bonding_curve"
		assert.ErrorContains(t, cfg.Validate(), "unknown model")
	})

	t.Run("fee out of range", func(t *testing.T) {
		cfg := base()
		cfg.Venues[0].FeeBps = 10_000
		assert.ErrorContains(t, cfg.Validate(), "out of range")
	})

	t.Run("provider fee out of range", func(t *testing.T) {
		cfg := base()
		cfg.Providers = []ProviderConfig{{ID: "aave", FeeRateBps: 20_000}}
		assert.ErrorContains(t, cfg.Validate(), "out of range")
	})

	t.Run("degenerate bridge pair", func(t *testing.T) {
		cfg := base()
		cfg.Bridges = []BridgeConfig{{ID: "hop", FromNetwork: "ethereum", ToNetwork: "ethereum"}}
		assert.ErrorContains(t, cfg.Validate(), "degenerate pair")
	})

	t.Run("feed enabled without url", func(t *testing.T) {
		cfg := base()
		cfg.Feed.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "ws_url")
	})

	t.Run("archive enabled without bucket", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "bucket")
	})
}
