// Package config defines the top-level configuration for the flasharb
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FLASHARB_* environment
// variables.
type Config struct {
	Engine    EngineConfig     `toml:"engine"`
	Venues    []VenueConfig    `toml:"venues"`
	Providers []ProviderConfig `toml:"providers"`
	Bridges   []BridgeConfig   `toml:"bridges"`
	Postgres  PostgresConfig   `toml:"postgres"`
	Redis     RedisConfig      `toml:"redis"`
	S3        S3Config         `toml:"s3"`
	Server    ServerConfig     `toml:"server"`
	Feed      FeedConfig       `toml:"feed"`
	Archive   ArchiveConfig    `toml:"archive"`
	Notify    NotifyConfig     `toml:"notify"`
	Mode      string           `toml:"mode"`
	LogLevel  string           `toml:"log_level"`
}

// EngineConfig holds execution parameters and global guards. Amount fields
// are decimal strings in the smallest unit of the respective asset; an empty
// string disables the guard.
type EngineConfig struct {
	OverheadPerLeg  uint64            `toml:"overhead_per_leg"`
	MaxAcceptedCost string            `toml:"max_accepted_cost"`
	MinGlobalProfit string            `toml:"min_global_profit"`
	AllowedTokens   []string          `toml:"allowed_tokens"`
	Treasury        map[string]string `toml:"treasury"`
}

// VenueConfig declares one simulated venue registration.
type VenueConfig struct {
	ID      string `toml:"id"`
	Model   string `toml:"model"`
	FeeBps  uint64 `toml:"fee_bps"`
	Network string `toml:"network"`
	Enabled bool   `toml:"enabled"`

	TokenA   string `toml:"token_a"`
	TokenB   string `toml:"token_b"`
	ReserveA string `toml:"reserve_a"`
	ReserveB string `toml:"reserve_b"`

	WeightA uint64 `toml:"weight_a"`
	WeightB uint64 `toml:"weight_b"`

	SqrtPriceX96 string `toml:"sqrt_price_x96"`
	Liquidity    string `toml:"liquidity"`

	Coins    []string `toml:"coins"`
	Balances []string `toml:"balances"`
	Amp      uint64   `toml:"amp"`
}

// ProviderConfig declares one capital provider registration.
type ProviderConfig struct {
	ID         string            `toml:"id"`
	FeeRateBps uint64            `toml:"fee_rate_bps"`
	MaxLoan    string            `toml:"max_loan"`
	Liquidity  string            `toml:"liquidity"`
	Enabled    bool              `toml:"enabled"`
	Treasury   map[string]string `toml:"treasury"`
}

// BridgeConfig declares one cross-network bridge registration.
type BridgeConfig struct {
	ID              string `toml:"id"`
	FromNetwork     string `toml:"from_network"`
	ToNetwork       string `toml:"to_network"`
	FeeBps          uint64 `toml:"fee_bps"`
	FlatFee         string `toml:"flat_fee"`
	ConfirmationSec int    `toml:"confirmation_sec"`
	Enabled         bool   `toml:"enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the event bus.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`

	// EventChannel and EventStream namespace the attempt event bus when
	// several deployments share one Redis. Empty keeps the defaults.
	EventChannel string `toml:"event_channel"`
	EventStream  string `toml:"event_stream"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the HTTP status/admin server parameters.
type ServerConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	APIKey       string `toml:"api_key"`
	ReadTimeout  int    `toml:"read_timeout_sec"`
	WriteTimeout int    `toml:"write_timeout_sec"`
}

// FeedConfig holds the opportunity feed parameters.
type FeedConfig struct {
	Enabled      bool   `toml:"enabled"`
	WsURL        string `toml:"ws_url"`
	HMACSecret   string `toml:"hmac_secret"`
	Workers      int    `toml:"workers"`
	ReconnectSec int    `toml:"reconnect_sec"`
	Buffer       int    `toml:"buffer"`
}

// NotifyConfig holds operator alert channels. A channel with empty
// credentials is skipped; Events filters which event types are delivered
// (empty means all).
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// ArchiveConfig holds execution-history archival parameters.
type ArchiveConfig struct {
	Enabled     bool `toml:"enabled"`
	IntervalMin int  `toml:"interval_min"`
	RetainDays  int  `toml:"retain_days"`
}

// Defaults returns a Config populated with sensible defaults for the sim
// mode: no external services, one of each pricing model would still have to
// come from the TOML file.
func Defaults() Config {
	return Config{
		Mode:     "sim",
		LogLevel: "info",
		Engine: EngineConfig{
			OverheadPerLeg: 0,
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 8,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10,
			WriteTimeout: 10,
		},
		Feed: FeedConfig{
			Workers:      4,
			ReconnectSec: 5,
			Buffer:       256,
		},
		Archive: ArchiveConfig{
			IntervalMin: 60,
			RetainDays:  30,
		},
	}
}

// ConfirmationTime converts the declared confirmation seconds to a Duration.
func (b BridgeConfig) ConfirmationTime() time.Duration {
	return time.Duration(b.ConfirmationSec) * time.Second
}

// Validate checks the configuration for internal consistency. It is called
// by main after Load.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "sim", "feed", "serve":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	seen := make(map[string]struct{}, len(c.Venues))
	for i, v := range c.Venues {
		if v.ID == "" {
			return fmt.Errorf("config: venues[%d]: missing id", i)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("config: venues[%d]: duplicate id %q", i, v.ID)
		}
		seen[v.ID] = struct{}{}
		switch v.Model {
		case "constant_product", "concentrated", "stable_swap", "weighted":
		default:
			return fmt.Errorf("config: venue %q: unknown model %q", v.ID, v.Model)
		}
		if v.FeeBps >= 10_000 {
			return fmt.Errorf("config: venue %q: fee_bps %d out of range", v.ID, v.FeeBps)
		}
	}

	for i, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("config: providers[%d]: missing id", i)
		}
		if p.FeeRateBps >= 10_000 {
			return fmt.Errorf("config: provider %q: fee_rate_bps %d out of range", p.ID, p.FeeRateBps)
		}
	}

	for i, b := range c.Bridges {
		if b.FromNetwork == "" || b.ToNetwork == "" {
			return fmt.Errorf("config: bridges[%d]: missing network pair", i)
		}
		if b.FromNetwork == b.ToNetwork {
			return fmt.Errorf("config: bridges[%d]: degenerate pair %q", i, b.FromNetwork)
		}
	}

	if c.Feed.Enabled && c.Feed.WsURL == "" {
		return fmt.Errorf("config: feed enabled without ws_url")
	}
	if c.Archive.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("config: archive enabled without s3 bucket")
	}

	return nil
}
