package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	s3blob "github.com/arbstack/flasharb/internal/blob/s3"
	"github.com/arbstack/flasharb/internal/bridge"
	"github.com/arbstack/flasharb/internal/cache/redis"
	"github.com/arbstack/flasharb/internal/capital"
	"github.com/arbstack/flasharb/internal/config"
	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/engine"
	"github.com/arbstack/flasharb/internal/notify"
	"github.com/arbstack/flasharb/internal/pricing"
	"github.com/arbstack/flasharb/internal/stats"
	"github.com/arbstack/flasharb/internal/store/postgres"
	"github.com/arbstack/flasharb/internal/venue"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Venues    *venue.Registry
	Providers *capital.Registry
	Bridges   *bridge.Registry
	Validator *engine.Validator
	Calc      *pricing.Calculator
	Ledger    *stats.Ledger
	Treasury  *engine.Treasury
	Engine    *engine.Engine

	// Optional externals; nil when not configured.
	ExecutionStore domain.ExecutionStore
	StatsStore     domain.StatsStore
	EventBus       domain.EventBus
	Archiver       domain.Archiver
	Notifier       *notify.Notifier
}

// needsPostgres returns true when a database connection is configured. Sim
// mode always runs in-memory.
func needsPostgres(cfg *config.Config) bool {
	return cfg.Mode != "sim" && (cfg.Postgres.DSN != "" || cfg.Postgres.Host != "")
}

// needsRedis returns true when the event bus is configured.
func needsRedis(cfg *config.Config) bool {
	return cfg.Mode != "sim" && cfg.Redis.Addr != ""
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	if needsPostgres(cfg) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		execStore := postgres.NewExecutionStore(pool)
		deps.ExecutionStore = execStore
		deps.StatsStore = postgres.NewStatsStore(pool)

		// --- S3 archiver (needs the execution store) ---
		if cfg.Archive.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			writer := s3blob.NewWriter(s3Client)
			deps.Archiver = s3blob.NewArchiver(writer, execStore, logger)
		}
	}

	// --- Redis event bus ---
	if needsRedis(cfg) {
		bus, err := redis.NewEventBus(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Channel:    cfg.Redis.EventChannel,
			Stream:     cfg.Redis.EventStream,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = bus.Close() })
		deps.EventBus = bus
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Registries ---
	if err := buildRegistries(cfg, deps); err != nil {
		cleanup()
		return nil, nil, err
	}

	deps.Validator = engine.NewValidator(deps.Venues, deps.Bridges, cfg.Engine.AllowedTokens)
	deps.Calc = pricing.NewCalculator(deps.Venues, deps.Bridges, cfg.Engine.OverheadPerLeg, logger)
	deps.Ledger = stats.NewLedger(deps.StatsStore, logger)

	treasury, err := parseBalances(cfg.Engine.Treasury)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine treasury: %w", err)
	}
	deps.Treasury = engine.NewTreasury(treasury)

	maxCost, err := parseAmount(cfg.Engine.MaxAcceptedCost)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: max_accepted_cost: %w", err)
	}
	minProfit, err := parseAmount(cfg.Engine.MinGlobalProfit)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: min_global_profit: %w", err)
	}

	deps.Engine = engine.New(engine.Params{
		Venues:          deps.Venues,
		Providers:       deps.Providers,
		Bridges:         deps.Bridges,
		Validator:       deps.Validator,
		Calc:            deps.Calc,
		Ledger:          deps.Ledger,
		Treasury:        deps.Treasury,
		Bus:             deps.EventBus,
		Store:           deps.ExecutionStore,
		MaxAcceptedCost: maxCost,
		MinGlobalProfit: minProfit,
		Logger:          logger,
	})

	return deps, cleanup, nil
}

// buildRegistries populates the venue, provider, and bridge registries from
// static configuration.
func buildRegistries(cfg *config.Config, deps *Dependencies) error {
	deps.Venues = venue.NewRegistry()
	for _, vc := range cfg.Venues {
		sim, err := buildSimVenue(vc)
		if err != nil {
			return fmt.Errorf("wire: venue %s: %w", vc.ID, err)
		}
		deps.Venues.Register(domain.VenueInfo{
			ID:      vc.ID,
			Model:   domain.PricingModel(vc.Model),
			FeeBps:  vc.FeeBps,
			Network: vc.Network,
			Enabled: vc.Enabled,
		}, sim)
	}

	deps.Providers = capital.NewRegistry()
	for _, pc := range cfg.Providers {
		maxLoan, err := parseAmount(pc.MaxLoan)
		if err != nil {
			return fmt.Errorf("wire: provider %s max_loan: %w", pc.ID, err)
		}
		liquidity, err := parseAmount(pc.Liquidity)
		if err != nil {
			return fmt.Errorf("wire: provider %s liquidity: %w", pc.ID, err)
		}
		treasury, err := parseBalances(pc.Treasury)
		if err != nil {
			return fmt.Errorf("wire: provider %s treasury: %w", pc.ID, err)
		}
		info := domain.ProviderInfo{
			ID:         pc.ID,
			FeeRateBps: pc.FeeRateBps,
			MaxLoan:    maxLoan,
			Liquidity:  liquidity,
			Enabled:    pc.Enabled,
		}
		deps.Providers.Register(info, capital.NewSim(info, treasury))
	}

	deps.Bridges = bridge.NewRegistry()
	for _, bc := range cfg.Bridges {
		flatFee, err := parseAmount(bc.FlatFee)
		if err != nil {
			return fmt.Errorf("wire: bridge %s flat_fee: %w", bc.ID, err)
		}
		deps.Bridges.Register(domain.BridgeInfo{
			ID:               bc.ID,
			FromNetwork:      bc.FromNetwork,
			ToNetwork:        bc.ToNetwork,
			FeeBps:           bc.FeeBps,
			FlatFee:          flatFee,
			ConfirmationTime: bc.ConfirmationTime(),
			Enabled:          bc.Enabled,
		})
	}

	return nil
}

func buildSimVenue(vc config.VenueConfig) (*venue.SimVenue, error) {
	reserveA, err := parseAmount(vc.ReserveA)
	if err != nil {
		return nil, fmt.Errorf("reserve_a: %w", err)
	}
	reserveB, err := parseAmount(vc.ReserveB)
	if err != nil {
		return nil, fmt.Errorf("reserve_b: %w", err)
	}
	sqrtPrice, err := parseAmount(vc.SqrtPriceX96)
	if err != nil {
		return nil, fmt.Errorf("sqrt_price_x96: %w", err)
	}
	liquidity, err := parseAmount(vc.Liquidity)
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}
	balances := make([]*uint256.Int, 0, len(vc.Balances))
	for i, b := range vc.Balances {
		v, err := parseAmount(b)
		if err != nil {
			return nil, fmt.Errorf("balances[%d]: %w", i, err)
		}
		balances = append(balances, v)
	}

	return venue.NewSim(venue.SimConfig{
		Info: domain.VenueInfo{
			ID:      vc.ID,
			Model:   domain.PricingModel(vc.Model),
			FeeBps:  vc.FeeBps,
			Network: vc.Network,
			Enabled: vc.Enabled,
		},
		TokenA:       vc.TokenA,
		TokenB:       vc.TokenB,
		ReserveA:     reserveA,
		ReserveB:     reserveB,
		WeightA:      vc.WeightA,
		WeightB:      vc.WeightB,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Coins:        vc.Coins,
		Balances:     balances,
		Amp:          vc.Amp,
	})
}

// parseAmount parses a decimal amount string. Empty strings yield nil.
func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

func parseBalances(m map[string]string) (map[string]*uint256.Int, error) {
	out := make(map[string]*uint256.Int, len(m))
	for asset, s := range m {
		v, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = uint256.NewInt(0)
		}
		out[asset] = v
	}
	return out, nil
}
