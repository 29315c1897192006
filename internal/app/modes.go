package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arbstack/flasharb/internal/config"
	"github.com/arbstack/flasharb/internal/feed"
	"github.com/arbstack/flasharb/internal/notify"
	"github.com/arbstack/flasharb/internal/server"
	"github.com/arbstack/flasharb/internal/server/handler"
)

// SimMode runs the engine against in-memory venues and providers only. The
// HTTP server is always started so attempts can be submitted ad hoc.
func (a *App) SimMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("sim mode",
		slog.Int("venues", len(deps.Venues.List())),
		slog.Int("providers", len(deps.Providers.List())),
		slog.Int("bridges", len(deps.Bridges.List())),
	)

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// FeedMode consumes opportunities from the WebSocket feed and executes them
// on a worker pool. The server runs alongside when enabled.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	a.startFeed(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps)
	}
	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// ServeMode runs the full surface: HTTP server, plus the feed and archive
// loop when configured.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	a.startServer(ctx, g, deps)
	if a.cfg.Feed.Enabled {
		a.startFeed(ctx, g, deps)
	}
	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	srv := buildServer(a.cfg, deps)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	src := feed.NewOpportunityFeed(
		a.cfg.Feed.WsURL,
		a.cfg.Feed.HMACSecret,
		a.cfg.Feed.Buffer,
		time.Duration(a.cfg.Feed.ReconnectSec)*time.Second,
		a.logger,
	)
	feeder := feed.NewFeeder(deps.Engine, src.Requests(), a.cfg.Feed.Workers, deps.Notifier, a.logger)

	g.Go(func() error { return src.Run(ctx) })
	g.Go(func() error { return feeder.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		src.Close()
		return nil
	})
}

// startArchiveLoop periodically exports old execution history to object
// storage. A failed cycle is logged and retried on the next tick.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}

	interval := time.Duration(a.cfg.Archive.IntervalMin) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	retain := time.Duration(a.cfg.Archive.RetainDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().Add(-retain)
				count, err := deps.Archiver.ArchiveExecutions(ctx, cutoff)
				if err != nil {
					a.logger.Warn("archive cycle failed", slog.String("error", err.Error()))
					if deps.Notifier != nil {
						_ = deps.Notifier.Notify(ctx, notify.EventArchive, "Archive failed", err.Error())
					}
					continue
				}
				if count > 0 {
					a.logger.Info("archive cycle complete", slog.Int64("count", count))
				}
			}
		}
	})
}

func buildServer(cfg *config.Config, deps *Dependencies) *server.Server {
	logger := slog.Default()
	return server.NewServer(
		server.Config{
			Addr:         cfg.Server.Addr,
			APIKey:       cfg.Server.APIKey,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		},
		server.Handlers{
			Health:     handler.NewHealthHandler(cfg.Mode, logger),
			Stats:      handler.NewStatsHandler(deps.Ledger, logger),
			Executions: handler.NewExecutionsHandler(deps.ExecutionStore, logger),
			Admin:      handler.NewAdminHandler(deps.Venues, deps.Providers, deps.Bridges, deps.Validator, logger),
			Attempt:    handler.NewAttemptHandler(deps.Engine, logger),
		},
		logger,
	)
}
