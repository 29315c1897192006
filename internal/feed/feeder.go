package feed

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/engine"
	"github.com/arbstack/flasharb/internal/notify"
)

// Feeder drains a request channel and runs each opportunity through the
// engine on a fixed pool of workers. One slow attempt does not block the
// channel as long as another worker is free.
type Feeder struct {
	engine   *engine.Engine
	requests <-chan domain.ArbitrageRequest
	workers  int
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewFeeder creates a Feeder with the given worker count. notifier may be
// nil.
func NewFeeder(eng *engine.Engine, requests <-chan domain.ArbitrageRequest, workers int, notifier *notify.Notifier, logger *slog.Logger) *Feeder {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feeder{
		engine:   eng,
		requests: requests,
		workers:  workers,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "feeder")),
	}
}

// Run processes requests until the channel closes or ctx is cancelled.
// Attempt failures are logged, not returned; only context cancellation stops
// the pool.
func (f *Feeder) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < f.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case req, ok := <-f.requests:
					if !ok {
						return nil
					}
					f.handle(ctx, req)
				}
			}
		})
	}

	return g.Wait()
}

func (f *Feeder) handle(ctx context.Context, req domain.ArbitrageRequest) {
	res, err := f.engine.Attempt(ctx, req)
	if err != nil {
		// Attempt only errors on context cancellation; the result carries
		// no outcome, so there is nothing to notify.
		f.logger.Warn("attempt failed",
			slog.String("request_id", res.RequestID),
			slog.String("kind", string(req.Kind)),
			slog.String("reason", string(res.Reason)),
			slog.String("error", err.Error()),
		)
		return
	}

	f.logger.Info("attempt finished",
		slog.String("request_id", res.RequestID),
		slog.String("kind", string(req.Kind)),
		slog.String("profit", res.Profit.String()),
		slog.Int("legs", res.LegCount),
	)

	if f.notifier != nil {
		event, title, message := notify.FormatAttempt(res)
		_ = f.notifier.Notify(ctx, event, title, message)
	}
}
