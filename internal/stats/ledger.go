// Package stats owns the per-strategy statistics ledger: pure bookkeeping
// with no control-flow impact on the engine. All mutation goes through a
// single mutex so concurrent settlements never lose updates.
package stats

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"sync"

	"github.com/arbstack/flasharb/internal/domain"
)

// Ledger records execution counts and realized profit per strategy kind. It
// is the only shared mutable resource across attempts.
type Ledger struct {
	mu      sync.Mutex
	entries map[domain.StrategyKind]*entry
	store   domain.StatsStore
	logger  *slog.Logger
}

type entry struct {
	executionCount   int64
	successCount     int64
	cumulativeProfit *big.Int
}

// NewLedger creates a Ledger. store may be nil; when set, every Record
// flushes the updated snapshot through it.
func NewLedger(store domain.StatsStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		entries: make(map[domain.StrategyKind]*entry),
		store:   store,
		logger:  logger.With(slog.String("component", "stats_ledger")),
	}
}

// Record books the outcome of one completed attempt. executionCount grows by
// exactly one per attempt regardless of outcome; profit is added only on
// success. No other component reads or writes these counters mid-attempt.
func (l *Ledger) Record(ctx context.Context, kind domain.StrategyKind, succeeded bool, profit *big.Int) {
	l.mu.Lock()
	e, ok := l.entries[kind]
	if !ok {
		e = &entry{cumulativeProfit: new(big.Int)}
		l.entries[kind] = e
	}
	e.executionCount++
	if succeeded {
		e.successCount++
		if profit != nil {
			e.cumulativeProfit.Add(e.cumulativeProfit, profit)
		}
	}
	snap := snapshotEntry(kind, e)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Upsert(ctx, snap); err != nil {
			l.logger.Warn("stats persist failed",
				slog.String("strategy", string(kind)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Get returns the current snapshot for a kind. Unknown kinds return a zero
// snapshot rather than an error.
func (l *Ledger) Get(kind domain.StrategyKind) domain.StrategyStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[kind]
	if !ok {
		return domain.StrategyStats{
			Kind:             kind,
			CumulativeProfit: new(big.Int),
			AvgProfitBps:     new(big.Int),
		}
	}
	return snapshotEntry(kind, e)
}

// Snapshot returns the stats of every kind seen so far, sorted by kind.
func (l *Ledger) Snapshot() []domain.StrategyStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.StrategyStats, 0, len(l.entries))
	for kind, e := range l.entries {
		out = append(out, snapshotEntry(kind, e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// snapshotEntry derives the presentation metrics. AvgProfitBps keeps the
// historical cumulativeProfit*10000/executionCount figure as a
// profit-per-attempt metric; SuccessRate is the plain boolean ratio.
func snapshotEntry(kind domain.StrategyKind, e *entry) domain.StrategyStats {
	s := domain.StrategyStats{
		Kind:             kind,
		ExecutionCount:   e.executionCount,
		SuccessCount:     e.successCount,
		CumulativeProfit: new(big.Int).Set(e.cumulativeProfit),
		AvgProfitBps:     new(big.Int),
	}
	if e.executionCount > 0 {
		s.SuccessRate = float64(e.successCount) / float64(e.executionCount)
		s.AvgProfitBps.Mul(e.cumulativeProfit, big.NewInt(10_000))
		s.AvgProfitBps.Quo(s.AvgProfitBps, big.NewInt(e.executionCount))
	}
	return s
}
