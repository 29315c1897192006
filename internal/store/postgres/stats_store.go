package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbstack/flasharb/internal/domain"
)

// StatsStore implements domain.StatsStore using PostgreSQL.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore creates a new StatsStore.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// Upsert writes the full per-kind snapshot, replacing any previous row.
func (s *StatsStore) Upsert(ctx context.Context, stats domain.StrategyStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO strategy_stats (strategy_kind, execution_count, success_count, cumulative_profit, success_rate, avg_profit_bps, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (strategy_kind) DO UPDATE SET
			execution_count = EXCLUDED.execution_count,
			success_count = EXCLUDED.success_count,
			cumulative_profit = EXCLUDED.cumulative_profit,
			success_rate = EXCLUDED.success_rate,
			avg_profit_bps = EXCLUDED.avg_profit_bps,
			updated_at = NOW()`,
		string(stats.Kind), stats.ExecutionCount, stats.SuccessCount,
		bigStr(stats.CumulativeProfit), stats.SuccessRate, bigStr(stats.AvgProfitBps),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert strategy_stats %s: %w", stats.Kind, err)
	}
	return nil
}

// GetByKind returns the snapshot for one strategy kind.
func (s *StatsStore) GetByKind(ctx context.Context, kind domain.StrategyKind) (domain.StrategyStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT strategy_kind, execution_count, success_count, cumulative_profit, success_rate, avg_profit_bps
		FROM strategy_stats WHERE strategy_kind = $1`,
		string(kind),
	)
	stats, err := scanStats(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StrategyStats{}, domain.ErrNotFound
		}
		return domain.StrategyStats{}, fmt.Errorf("postgres: get strategy_stats %s: %w", kind, err)
	}
	return stats, nil
}

// ListAll returns all snapshots ordered by strategy kind.
func (s *StatsStore) ListAll(ctx context.Context) ([]domain.StrategyStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT strategy_kind, execution_count, success_count, cumulative_profit, success_rate, avg_profit_bps
		FROM strategy_stats ORDER BY strategy_kind`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategy_stats: %w", err)
	}
	defer rows.Close()

	var list []domain.StrategyStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, stats)
	}
	return list, rows.Err()
}

func scanStats(row pgx.Row) (domain.StrategyStats, error) {
	var stats domain.StrategyStats
	var kind, profit, avgBps string
	err := row.Scan(&kind, &stats.ExecutionCount, &stats.SuccessCount,
		&profit, &stats.SuccessRate, &avgBps,
	)
	if err != nil {
		return domain.StrategyStats{}, err
	}
	stats.Kind = domain.StrategyKind(kind)
	if stats.CumulativeProfit, err = parseBig(profit); err != nil {
		return domain.StrategyStats{}, err
	}
	if stats.AvgProfitBps, err = parseBig(avgBps); err != nil {
		return domain.StrategyStats{}, err
	}
	return stats, nil
}
