package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbstack/flasharb/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Insert records an execution result and its route legs in one transaction.
func (s *ExecutionStore) Insert(ctx context.Context, res domain.ExecutionResult, route domain.Route) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO executions (request_id, strategy_kind, succeeded, amount_in, amount_out, profit, cost, reason, leg_count, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.RequestID, string(res.Kind), res.Succeeded,
		decStr(res.AmountIn), decStr(res.AmountOut), bigStr(res.Profit), decStr(res.Cost),
		string(res.Reason), res.LegCount, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert execution: %w", err)
	}

	for i, leg := range route.Legs {
		_, err = tx.Exec(ctx, `
			INSERT INTO execution_legs (request_id, leg_index, venue, token_in, token_out, fee_bps, network)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.RequestID, i, leg.Venue, leg.TokenIn, leg.TokenOut, leg.FeeBps, leg.Network,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert execution_leg: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByRequestID returns the execution result for the given request.
func (s *ExecutionStore) GetByRequestID(ctx context.Context, requestID string) (domain.ExecutionResult, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT request_id, strategy_kind, succeeded, amount_in, amount_out, profit, cost, reason, leg_count, finished_at
		FROM executions WHERE request_id = $1`,
		requestID,
	)
	res, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExecutionResult{}, domain.ErrNotFound
		}
		return domain.ExecutionResult{}, fmt.Errorf("postgres: get execution %s: %w", requestID, err)
	}
	return res, nil
}

// ListRecent returns the most recent execution results.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, strategy_kind, succeeded, amount_in, amount_out, profit, cost, reason, leg_count, finished_at
		FROM executions ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()
	return collectExecutions(rows)
}

// ListBefore returns executions that finished before the given time, oldest
// first. The archiver uses it to select rows for export.
func (s *ExecutionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ExecutionResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, strategy_kind, succeeded, amount_in, amount_out, profit, cost, reason, leg_count, finished_at
		FROM executions WHERE finished_at < $1 ORDER BY finished_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions before: %w", err)
	}
	defer rows.Close()
	return collectExecutions(rows)
}

// DeleteBefore removes executions older than the given time and returns the
// number of rows removed. Legs cascade.
func (s *ExecutionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM executions WHERE finished_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete executions before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanExecution(row pgx.Row) (domain.ExecutionResult, error) {
	var res domain.ExecutionResult
	var kind, reason string
	var amountIn, amountOut, profit, cost string
	err := row.Scan(&res.RequestID, &kind, &res.Succeeded,
		&amountIn, &amountOut, &profit, &cost,
		&reason, &res.LegCount, &res.FinishedAt,
	)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	res.Kind = domain.StrategyKind(kind)
	res.Reason = domain.FailureReason(reason)
	if res.AmountIn, err = parseDec(amountIn); err != nil {
		return domain.ExecutionResult{}, err
	}
	if res.AmountOut, err = parseDec(amountOut); err != nil {
		return domain.ExecutionResult{}, err
	}
	if res.Cost, err = parseDec(cost); err != nil {
		return domain.ExecutionResult{}, err
	}
	if res.Profit, err = parseBig(profit); err != nil {
		return domain.ExecutionResult{}, err
	}
	return res, nil
}

func collectExecutions(rows pgx.Rows) ([]domain.ExecutionResult, error) {
	var list []domain.ExecutionResult
	for rows.Next() {
		res, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

func decStr(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseDec(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse amount %q: %w", s, err)
	}
	return v, nil
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: parse profit %q", s)
	}
	return v, nil
}
