package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ExecutionStore persists execution attempt history with legs.
type ExecutionStore interface {
	Insert(ctx context.Context, res ExecutionResult, route Route) error
	GetByRequestID(ctx context.Context, requestID string) (ExecutionResult, error)
	ListRecent(ctx context.Context, limit int) ([]ExecutionResult, error)
	ListBefore(ctx context.Context, before time.Time) ([]ExecutionResult, error)
}

// StatsStore persists the per-strategy statistics snapshot.
type StatsStore interface {
	Upsert(ctx context.Context, stats StrategyStats) error
	GetByKind(ctx context.Context, kind StrategyKind) (StrategyStats, error)
	ListAll(ctx context.Context) ([]StrategyStats, error)
}

// EventBus publishes attempt events to out-of-process consumers. The engine
// only writes; dashboards and ledger readers subscribe elsewhere.
type EventBus interface {
	PublishAttempt(ctx context.Context, ev AttemptEvent) error
}

// BlobWriter uploads a blob to object storage at the given key.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// Archiver exports settled execution history to cold storage.
type Archiver interface {
	ArchiveExecutions(ctx context.Context, before time.Time) (int64, error)
}
