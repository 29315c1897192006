package stats

import (
	"context"
	"log/slog"
	"math/big"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arbstack/flasharb/internal/domain"
)

type MockStatsStore struct {
	mock.Mock
}

func (m *MockStatsStore) Upsert(ctx context.Context, s domain.StrategyStats) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStatsStore) GetByKind(ctx context.Context, kind domain.StrategyKind) (domain.StrategyStats, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(domain.StrategyStats), args.Error(1)
}

func (m *MockStatsStore) ListAll(ctx context.Context) ([]domain.StrategyStats, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StrategyStats), args.Error(1)
}

func newLedger() *Ledger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewLedger(nil, logger)
}

func TestLedgerRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("success adds profit", func(t *testing.T) {
		l := newLedger()
		l.Record(ctx, domain.SameVenueSimple, true, big.NewInt(2_000))
		l.Record(ctx, domain.SameVenueSimple, true, big.NewInt(3_000))
		l.Record(ctx, domain.SameVenueSimple, false, nil)

		s := l.Get(domain.SameVenueSimple)
		assert.Equal(t, int64(3), s.ExecutionCount)
		assert.Equal(t, int64(2), s.SuccessCount)
		assert.Equal(t, "5000", s.CumulativeProfit.String())
		assert.InDelta(t, 2.0/3.0, s.SuccessRate, 1e-9)
		// 5000 * 10000 / 3
		assert.Equal(t, "16666666", s.AvgProfitBps.String())
	})

	t.Run("failed attempts never move profit", func(t *testing.T) {
		l := newLedger()
		l.Record(ctx, domain.CrossVenueSimple, false, big.NewInt(999))
		s := l.Get(domain.CrossVenueSimple)
		assert.Equal(t, int64(1), s.ExecutionCount)
		assert.True(t, s.CumulativeProfit.Sign() == 0)
		assert.Zero(t, s.SuccessRate)
	})

	t.Run("negative profit on success is still booked", func(t *testing.T) {
		l := newLedger()
		l.Record(ctx, domain.Modular, true, big.NewInt(-500))
		s := l.Get(domain.Modular)
		assert.Equal(t, "-500", s.CumulativeProfit.String())
	})

	t.Run("unknown kind returns a zero snapshot", func(t *testing.T) {
		l := newLedger()
		s := l.Get(domain.RealWorldAsset)
		assert.Zero(t, s.ExecutionCount)
		require.NotNil(t, s.CumulativeProfit)
		assert.Zero(t, s.CumulativeProfit.Sign())
	})
}

func TestLedgerConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	// 60 successes with varying profit, 40 aborted post-validation.
	var wg sync.WaitGroup
	expectedProfit := int64(0)
	for i := 1; i <= 60; i++ {
		expectedProfit += int64(i * 100)
	}
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i <= 60 {
				l.Record(ctx, domain.CrossVenueTriangular, true, big.NewInt(int64(i*100)))
			} else {
				l.Record(ctx, domain.CrossVenueTriangular, false, nil)
			}
		}(i)
	}
	wg.Wait()

	s := l.Get(domain.CrossVenueTriangular)
	assert.Equal(t, int64(100), s.ExecutionCount)
	assert.Equal(t, int64(60), s.SuccessCount)
	assert.Equal(t, big.NewInt(expectedProfit).String(), s.CumulativeProfit.String())
}

func TestLedgerSnapshot(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	l.Record(ctx, domain.SameVenueTriangular, true, big.NewInt(100))
	l.Record(ctx, domain.CrossNetworkSimple, false, nil)

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	// Sorted by kind.
	assert.Equal(t, domain.CrossNetworkSimple, snap[0].Kind)
	assert.Equal(t, domain.SameVenueTriangular, snap[1].Kind)
}

func TestLedgerPersistsThroughStore(t *testing.T) {
	store := new(MockStatsStore)
	store.On("Upsert", mock.Anything, mock.MatchedBy(func(s domain.StrategyStats) bool {
		return s.Kind == domain.IntentBased && s.ExecutionCount == 1
	})).Return(nil).Once()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	l := NewLedger(store, logger)
	l.Record(context.Background(), domain.IntentBased, true, big.NewInt(42))

	store.AssertExpectations(t)
}
