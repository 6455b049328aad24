package pnl

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

// Mock implementations for testing
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Get(ctx context.Context, date time.Time, symbol string) (*entities.DailyPLRecord, error) {
	args := m.Called(ctx, date, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DailyPLRecord), args.Error(1)
}

func (m *MockSnapshotStore) GetRange(ctx context.Context, year, month int, symbols []string, limit, offset int, before *time.Time) ([]*entities.DailyPLRecord, entities.ReportTotals, int, error) {
	args := m.Called(ctx, year, month, symbols, limit, offset, before)
	return args.Get(0).([]*entities.DailyPLRecord), args.Get(1).(entities.ReportTotals), args.Int(2), args.Error(3)
}

func (m *MockSnapshotStore) UpsertDay(ctx context.Context, date time.Time, symbols []string, records []*entities.DailyPLRecord, finalize bool) error {
	args := m.Called(ctx, date, symbols, records, finalize)
	return args.Error(0)
}

func (m *MockSnapshotStore) CountFinalized(ctx context.Context, date time.Time, symbols []string) (int, error) {
	args := m.Called(ctx, date, symbols)
	return args.Int(0), args.Error(1)
}

func (m *MockSnapshotStore) SetDepositWithdrawal(ctx context.Context, date time.Time, symbol string, deposit, withdrawal decimal.Decimal) error {
	args := m.Called(ctx, date, symbol, deposit, withdrawal)
	return args.Error(0)
}

func (m *MockSnapshotStore) GetDepositWithdrawal(ctx context.Context, date time.Time, symbol string) (decimal.Decimal, decimal.Decimal, bool, error) {
	args := m.Called(ctx, date, symbol)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Bool(2), args.Error(3)
}

func (m *MockSnapshotStore) Finalize(ctx context.Context, date time.Time) error {
	args := m.Called(ctx, date)
	return args.Error(0)
}

func (m *MockSnapshotStore) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSnapshotStore) Stats(ctx context.Context) (*entities.StorageStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StorageStats), args.Error(1)
}

type MockRawTickStore struct {
	mock.Mock
}

func (m *MockRawTickStore) FirstTicksOfDay(ctx context.Context, date time.Time, symbols []string) ([]*entities.RawTick, error) {
	args := m.Called(ctx, date, symbols)
	return args.Get(0).([]*entities.RawTick), args.Error(1)
}

func (m *MockRawTickStore) LatestTicksOfDay(ctx context.Context, date time.Time, symbols []string) ([]*entities.RawTick, error) {
	args := m.Called(ctx, date, symbols)
	return args.Get(0).([]*entities.RawTick), args.Error(1)
}

func (m *MockRawTickStore) DistinctDates(ctx context.Context, year, month int, symbols []string) ([]time.Time, error) {
	args := m.Called(ctx, year, month, symbols)
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockRawTickStore) DistinctSymbols(ctx context.Context, date time.Time) ([]string, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRawTickStore) AllDates(ctx context.Context) ([]time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockRawTickStore) LatestTwoTicks(ctx context.Context, symbol string) ([]*entities.RawTick, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).([]*entities.RawTick), args.Error(1)
}

type MockCounterpartyFeed struct {
	mock.Mock
}

func (m *MockCounterpartyFeed) AggregateAsOf(ctx context.Context, symbols []string, asOf time.Time) (map[string]*entities.CounterpartyAggregate, error) {
	args := m.Called(ctx, symbols, asOf)
	return args.Get(0).(map[string]*entities.CounterpartyAggregate), args.Error(1)
}

func createTestResolver() (*Resolver, *MockSnapshotStore, *MockRawTickStore, *MockCounterpartyFeed) {
	snapshots := new(MockSnapshotStore)
	rawTicks := new(MockRawTickStore)
	feed := new(MockCounterpartyFeed)
	log := logger.New("debug", "test")

	resolver := NewResolver(snapshots, rawTicks, feed, log)
	return resolver, snapshots, rawTicks, feed
}

func TestResolve_SnapshotWins(t *testing.T) {
	resolver, snapshots, rawTicks, feed := createTestResolver()

	ctx := context.Background()
	date := time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC)
	prior := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	snapshots.On("Get", ctx, prior, "XAUUSD").Return(&entities.DailyPLRecord{
		CompanyBalance: d("49800"),
		CompanyEquity:  d("49900"),
	}, nil)
	feed.On("AggregateAsOf", ctx, []string{"XAUUSD"}, prior).Return(map[string]*entities.CounterpartyAggregate{
		"XAUUSD": {Symbol: "XAUUSD", Balance: d("39900"), Floating: d("10")},
	}, nil)

	balances, err := resolver.Resolve(ctx, "XAUUSD", date)

	assert.NoError(t, err)
	assert.True(t, balances.CompanyBalance.Equal(d("49800")))
	assert.True(t, balances.CompanyEquity.Equal(d("49900")))
	assert.True(t, balances.CpBalance.Equal(d("39900")))
	assert.True(t, balances.CpFloating.Equal(d("10")))
	rawTicks.AssertNotCalled(t, "FirstTicksOfDay", mock.Anything, mock.Anything, mock.Anything)
	snapshots.AssertExpectations(t)
	feed.AssertExpectations(t)
}

func TestResolve_FallsBackToRawTicks(t *testing.T) {
	resolver, snapshots, rawTicks, feed := createTestResolver()

	ctx := context.Background()
	date := time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC)
	prior := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	snapshots.On("Get", ctx, prior, "XAUUSD").Return(nil, nil)
	rawTicks.On("FirstTicksOfDay", ctx, prior, []string{"XAUUSD"}).Return([]*entities.RawTick{
		{Symbol: "XAUUSD", CompanyBalance: d("49500"), CompanyEquity: d("49600")},
	}, nil)
	feed.On("AggregateAsOf", ctx, []string{"XAUUSD"}, prior).Return(map[string]*entities.CounterpartyAggregate{}, nil)

	balances, err := resolver.Resolve(ctx, "XAUUSD", date)

	assert.NoError(t, err)
	assert.True(t, balances.CompanyBalance.Equal(d("49500")))
	assert.True(t, balances.CompanyEquity.Equal(d("49600")))
	assert.True(t, balances.CpBalance.IsZero())
	assert.True(t, balances.CpFloating.IsZero())
	rawTicks.AssertExpectations(t)
}

func TestResolve_NoPriorDataMeansZeros(t *testing.T) {
	resolver, snapshots, rawTicks, feed := createTestResolver()

	ctx := context.Background()
	date := time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC)
	prior := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	snapshots.On("Get", ctx, prior, "XAUUSD").Return(nil, nil)
	rawTicks.On("FirstTicksOfDay", ctx, prior, []string{"XAUUSD"}).Return([]*entities.RawTick{}, nil)
	feed.On("AggregateAsOf", ctx, []string{"XAUUSD"}, prior).Return(map[string]*entities.CounterpartyAggregate{}, nil)

	balances, err := resolver.Resolve(ctx, "XAUUSD", date)

	assert.NoError(t, err)
	assert.True(t, balances.CompanyBalance.IsZero())
	assert.True(t, balances.CompanyEquity.IsZero())
	assert.True(t, balances.CpBalance.IsZero())
	assert.True(t, balances.CpFloating.IsZero())
}

func TestResolve_CounterpartyAlwaysRederived(t *testing.T) {
	resolver, snapshots, _, feed := createTestResolver()

	ctx := context.Background()
	date := time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC)
	prior := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	// The snapshot carries stale counterparty figures; the feed must win.
	snapshots.On("Get", ctx, prior, "XAUUSD").Return(&entities.DailyPLRecord{
		CompanyBalance: d("49800"),
		CompanyEquity:  d("49900"),
		CpBalance:      d("1"),
		CpFloating:     d("1"),
	}, nil)
	feed.On("AggregateAsOf", ctx, []string{"XAUUSD"}, prior).Return(map[string]*entities.CounterpartyAggregate{
		"XAUUSD": {Symbol: "XAUUSD", Balance: d("40500"), Floating: d("25")},
	}, nil)

	balances, err := resolver.Resolve(ctx, "XAUUSD", date)

	assert.NoError(t, err)
	assert.True(t, balances.CpBalance.Equal(d("40500")))
	assert.True(t, balances.CpFloating.Equal(d("25")))
}
