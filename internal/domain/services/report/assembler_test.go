package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/pnl"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

type assemblerFixture struct {
	assembler *Assembler
	snapshots *MockSnapshotStore
	rawTicks  *MockRawTickStore
	feed      *MockCounterpartyFeed
	now       time.Time
	today     time.Time
}

func createTestAssembler() *assemblerFixture {
	return createTestAssemblerAt(time.Date(2026, 6, 10, 10, 0, 0, 0, time.UTC))
}

func createTestAssemblerAt(now time.Time) *assemblerFixture {
	snapshots := new(MockSnapshotStore)
	rawTicks := new(MockRawTickStore)
	feed := new(MockCounterpartyFeed)
	log := logger.New("debug", "test")

	clock := func() time.Time { return now }

	resolver := pnl.NewResolver(snapshots, rawTicks, feed, log)
	calc := pnl.NewCalculator()
	cache := NewLiveWindowCache(rawTicks, feed, snapshots, resolver, calc, clock, 5*time.Minute, log)
	assembler := NewAssembler(rawTicks, feed, snapshots, cache, resolver, calc, clock, 31, log)

	return &assemblerFixture{
		assembler: assembler,
		snapshots: snapshots,
		rawTicks:  rawTicks,
		feed:      feed,
		now:       now,
		today:     dateOnly(now),
	}
}

func beforeMatches(want time.Time) interface{} {
	return mock.MatchedBy(func(b *time.Time) bool {
		return b != nil && b.Equal(want)
	})
}

func TestGetReport_FutureMonthIsEmpty(t *testing.T) {
	f := createTestAssembler()

	page, err := f.assembler.GetReport(context.Background(), 2026, 7, nil, 1, 10)

	assert.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 0, page.Pagination.TotalCount)
	f.rawTicks.AssertNotCalled(t, "DistinctDates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.snapshots.AssertNotCalled(t, "GetRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetReport_CurrentMonthMergesLiveAndStored(t *testing.T) {
	f := createTestAssembler()
	ctx := context.Background()

	// Today is the only tick day of the month: nothing to backfill.
	f.rawTicks.On("DistinctDates", mock.Anything, 2026, 6, mock.Anything).
		Return([]time.Time{f.today}, nil)

	fix := &cacheFixture{cache: nil, snapshots: f.snapshots, rawTicks: f.rawTicks, feed: f.feed}
	expectComputeDay(fix, f.today)

	storedRow := &entities.DailyPLRecord{
		TradeDate:       time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC),
		Symbol:          "XAUUSD",
		CompanyPln:      d("10"),
		DailyGrandTotal: d("5"),
	}
	storedTotals := entities.ReportTotals{CompanyPln: d("10"), GrandTotal: d("5")}
	f.snapshots.On("GetRange", mock.Anything, 2026, 6, mock.Anything, 9, 0, beforeMatches(f.today)).
		Return([]*entities.DailyPLRecord{storedRow}, storedTotals, 1, nil)

	page, err := f.assembler.GetReport(ctx, 2026, 6, nil, 1, 10)

	assert.NoError(t, err)
	assert.Len(t, page.Rows, 2)
	assert.Equal(t, f.today, page.Rows[0].TradeDate)
	assert.Equal(t, storedRow, page.Rows[1])

	// Totals span the live row and the stored range.
	assert.True(t, page.Totals.CompanyPln.Equal(d("90")), "companyPln = %s", page.Totals.CompanyPln)
	assert.True(t, page.Totals.GrandTotal.Equal(d("21")), "grandTotal = %s", page.Totals.GrandTotal)
	assert.True(t, page.Totals.Deposit.Equal(d("100")))

	assert.Equal(t, 2, page.Pagination.TotalCount)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestGetReport_CurrentMonthSecondPageSkipsLiveRows(t *testing.T) {
	f := createTestAssembler()
	ctx := context.Background()

	f.rawTicks.On("DistinctDates", mock.Anything, 2026, 6, mock.Anything).
		Return([]time.Time{f.today}, nil)

	fix := &cacheFixture{cache: nil, snapshots: f.snapshots, rawTicks: f.rawTicks, feed: f.feed}
	expectComputeDay(fix, f.today)

	storedRow := &entities.DailyPLRecord{
		TradeDate: time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC),
		Symbol:    "XAUUSD",
	}
	// Page two of size one: the live row filled page one, the first stored
	// row fills page two.
	f.snapshots.On("GetRange", mock.Anything, 2026, 6, mock.Anything, 1, 0, beforeMatches(f.today)).
		Return([]*entities.DailyPLRecord{storedRow}, entities.ReportTotals{}, 1, nil)

	page, err := f.assembler.GetReport(ctx, 2026, 6, nil, 2, 1)

	assert.NoError(t, err)
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, storedRow, page.Rows[0])
	assert.Equal(t, 2, page.Pagination.TotalCount)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestGetReport_PastMonthSkipsFinalizedDays(t *testing.T) {
	f := createTestAssembler()
	ctx := context.Background()
	may5 := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)

	f.rawTicks.On("DistinctDates", mock.Anything, 2026, 5, mock.Anything).
		Return([]time.Time{may5}, nil)
	f.rawTicks.On("DistinctSymbols", mock.Anything, may5).Return([]string{"XAUUSD"}, nil)
	f.snapshots.On("CountFinalized", mock.Anything, may5, []string{"XAUUSD"}).Return(1, nil)

	rows := []*entities.DailyPLRecord{{TradeDate: may5, Symbol: "XAUUSD", IsFinalized: true}}
	f.snapshots.On("GetRange", mock.Anything, 2026, 5, mock.Anything, 10, 0, (*time.Time)(nil)).
		Return(rows, entities.ReportTotals{}, 1, nil)

	page, err := f.assembler.GetReport(ctx, 2026, 5, nil, 1, 10)

	assert.NoError(t, err)
	assert.Len(t, page.Rows, 1)
	f.rawTicks.AssertNotCalled(t, "FirstTicksOfDay", mock.Anything, mock.Anything, mock.Anything)
	f.snapshots.AssertNotCalled(t, "UpsertDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureBackfilled_MaterializesIncompleteDay(t *testing.T) {
	f := createTestAssembler()
	ctx := context.Background()
	may5 := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	may4 := may5.AddDate(0, 0, -1)

	f.rawTicks.On("DistinctDates", mock.Anything, 2026, 5, mock.Anything).
		Return([]time.Time{may5}, nil)
	f.rawTicks.On("DistinctSymbols", mock.Anything, may5).Return([]string{"XAUUSD"}, nil)
	f.snapshots.On("CountFinalized", mock.Anything, may5, []string{"XAUUSD"}).Return(0, nil)

	f.rawTicks.On("FirstTicksOfDay", mock.Anything, may5, mock.Anything).
		Return([]*entities.RawTick{testTick("XAUUSD", may5.Add(9*time.Hour))}, nil)
	f.feed.On("AggregateAsOf", mock.Anything, mock.Anything, may5).
		Return(map[string]*entities.CounterpartyAggregate{}, nil)
	f.snapshots.On("Get", mock.Anything, may4, "XAUUSD").Return(nil, nil)
	f.rawTicks.On("FirstTicksOfDay", mock.Anything, may4, mock.Anything).
		Return([]*entities.RawTick{}, nil)
	f.feed.On("AggregateAsOf", mock.Anything, mock.Anything, may4).
		Return(map[string]*entities.CounterpartyAggregate{}, nil)
	f.snapshots.On("GetDepositWithdrawal", mock.Anything, may5, "XAUUSD").
		Return(d("100"), d("40"), true, nil)

	// Backfilled rows are finalized and keep the stored adjustments.
	f.snapshots.On("UpsertDay", mock.Anything, may5, mock.Anything, mock.MatchedBy(func(records []*entities.DailyPLRecord) bool {
		return len(records) == 1 &&
			records[0].Deposit.Equal(d("100")) &&
			records[0].Withdrawal.Equal(d("40")) &&
			records[0].CompanyPln.Equal(d("50020"))
	}), true).Return(nil)

	err := f.assembler.EnsureBackfilled(ctx, 2026, 5, nil, f.today)

	assert.NoError(t, err)
	f.snapshots.AssertExpectations(t)
}

func TestMaterializeDay_NoTicksStoresNothing(t *testing.T) {
	f := createTestAssembler()
	may5 := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)

	f.rawTicks.On("FirstTicksOfDay", mock.Anything, may5, mock.Anything).
		Return([]*entities.RawTick{}, nil)

	err := f.assembler.MaterializeDay(context.Background(), may5, nil, true)

	assert.NoError(t, err)
	f.snapshots.AssertNotCalled(t, "UpsertDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureBackfilled_WesternClockLeavesTodayLive(t *testing.T) {
	// Tick dates come back as UTC midnights; with a clock west of UTC,
	// today's UTC midnight is an earlier instant than local midnight. The
	// cutoff must compare calendar days, or today gets materialized and
	// finalized from its first tick while still trading.
	loc := time.FixedZone("UTC-5", -5*3600)
	f := createTestAssemblerAt(time.Date(2026, 6, 10, 10, 0, 0, 0, loc))
	todayUTC := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

	f.rawTicks.On("DistinctDates", mock.Anything, 2026, 6, mock.Anything).
		Return([]time.Time{todayUTC}, nil)

	err := f.assembler.EnsureBackfilled(context.Background(), 2026, 6, nil, f.today)

	assert.NoError(t, err)
	f.rawTicks.AssertNotCalled(t, "FirstTicksOfDay", mock.Anything, mock.Anything, mock.Anything)
	f.snapshots.AssertNotCalled(t, "UpsertDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything, true)
}

func TestPaginate(t *testing.T) {
	p := paginate(2, 10, 25)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 25, p.TotalCount)
	assert.Equal(t, 3, p.TotalPages)

	p = paginate(1, 10, 0)
	assert.Equal(t, 0, p.TotalPages)
}
