package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func sampleTick(observedAt time.Time) *entities.RawTick {
	return &entities.RawTick{
		ID:         1,
		Symbol:     "XAUUSD",
		ObservedAt: observedAt,

		CompanyBuySize:   d("10"),
		CompanyBuyPrice:  d("100"),
		CompanySellSize:  d("6"),
		CompanySellPrice: d("110"),

		CpBuySize:   d("6"),
		CpBuyPrice:  d("109"),
		CpSellSize:  d("10"),
		CpSellPrice: d("101"),

		MarketPrice: d("105"),

		CompanyBalance:  d("50000"),
		CompanyEquity:   d("50080"),
		CompanyFloating: d("20"),
	}
}

func TestBookPnL_MatchedAndOpenBuySide(t *testing.T) {
	realized, unrealized := bookPnL(d("10"), d("100"), d("6"), d("110"), d("105"))

	// 6 matched units at a 10 spread, 4 open units marked from 100 to 105.
	assert.True(t, realized.Equal(d("60")), "realized = %s", realized)
	assert.True(t, unrealized.Equal(d("20")), "unrealized = %s", unrealized)
}

func TestBookPnL_OpenSellSide(t *testing.T) {
	realized, unrealized := bookPnL(d("6"), d("109"), d("10"), d("101"), d("105"))

	assert.True(t, realized.Equal(d("-48")), "realized = %s", realized)
	assert.True(t, unrealized.Equal(d("-16")), "unrealized = %s", unrealized)
}

func TestBookPnL_RealizedNeedsBothSizes(t *testing.T) {
	realized, unrealized := bookPnL(d("10"), d("100"), d("0"), d("110"), d("105"))

	assert.True(t, realized.IsZero())
	// The whole buy side is open.
	assert.True(t, unrealized.Equal(d("50")), "unrealized = %s", unrealized)
}

func TestBookPnL_RealizedNeedsBothPrices(t *testing.T) {
	realized, _ := bookPnL(d("10"), d("0"), d("6"), d("110"), d("105"))
	assert.True(t, realized.IsZero())

	realized, _ = bookPnL(d("10"), d("100"), d("6"), d("0"), d("105"))
	assert.True(t, realized.IsZero())
}

func TestBookPnL_BalancedBookHasNoUnrealized(t *testing.T) {
	realized, unrealized := bookPnL(d("5"), d("100"), d("5"), d("102"), d("99"))

	assert.True(t, realized.Equal(d("10")))
	assert.True(t, unrealized.IsZero())
}

func TestCompute_WorkedExample(t *testing.T) {
	calc := NewCalculator()
	observedAt := time.Date(2026, 3, 17, 14, 30, 0, 0, time.UTC)
	tick := sampleTick(observedAt)

	cpAgg := &entities.CounterpartyAggregate{
		Symbol:   "XAUUSD",
		Balance:  d("40000"),
		Equity:   d("40030"),
		Floating: d("30"),
	}
	prior := entities.PriorDayBalances{
		CompanyBalance: d("49800"),
		CompanyEquity:  d("49900"),
		CpBalance:      d("39900"),
		CpFloating:     d("10"),
	}

	record := calc.Compute(tick, cpAgg, prior, d("100"), d("40"))

	assert.Equal(t, "XAUUSD", record.Symbol)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), record.TradeDate)
	assert.Equal(t, 2026, record.Year)
	assert.Equal(t, 3, record.Month)

	assert.True(t, record.CompanyRealized.Equal(d("60")), "companyRealized = %s", record.CompanyRealized)
	assert.True(t, record.CompanyUnrealized.Equal(d("20")), "companyUnrealized = %s", record.CompanyUnrealized)

	// The counterparty book holds the mirror position, so its figures flip.
	assert.True(t, record.CpRealized.Equal(d("48")), "cpRealized = %s", record.CpRealized)
	assert.True(t, record.CpUnrealized.Equal(d("16")), "cpUnrealized = %s", record.CpUnrealized)

	assert.True(t, record.DailyCompanyTotal.Equal(d("80")))
	assert.True(t, record.DailyCpTotal.Equal(d("64")))
	assert.True(t, record.DailyGrandTotal.Equal(d("16")))

	// equity delta 180, minus deposit 100, plus withdrawal 40
	assert.True(t, record.CompanyPln.Equal(d("120")), "companyPln = %s", record.CompanyPln)
	assert.True(t, record.CpPln.Equal(d("20")), "cpPln = %s", record.CpPln)

	// balance delta 200 company, 100 counterparty
	assert.True(t, record.AccountProfit.Equal(d("100")), "accountProfit = %s", record.AccountProfit)

	assert.True(t, record.Deposit.Equal(d("100")))
	assert.True(t, record.Withdrawal.Equal(d("40")))
}

func TestCompute_NilCounterpartyAggregate(t *testing.T) {
	calc := NewCalculator()
	tick := sampleTick(time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC))

	record := calc.Compute(tick, nil, entities.PriorDayBalances{}, decimal.Zero, decimal.Zero)

	assert.True(t, record.CpBalance.IsZero())
	assert.True(t, record.CpEquity.IsZero())
	assert.True(t, record.CpFloating.IsZero())
	assert.True(t, record.CpPln.IsZero())
	// The counterparty book still comes from the tick itself.
	assert.True(t, record.CpRealized.Equal(d("48")))
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	calc := NewCalculator()
	tick := sampleTick(time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC))
	tick.CompanyEquity = d("50000.005")

	record := calc.Compute(tick, nil, entities.PriorDayBalances{}, decimal.Zero, decimal.Zero)

	assert.Equal(t, "50000.01", record.CompanyEquity.String())
	assert.Equal(t, "50000.01", record.CompanyPln.String())

	tick.CompanyEquity = d("-0.005")
	record = calc.Compute(tick, nil, entities.PriorDayBalances{}, decimal.Zero, decimal.Zero)
	assert.Equal(t, "-0.01", record.CompanyEquity.String())
}

func TestCompute_TradeDateKeepsTickLocation(t *testing.T) {
	calc := NewCalculator()
	loc := time.FixedZone("UTC+7", 7*3600)
	tick := sampleTick(time.Date(2026, 3, 17, 23, 45, 0, 0, loc))

	record := calc.Compute(tick, nil, entities.PriorDayBalances{}, decimal.Zero, decimal.Zero)

	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, loc), record.TradeDate)
}
