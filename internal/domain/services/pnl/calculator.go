package pnl

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
)

// Calculator converts one raw tick plus the previous day's balances and the
// counterparty aggregates into a fully populated daily P&L record. Pure; all
// rounding happens at the record boundary, never inside the arithmetic.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// bookPnL computes realized and unrealized profit for one order book.
// Realized profit covers the matched portion of buy and sell size, taken
// only when both sides priced. Unrealized marks the net open side to the
// market price.
func bookPnL(buySize, buyPrice, sellSize, sellPrice, marketPrice decimal.Decimal) (realized, unrealized decimal.Decimal) {
	if buySize.IsPositive() && sellSize.IsPositive() &&
		buyPrice.IsPositive() && sellPrice.IsPositive() {
		matched := decimal.Min(buySize, sellSize)
		realized = matched.Mul(sellPrice.Sub(buyPrice))
	}

	switch {
	case buySize.GreaterThan(sellSize):
		unrealized = buySize.Sub(sellSize).Mul(marketPrice.Sub(buyPrice))
	case sellSize.GreaterThan(buySize):
		unrealized = sellSize.Sub(buySize).Mul(sellPrice.Sub(marketPrice))
	}

	return realized, unrealized
}

// Compute builds the daily record for a tick's symbol and trade date.
// cpAgg may be nil when the feed has no activity for the symbol; absent
// optional inputs count as zero.
func (c *Calculator) Compute(tick *entities.RawTick, cpAgg *entities.CounterpartyAggregate, prior entities.PriorDayBalances, deposit, withdrawal decimal.Decimal) *entities.DailyPLRecord {
	tradeDate := truncateToDay(tick.ObservedAt)

	companyRealized, companyUnrealized := bookPnL(
		tick.CompanyBuySize, tick.CompanyBuyPrice,
		tick.CompanySellSize, tick.CompanySellPrice,
		tick.MarketPrice,
	)

	// The counterparty holds the mirror side of the company's position, so
	// its book figures are sign-flipped.
	cpRealized, cpUnrealized := bookPnL(
		tick.CpBuySize, tick.CpBuyPrice,
		tick.CpSellSize, tick.CpSellPrice,
		tick.MarketPrice,
	)
	cpRealized = cpRealized.Neg()
	cpUnrealized = cpUnrealized.Neg()

	var cpBalance, cpEquity, cpFloating decimal.Decimal
	if cpAgg != nil {
		cpBalance = cpAgg.Balance
		cpEquity = cpAgg.Equity
		cpFloating = cpAgg.Floating
	}

	companyPln := tick.CompanyEquity.Sub(prior.CompanyEquity).Sub(deposit).Add(withdrawal)

	// The counterparty side has no deposit/withdrawal concept; its daily
	// movement is the floating delta.
	cpPln := cpFloating.Sub(prior.CpFloating)

	accountProfit := tick.CompanyBalance.Sub(prior.CompanyBalance).
		Sub(cpBalance.Sub(prior.CpBalance))

	dailyCompanyTotal := companyRealized.Add(companyUnrealized)
	dailyCpTotal := cpRealized.Add(cpUnrealized)

	record := &entities.DailyPLRecord{
		TradeDate: tradeDate,
		Symbol:    tick.Symbol,
		Year:      tradeDate.Year(),
		Month:     int(tradeDate.Month()),

		MarketPrice: tick.MarketPrice.Round(2),

		CompanyBuySize:   tick.CompanyBuySize.Round(2),
		CompanyBuyPrice:  tick.CompanyBuyPrice.Round(2),
		CompanySellSize:  tick.CompanySellSize.Round(2),
		CompanySellPrice: tick.CompanySellPrice.Round(2),

		CpBuySize:   tick.CpBuySize.Round(2),
		CpBuyPrice:  tick.CpBuyPrice.Round(2),
		CpSellSize:  tick.CpSellSize.Round(2),
		CpSellPrice: tick.CpSellPrice.Round(2),

		CompanyBalance:    tick.CompanyBalance.Round(2),
		CompanyEquity:     tick.CompanyEquity.Round(2),
		CompanyFloating:   tick.CompanyFloating.Round(2),
		CompanyPln:        companyPln.Round(2),
		Deposit:           deposit.Round(2),
		Withdrawal:        withdrawal.Round(2),
		CompanyRealized:   companyRealized.Round(2),
		CompanyUnrealized: companyUnrealized.Round(2),

		CpBalance:    cpBalance.Round(2),
		CpEquity:     cpEquity.Round(2),
		CpFloating:   cpFloating.Round(2),
		CpPln:        cpPln.Round(2),
		CpRealized:   cpRealized.Round(2),
		CpUnrealized: cpUnrealized.Round(2),

		AccountProfit:     accountProfit.Round(2),
		DailyCompanyTotal: dailyCompanyTotal.Round(2),
		DailyCpTotal:      dailyCpTotal.Round(2),
		DailyGrandTotal:   dailyCompanyTotal.Sub(dailyCpTotal).Round(2),
	}

	return record
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
