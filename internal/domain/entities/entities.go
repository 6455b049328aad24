package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawTick is one per-symbol observation written by the external tick
// recorder. It carries both order-book snapshots plus the company account
// state at the observation instant. Numeric columns may be NULL at the
// source; the repository scanning boundary defaults them to zero.
type RawTick struct {
	ID         int64     `db:"id" json:"id"`
	Symbol     string    `db:"symbol" json:"symbol"`
	ObservedAt time.Time `db:"observed_at" json:"observed_at"`

	// Company book
	CompanyBuySize   decimal.Decimal `db:"company_buy_size" json:"company_buy_size"`
	CompanyBuyPrice  decimal.Decimal `db:"company_buy_price" json:"company_buy_price"`
	CompanySellSize  decimal.Decimal `db:"company_sell_size" json:"company_sell_size"`
	CompanySellPrice decimal.Decimal `db:"company_sell_price" json:"company_sell_price"`

	// Counterparty ("Exp") book
	CpBuySize   decimal.Decimal `db:"cp_buy_size" json:"cp_buy_size"`
	CpBuyPrice  decimal.Decimal `db:"cp_buy_price" json:"cp_buy_price"`
	CpSellSize  decimal.Decimal `db:"cp_sell_size" json:"cp_sell_size"`
	CpSellPrice decimal.Decimal `db:"cp_sell_price" json:"cp_sell_price"`

	MarketPrice decimal.Decimal `db:"market_price" json:"market_price"`

	// Company account state
	CompanyBalance  decimal.Decimal `db:"company_balance" json:"company_balance"`
	CompanyEquity   decimal.Decimal `db:"company_equity" json:"company_equity"`
	CompanyFloating decimal.Decimal `db:"company_floating" json:"company_floating"`
}

// CounterpartyAggregate holds the counterparty book figures for one symbol,
// summed across all sub-accounts as of the latest activity on or before the
// as-of date. Derived, never stored.
type CounterpartyAggregate struct {
	Symbol   string          `json:"symbol"`
	AsOfDate time.Time       `json:"as_of_date"`
	Balance  decimal.Decimal `json:"balance"`
	Equity   decimal.Decimal `json:"equity"`
	Floating decimal.Decimal `json:"floating"`
	Pnl      decimal.Decimal `json:"pnl"`
}

// PriorDayBalances carries the previous day's figures needed to reconcile a
// day's record.
type PriorDayBalances struct {
	CompanyBalance decimal.Decimal `json:"company_balance"`
	CompanyEquity  decimal.Decimal `json:"company_equity"`
	CpBalance      decimal.Decimal `json:"cp_balance"`
	CpFloating     decimal.Decimal `json:"cp_floating"`
}

// DailyPLRecord is the persisted daily snapshot, unique per
// (trade_date, symbol).
type DailyPLRecord struct {
	TradeDate time.Time `db:"trade_date" json:"trade_date"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Year      int       `db:"year" json:"year"`
	Month     int       `db:"month" json:"month"`

	MarketPrice decimal.Decimal `db:"market_price" json:"market_price"`

	CompanyBuySize   decimal.Decimal `db:"company_buy_size" json:"company_buy_size"`
	CompanyBuyPrice  decimal.Decimal `db:"company_buy_price" json:"company_buy_price"`
	CompanySellSize  decimal.Decimal `db:"company_sell_size" json:"company_sell_size"`
	CompanySellPrice decimal.Decimal `db:"company_sell_price" json:"company_sell_price"`

	CpBuySize   decimal.Decimal `db:"cp_buy_size" json:"cp_buy_size"`
	CpBuyPrice  decimal.Decimal `db:"cp_buy_price" json:"cp_buy_price"`
	CpSellSize  decimal.Decimal `db:"cp_sell_size" json:"cp_sell_size"`
	CpSellPrice decimal.Decimal `db:"cp_sell_price" json:"cp_sell_price"`

	CompanyBalance    decimal.Decimal `db:"company_balance" json:"company_balance"`
	CompanyEquity     decimal.Decimal `db:"company_equity" json:"company_equity"`
	CompanyFloating   decimal.Decimal `db:"company_floating" json:"company_floating"`
	CompanyPln        decimal.Decimal `db:"company_pln" json:"company_pln"`
	Deposit           decimal.Decimal `db:"deposit" json:"deposit"`
	Withdrawal        decimal.Decimal `db:"withdrawal" json:"withdrawal"`
	CompanyRealized   decimal.Decimal `db:"company_realized" json:"company_realized"`
	CompanyUnrealized decimal.Decimal `db:"company_unrealized" json:"company_unrealized"`

	CpBalance    decimal.Decimal `db:"cp_balance" json:"cp_balance"`
	CpEquity     decimal.Decimal `db:"cp_equity" json:"cp_equity"`
	CpFloating   decimal.Decimal `db:"cp_floating" json:"cp_floating"`
	CpPln        decimal.Decimal `db:"cp_pln" json:"cp_pln"`
	CpRealized   decimal.Decimal `db:"cp_realized" json:"cp_realized"`
	CpUnrealized decimal.Decimal `db:"cp_unrealized" json:"cp_unrealized"`

	AccountProfit     decimal.Decimal `db:"account_profit" json:"account_profit"`
	DailyCompanyTotal decimal.Decimal `db:"daily_company_total" json:"daily_company_total"`
	DailyCpTotal      decimal.Decimal `db:"daily_cp_total" json:"daily_cp_total"`
	DailyGrandTotal   decimal.Decimal `db:"daily_grand_total" json:"daily_grand_total"`

	IsFinalized bool      `db:"is_finalized" json:"is_finalized"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ReportTotals sums the numeric fields across an entire filtered range, not
// just the returned page.
type ReportTotals struct {
	CompanyPln        decimal.Decimal `json:"company_pln"`
	Deposit           decimal.Decimal `json:"deposit"`
	Withdrawal        decimal.Decimal `json:"withdrawal"`
	CompanyRealized   decimal.Decimal `json:"company_realized"`
	CompanyUnrealized decimal.Decimal `json:"company_unrealized"`
	CpPln             decimal.Decimal `json:"cp_pln"`
	CpRealized        decimal.Decimal `json:"cp_realized"`
	CpUnrealized      decimal.Decimal `json:"cp_unrealized"`
	AccountProfit     decimal.Decimal `json:"account_profit"`
	DailyCompanyTotal decimal.Decimal `json:"daily_company_total"`
	DailyCpTotal      decimal.Decimal `json:"daily_cp_total"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
}

// Add returns the per-field sum of two totals
func (t ReportTotals) Add(o ReportTotals) ReportTotals {
	return ReportTotals{
		CompanyPln:        t.CompanyPln.Add(o.CompanyPln),
		Deposit:           t.Deposit.Add(o.Deposit),
		Withdrawal:        t.Withdrawal.Add(o.Withdrawal),
		CompanyRealized:   t.CompanyRealized.Add(o.CompanyRealized),
		CompanyUnrealized: t.CompanyUnrealized.Add(o.CompanyUnrealized),
		CpPln:             t.CpPln.Add(o.CpPln),
		CpRealized:        t.CpRealized.Add(o.CpRealized),
		CpUnrealized:      t.CpUnrealized.Add(o.CpUnrealized),
		AccountProfit:     t.AccountProfit.Add(o.AccountProfit),
		DailyCompanyTotal: t.DailyCompanyTotal.Add(o.DailyCompanyTotal),
		DailyCpTotal:      t.DailyCpTotal.Add(o.DailyCpTotal),
		GrandTotal:        t.GrandTotal.Add(o.GrandTotal),
	}
}

// Round rounds every field to two decimal places
func (t ReportTotals) Round() ReportTotals {
	return ReportTotals{
		CompanyPln:        t.CompanyPln.Round(2),
		Deposit:           t.Deposit.Round(2),
		Withdrawal:        t.Withdrawal.Round(2),
		CompanyRealized:   t.CompanyRealized.Round(2),
		CompanyUnrealized: t.CompanyUnrealized.Round(2),
		CpPln:             t.CpPln.Round(2),
		CpRealized:        t.CpRealized.Round(2),
		CpUnrealized:      t.CpUnrealized.Round(2),
		AccountProfit:     t.AccountProfit.Round(2),
		DailyCompanyTotal: t.DailyCompanyTotal.Round(2),
		DailyCpTotal:      t.DailyCpTotal.Round(2),
		GrandTotal:        t.GrandTotal.Round(2),
	}
}

// Pagination describes the page window of a report response
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// ReportPage is the assembled answer to a report query
type ReportPage struct {
	Rows       []*DailyPLRecord `json:"rows"`
	Totals     ReportTotals     `json:"totals"`
	Pagination Pagination       `json:"pagination"`
}

// StorageStatRow summarizes one year/month bucket of the snapshot store
type StorageStatRow struct {
	Year      int `db:"year" json:"year"`
	Month     int `db:"month" json:"month"`
	Records   int `db:"records" json:"records"`
	Finalized int `db:"finalized" json:"finalized"`
}

// StorageStats is the read-only summary over the snapshot store
type StorageStats struct {
	TotalRecords   int              `json:"total_records"`
	TotalFinalized int              `json:"total_finalized"`
	ByMonth        []StorageStatRow `json:"by_month"`
}

// SymbolEvaluation compares the latest two ticks of a symbol against a
// movement threshold. Read-only; never touches snapshot rows.
type SymbolEvaluation struct {
	Symbol         string          `json:"symbol"`
	LatestAt       time.Time       `json:"latest_at"`
	PreviousAt     time.Time       `json:"previous_at"`
	EquityChange   decimal.Decimal `json:"equity_change"`
	FloatingChange decimal.Decimal `json:"floating_change"`
	Threshold      decimal.Decimal `json:"threshold"`
	Triggered      bool            `json:"triggered"`
}

// ErrorResponse is the standard error envelope for the HTTP layer
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
