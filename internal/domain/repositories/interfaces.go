package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
)

// RawTickStore is the read-only contract over the external tick recorder's
// table.
type RawTickStore interface {
	// FirstTicksOfDay returns the first tick per symbol for the date, the
	// representative row for historical aggregation.
	FirstTicksOfDay(ctx context.Context, date time.Time, symbols []string) ([]*entities.RawTick, error)

	// LatestTicksOfDay returns the most recent tick per symbol for the date,
	// used for the live "today" window.
	LatestTicksOfDay(ctx context.Context, date time.Time, symbols []string) ([]*entities.RawTick, error)

	// DistinctDates returns the trading dates observed in a year/month for
	// the symbol set, ascending.
	DistinctDates(ctx context.Context, year, month int, symbols []string) ([]time.Time, error)

	// DistinctSymbols returns the symbols observed on a date.
	DistinctSymbols(ctx context.Context, date time.Time) ([]string, error)

	// AllDates returns every distinct trading date in history, ascending.
	AllDates(ctx context.Context) ([]time.Time, error)

	// LatestTwoTicks returns up to the two most recent ticks for a symbol,
	// newest first. This is the narrow contract the alert evaluator reads.
	LatestTwoTicks(ctx context.Context, symbol string) ([]*entities.RawTick, error)
}

// CounterpartyFeed aggregates the counterparty activity feed per symbol as
// of a date.
type CounterpartyFeed interface {
	AggregateAsOf(ctx context.Context, symbols []string, asOf time.Time) (map[string]*entities.CounterpartyAggregate, error)
}

// SnapshotStore is the persisted, queryable table of daily P&L records.
type SnapshotStore interface {
	// Get returns the record for (date, symbol), or nil when absent.
	Get(ctx context.Context, date time.Time, symbol string) (*entities.DailyPLRecord, error)

	// GetRange returns one page of the filtered range sorted by
	// trade_date DESC, symbol ASC, plus range-wide totals and the total row
	// count. A non-nil before excludes rows on or after that date.
	GetRange(ctx context.Context, year, month int, symbols []string, limit, offset int, before *time.Time) ([]*entities.DailyPLRecord, entities.ReportTotals, int, error)

	// UpsertDay atomically replaces the unfinalized rows for (date, symbol
	// scope) with records, carrying forward existing deposit/withdrawal
	// values. Finalized rows are left untouched.
	UpsertDay(ctx context.Context, date time.Time, symbols []string, records []*entities.DailyPLRecord, finalize bool) error

	// CountFinalized counts finalized rows for the date restricted to the
	// given symbols.
	CountFinalized(ctx context.Context, date time.Time, symbols []string) (int, error)

	// SetDepositWithdrawal updates only the two adjustment fields, creating
	// a placeholder row when none exists.
	SetDepositWithdrawal(ctx context.Context, date time.Time, symbol string, deposit, withdrawal decimal.Decimal) error

	// GetDepositWithdrawal returns the stored adjustments for (date, symbol)
	// and whether a row exists.
	GetDepositWithdrawal(ctx context.Context, date time.Time, symbol string) (deposit, withdrawal decimal.Decimal, found bool, err error)

	// Finalize marks every row of the date as finalized. Idempotent.
	Finalize(ctx context.Context, date time.Time) error

	// DeleteAll removes every snapshot row. Used only by the rebuild.
	DeleteAll(ctx context.Context) error

	// Stats summarizes record and finalized counts per year/month.
	Stats(ctx context.Context) (*entities.StorageStats, error)
}
