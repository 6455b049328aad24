package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
)

// RawTickRepository reads the external tick recorder's table. Read-only.
type RawTickRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRawTickRepository creates a new raw tick repository
func NewRawTickRepository(db *sqlx.DB, logger *zap.Logger) *RawTickRepository {
	return &RawTickRepository{db: db, logger: logger}
}

// rawTickRow mirrors the raw_ticks table, whose numeric columns may be NULL.
// Conversion to the domain entity is the single place where absent values
// default to zero.
type rawTickRow struct {
	ID         int64     `db:"id"`
	Symbol     string    `db:"symbol"`
	ObservedAt time.Time `db:"observed_at"`

	CompanyBuySize   decimal.NullDecimal `db:"company_buy_size"`
	CompanyBuyPrice  decimal.NullDecimal `db:"company_buy_price"`
	CompanySellSize  decimal.NullDecimal `db:"company_sell_size"`
	CompanySellPrice decimal.NullDecimal `db:"company_sell_price"`

	CpBuySize   decimal.NullDecimal `db:"cp_buy_size"`
	CpBuyPrice  decimal.NullDecimal `db:"cp_buy_price"`
	CpSellSize  decimal.NullDecimal `db:"cp_sell_size"`
	CpSellPrice decimal.NullDecimal `db:"cp_sell_price"`

	MarketPrice decimal.NullDecimal `db:"market_price"`

	CompanyBalance  decimal.NullDecimal `db:"company_balance"`
	CompanyEquity   decimal.NullDecimal `db:"company_equity"`
	CompanyFloating decimal.NullDecimal `db:"company_floating"`
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func (row *rawTickRow) toEntity() *entities.RawTick {
	return &entities.RawTick{
		ID:         row.ID,
		Symbol:     row.Symbol,
		ObservedAt: row.ObservedAt,

		CompanyBuySize:   orZero(row.CompanyBuySize),
		CompanyBuyPrice:  orZero(row.CompanyBuyPrice),
		CompanySellSize:  orZero(row.CompanySellSize),
		CompanySellPrice: orZero(row.CompanySellPrice),

		CpBuySize:   orZero(row.CpBuySize),
		CpBuyPrice:  orZero(row.CpBuyPrice),
		CpSellSize:  orZero(row.CpSellSize),
		CpSellPrice: orZero(row.CpSellPrice),

		MarketPrice: orZero(row.MarketPrice),

		CompanyBalance:  orZero(row.CompanyBalance),
		CompanyEquity:   orZero(row.CompanyEquity),
		CompanyFloating: orZero(row.CompanyFloating),
	}
}

const rawTickColumns = `
	id, symbol, observed_at,
	company_buy_size, company_buy_price, company_sell_size, company_sell_price,
	cp_buy_size, cp_buy_price, cp_sell_size, cp_sell_price,
	market_price, company_balance, company_equity, company_floating`

// ticksOfDay returns one representative tick per symbol for the date. The
// order direction decides which: ASC picks the first tick of the day, DESC
// the latest.
func (r *RawTickRepository) ticksOfDay(ctx context.Context, date time.Time, symbols []string, direction string) ([]*entities.RawTick, error) {
	query := `
		SELECT DISTINCT ON (symbol) ` + rawTickColumns + `
		FROM raw_ticks
		WHERE observed_at >= $1 AND observed_at < $2
		  AND ($3::text[] IS NULL OR symbol = ANY($3::text[]))
		ORDER BY symbol, observed_at ` + direction

	day := dateOnly(date)
	var rows []rawTickRow
	err := r.db.SelectContext(ctx, &rows, query, day, day.AddDate(0, 0, 1), symbolArray(symbols))
	if err != nil {
		r.logger.Error("failed to query raw ticks",
			zap.Error(err),
			zap.String("date", day.Format("2006-01-02")),
		)
		return nil, fmt.Errorf("failed to query raw ticks: %w", err)
	}

	ticks := make([]*entities.RawTick, 0, len(rows))
	for i := range rows {
		ticks = append(ticks, rows[i].toEntity())
	}
	return ticks, nil
}

// FirstTicksOfDay returns the first tick per symbol for the date
func (r *RawTickRepository) FirstTicksOfDay(ctx context.Context, date time.Time, symbols []string) ([]*entities.RawTick, error) {
	return r.ticksOfDay(ctx, date, symbols, "ASC")
}

// LatestTicksOfDay returns the most recent tick per symbol for the date
func (r *RawTickRepository) LatestTicksOfDay(ctx context.Context, date time.Time, symbols []string) ([]*entities.RawTick, error) {
	return r.ticksOfDay(ctx, date, symbols, "DESC")
}

// DistinctDates returns the trading dates observed in a year/month for the
// symbol set, ascending
func (r *RawTickRepository) DistinctDates(ctx context.Context, year, month int, symbols []string) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.SelectContext(ctx, &dates, `
		SELECT DISTINCT observed_at::date
		FROM raw_ticks
		WHERE EXTRACT(YEAR FROM observed_at) = $1
		  AND EXTRACT(MONTH FROM observed_at) = $2
		  AND ($3::text[] IS NULL OR symbol = ANY($3::text[]))
		ORDER BY 1
	`, year, month, symbolArray(symbols))
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct dates: %w", err)
	}
	return dates, nil
}

// DistinctSymbols returns the symbols observed on a date
func (r *RawTickRepository) DistinctSymbols(ctx context.Context, date time.Time) ([]string, error) {
	day := dateOnly(date)
	var symbols []string
	err := r.db.SelectContext(ctx, &symbols, `
		SELECT DISTINCT symbol
		FROM raw_ticks
		WHERE observed_at >= $1 AND observed_at < $2
		ORDER BY symbol
	`, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct symbols: %w", err)
	}
	return symbols, nil
}

// AllDates returns every distinct trading date in history, ascending
func (r *RawTickRepository) AllDates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.SelectContext(ctx, &dates, `
		SELECT DISTINCT observed_at::date
		FROM raw_ticks
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tick history dates: %w", err)
	}
	return dates, nil
}

// LatestTwoTicks returns up to the two most recent ticks for a symbol,
// newest first
func (r *RawTickRepository) LatestTwoTicks(ctx context.Context, symbol string) ([]*entities.RawTick, error) {
	var rows []rawTickRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+rawTickColumns+`
		FROM raw_ticks
		WHERE symbol = $1
		ORDER BY observed_at DESC
		LIMIT 2
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest ticks: %w", err)
	}

	ticks := make([]*entities.RawTick, 0, len(rows))
	for i := range rows {
		ticks = append(ticks, rows[i].toEntity())
	}
	return ticks, nil
}
