package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
)

// SnapshotRepository persists daily P&L records in PostgreSQL
type SnapshotRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("snapshot-repository"),
	}
}

const snapshotColumns = `
	trade_date, symbol, year, month, market_price,
	company_buy_size, company_buy_price, company_sell_size, company_sell_price,
	cp_buy_size, cp_buy_price, cp_sell_size, cp_sell_price,
	company_balance, company_equity, company_floating, company_pln,
	deposit, withdrawal, company_realized, company_unrealized,
	cp_balance, cp_equity, cp_floating, cp_pln, cp_realized, cp_unrealized,
	account_profit, daily_company_total, daily_cp_total, daily_grand_total,
	is_finalized, created_at, updated_at`

// Get returns the record for (date, symbol), or nil when absent
func (r *SnapshotRepository) Get(ctx context.Context, date time.Time, symbol string) (*entities.DailyPLRecord, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM daily_pl_records
		WHERE trade_date = $1 AND symbol = $2
	`

	record := &entities.DailyPLRecord{}
	err := r.db.GetContext(ctx, record, query, dateOnly(date), symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return record, nil
}

// rangeTotals scans the SQL aggregate row for a filtered range
type rangeTotals struct {
	CompanyPln        decimal.Decimal `db:"company_pln"`
	Deposit           decimal.Decimal `db:"deposit"`
	Withdrawal        decimal.Decimal `db:"withdrawal"`
	CompanyRealized   decimal.Decimal `db:"company_realized"`
	CompanyUnrealized decimal.Decimal `db:"company_unrealized"`
	CpPln             decimal.Decimal `db:"cp_pln"`
	CpRealized        decimal.Decimal `db:"cp_realized"`
	CpUnrealized      decimal.Decimal `db:"cp_unrealized"`
	AccountProfit     decimal.Decimal `db:"account_profit"`
	DailyCompanyTotal decimal.Decimal `db:"daily_company_total"`
	DailyCpTotal      decimal.Decimal `db:"daily_cp_total"`
	GrandTotal        decimal.Decimal `db:"grand_total"`
	Count             int             `db:"count"`
}

// GetRange returns one page of the filtered month sorted by trade_date DESC,
// symbol ASC, plus range-wide totals and the total row count.
//
// The pln totals are recomputed per row from the post-adjustment values
// (equity/floating delta against the previous day's row) instead of trusting
// the stored pln column, because deposit/withdrawal edits after storage do
// not rewrite the stored pln. A row with no previous-day row keeps its
// stored pln: that value was derived through the raw-tick fallback at
// compute time, and recomputing against a phantom zero baseline would make
// the totals disagree with the rows on the same page.
func (r *SnapshotRepository) GetRange(ctx context.Context, year, month int, symbols []string, limit, offset int, before *time.Time) ([]*entities.DailyPLRecord, entities.ReportTotals, int, error) {
	ctx, span := r.tracer.Start(ctx, "snapshot_repo.get_range", trace.WithAttributes(
		attribute.Int("year", year),
		attribute.Int("month", month),
	))
	defer span.End()

	var totals entities.ReportTotals

	filter := `
		WHERE t.year = $1 AND t.month = $2
		  AND ($3::text[] IS NULL OR t.symbol = ANY($3::text[]))
		  AND ($4::date IS NULL OR t.trade_date < $4::date)
	`
	args := []interface{}{year, month, symbolArray(symbols), beforeDate(before)}

	rowsQuery := `
		SELECT ` + qualifyColumns("t") + `
		FROM daily_pl_records t
	` + filter + `
		ORDER BY t.trade_date DESC, t.symbol ASC
		LIMIT $5 OFFSET $6
	`

	var records []*entities.DailyPLRecord
	if err := r.db.SelectContext(ctx, &records, rowsQuery, append(args, limit, offset)...); err != nil {
		span.RecordError(err)
		return nil, totals, 0, fmt.Errorf("failed to query snapshot range: %w", err)
	}

	totalsQuery := `
		SELECT
			COALESCE(SUM(CASE
				WHEN p.symbol IS NULL THEN t.company_pln
				ELSE t.company_equity - p.company_equity - t.deposit + t.withdrawal
			END), 0) AS company_pln,
			COALESCE(SUM(t.deposit), 0)             AS deposit,
			COALESCE(SUM(t.withdrawal), 0)          AS withdrawal,
			COALESCE(SUM(t.company_realized), 0)    AS company_realized,
			COALESCE(SUM(t.company_unrealized), 0)  AS company_unrealized,
			COALESCE(SUM(CASE
				WHEN p.symbol IS NULL THEN t.cp_pln
				ELSE t.cp_floating - p.cp_floating
			END), 0) AS cp_pln,
			COALESCE(SUM(t.cp_realized), 0)         AS cp_realized,
			COALESCE(SUM(t.cp_unrealized), 0)       AS cp_unrealized,
			COALESCE(SUM(t.account_profit), 0)      AS account_profit,
			COALESCE(SUM(t.daily_company_total), 0) AS daily_company_total,
			COALESCE(SUM(t.daily_cp_total), 0)      AS daily_cp_total,
			COALESCE(SUM(t.daily_grand_total), 0)   AS grand_total,
			COUNT(*)                                AS count
		FROM daily_pl_records t
		LEFT JOIN daily_pl_records p
		  ON p.symbol = t.symbol AND p.trade_date = t.trade_date - INTERVAL '1 day'
	` + filter

	var agg rangeTotals
	if err := r.db.GetContext(ctx, &agg, totalsQuery, args...); err != nil {
		span.RecordError(err)
		return nil, totals, 0, fmt.Errorf("failed to query snapshot totals: %w", err)
	}

	totals = entities.ReportTotals{
		CompanyPln:        agg.CompanyPln,
		Deposit:           agg.Deposit,
		Withdrawal:        agg.Withdrawal,
		CompanyRealized:   agg.CompanyRealized,
		CompanyUnrealized: agg.CompanyUnrealized,
		CpPln:             agg.CpPln,
		CpRealized:        agg.CpRealized,
		CpUnrealized:      agg.CpUnrealized,
		AccountProfit:     agg.AccountProfit,
		DailyCompanyTotal: agg.DailyCompanyTotal,
		DailyCpTotal:      agg.DailyCpTotal,
		GrandTotal:        agg.GrandTotal,
	}

	return records, totals, agg.Count, nil
}

// UpsertDay replaces the unfinalized rows for (date, symbol scope) with
// records inside one transaction. Existing deposit/withdrawal values are
// read first and carried into the replacement row, with the stored pln
// re-derived against the carried values. Finalized rows are skipped
// silently; stale unfinalized rows without adjustments are removed.
func (r *SnapshotRepository) UpsertDay(ctx context.Context, date time.Time, symbols []string, records []*entities.DailyPLRecord, finalize bool) error {
	ctx, span := r.tracer.Start(ctx, "snapshot_repo.upsert_day", trace.WithAttributes(
		attribute.String("trade_date", dateOnly(date).Format("2006-01-02")),
		attribute.Int("records", len(records)),
		attribute.Bool("finalize", finalize),
	))
	defer span.End()

	day := dateOnly(date)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	type existingRow struct {
		Symbol      string          `db:"symbol"`
		Deposit     decimal.Decimal `db:"deposit"`
		Withdrawal  decimal.Decimal `db:"withdrawal"`
		IsFinalized bool            `db:"is_finalized"`
	}

	var existing []existingRow
	err = tx.SelectContext(ctx, &existing, `
		SELECT symbol, deposit, withdrawal, is_finalized
		FROM daily_pl_records
		WHERE trade_date = $1
		  AND ($2::text[] IS NULL OR symbol = ANY($2::text[]))
		FOR UPDATE
	`, day, symbolArray(symbols))
	if err != nil {
		return fmt.Errorf("failed to read existing rows: %w", err)
	}

	prior := make(map[string]existingRow, len(existing))
	for _, row := range existing {
		prior[row.Symbol] = row
	}

	upsert := `
		INSERT INTO daily_pl_records (` + snapshotColumns + `)
		VALUES (
			:trade_date, :symbol, :year, :month, :market_price,
			:company_buy_size, :company_buy_price, :company_sell_size, :company_sell_price,
			:cp_buy_size, :cp_buy_price, :cp_sell_size, :cp_sell_price,
			:company_balance, :company_equity, :company_floating, :company_pln,
			:deposit, :withdrawal, :company_realized, :company_unrealized,
			:cp_balance, :cp_equity, :cp_floating, :cp_pln, :cp_realized, :cp_unrealized,
			:account_profit, :daily_company_total, :daily_cp_total, :daily_grand_total,
			:is_finalized, :created_at, :updated_at
		)
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			year = EXCLUDED.year,
			month = EXCLUDED.month,
			market_price = EXCLUDED.market_price,
			company_buy_size = EXCLUDED.company_buy_size,
			company_buy_price = EXCLUDED.company_buy_price,
			company_sell_size = EXCLUDED.company_sell_size,
			company_sell_price = EXCLUDED.company_sell_price,
			cp_buy_size = EXCLUDED.cp_buy_size,
			cp_buy_price = EXCLUDED.cp_buy_price,
			cp_sell_size = EXCLUDED.cp_sell_size,
			cp_sell_price = EXCLUDED.cp_sell_price,
			company_balance = EXCLUDED.company_balance,
			company_equity = EXCLUDED.company_equity,
			company_floating = EXCLUDED.company_floating,
			company_pln = EXCLUDED.company_pln,
			deposit = EXCLUDED.deposit,
			withdrawal = EXCLUDED.withdrawal,
			company_realized = EXCLUDED.company_realized,
			company_unrealized = EXCLUDED.company_unrealized,
			cp_balance = EXCLUDED.cp_balance,
			cp_equity = EXCLUDED.cp_equity,
			cp_floating = EXCLUDED.cp_floating,
			cp_pln = EXCLUDED.cp_pln,
			cp_realized = EXCLUDED.cp_realized,
			cp_unrealized = EXCLUDED.cp_unrealized,
			account_profit = EXCLUDED.account_profit,
			daily_company_total = EXCLUDED.daily_company_total,
			daily_cp_total = EXCLUDED.daily_cp_total,
			daily_grand_total = EXCLUDED.daily_grand_total,
			is_finalized = EXCLUDED.is_finalized,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	stored := make([]string, 0, len(records))
	skipped := 0

	for _, record := range records {
		if row, ok := prior[record.Symbol]; ok {
			if row.IsFinalized {
				// Finalized data is authoritative; the backfill path never
				// overwrites it.
				skipped++
				continue
			}
			if !row.Deposit.Equal(record.Deposit) || !row.Withdrawal.Equal(record.Withdrawal) {
				// An adjustment landed between compute and persist. Carry it
				// forward and re-derive pln from the equity delta.
				equityDelta := record.CompanyPln.Add(record.Deposit).Sub(record.Withdrawal)
				record.Deposit = row.Deposit
				record.Withdrawal = row.Withdrawal
				record.CompanyPln = equityDelta.Sub(record.Deposit).Add(record.Withdrawal).Round(2)
			}
		}

		clone := *record
		clone.TradeDate = day
		clone.IsFinalized = finalize
		clone.CreatedAt = now
		clone.UpdatedAt = now

		if _, err := tx.NamedExecContext(ctx, upsert, &clone); err != nil {
			return fmt.Errorf("failed to upsert snapshot for %s: %w", record.Symbol, err)
		}
		stored = append(stored, record.Symbol)
	}

	// Unfinalized rows in scope with no replacement and no manual
	// adjustments are stale leftovers of an earlier computation.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM daily_pl_records
		WHERE trade_date = $1
		  AND ($2::text[] IS NULL OR symbol = ANY($2::text[]))
		  AND NOT is_finalized
		  AND deposit = 0 AND withdrawal = 0
		  AND NOT (symbol = ANY($3::text[]))
	`, day, symbolArray(symbols), pq.Array(stored))
	if err != nil {
		return fmt.Errorf("failed to delete stale rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	r.logger.Debug("upserted snapshot day",
		zap.String("trade_date", day.Format("2006-01-02")),
		zap.Int("stored", len(stored)),
		zap.Int("skipped_finalized", skipped),
		zap.Bool("finalize", finalize),
	)

	return nil
}

// CountFinalized counts finalized rows for the date restricted to symbols
func (r *SnapshotRepository) CountFinalized(ctx context.Context, date time.Time, symbols []string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM daily_pl_records
		WHERE trade_date = $1
		  AND is_finalized
		  AND ($2::text[] IS NULL OR symbol = ANY($2::text[]))
	`, dateOnly(date), symbolArray(symbols))
	if err != nil {
		return 0, fmt.Errorf("failed to count finalized rows: %w", err)
	}
	return count, nil
}

// SetDepositWithdrawal updates only the adjustment fields, creating a
// placeholder row with zeroed computed fields when none exists
func (r *SnapshotRepository) SetDepositWithdrawal(ctx context.Context, date time.Time, symbol string, deposit, withdrawal decimal.Decimal) error {
	day := dateOnly(date)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_pl_records (trade_date, symbol, year, month, deposit, withdrawal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			deposit = EXCLUDED.deposit,
			withdrawal = EXCLUDED.withdrawal,
			updated_at = NOW()
	`, day, symbol, day.Year(), int(day.Month()), deposit, withdrawal)
	if err != nil {
		r.logger.Error("failed to set deposit/withdrawal",
			zap.Error(err),
			zap.String("trade_date", day.Format("2006-01-02")),
			zap.String("symbol", symbol),
		)
		return fmt.Errorf("failed to set deposit/withdrawal: %w", err)
	}

	return nil
}

// GetDepositWithdrawal returns the stored adjustments for (date, symbol)
func (r *SnapshotRepository) GetDepositWithdrawal(ctx context.Context, date time.Time, symbol string) (decimal.Decimal, decimal.Decimal, bool, error) {
	var row struct {
		Deposit    decimal.Decimal `db:"deposit"`
		Withdrawal decimal.Decimal `db:"withdrawal"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT deposit, withdrawal
		FROM daily_pl_records
		WHERE trade_date = $1 AND symbol = $2
	`, dateOnly(date), symbol)
	if err == sql.ErrNoRows {
		return decimal.Zero, decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("failed to get deposit/withdrawal: %w", err)
	}
	return row.Deposit, row.Withdrawal, true, nil
}

// Finalize marks every row of the date as finalized. Idempotent.
func (r *SnapshotRepository) Finalize(ctx context.Context, date time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE daily_pl_records
		SET is_finalized = TRUE, updated_at = NOW()
		WHERE trade_date = $1 AND NOT is_finalized
	`, dateOnly(date))
	if err != nil {
		return fmt.Errorf("failed to finalize day: %w", err)
	}

	rows, _ := result.RowsAffected()
	r.logger.Info("finalized snapshot day",
		zap.String("trade_date", dateOnly(date).Format("2006-01-02")),
		zap.Int64("rows", rows),
	)
	return nil
}

// DeleteAll removes every snapshot row
func (r *SnapshotRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM daily_pl_records`); err != nil {
		return fmt.Errorf("failed to delete snapshot rows: %w", err)
	}
	return nil
}

// Stats summarizes record and finalized counts per year/month
func (r *SnapshotRepository) Stats(ctx context.Context) (*entities.StorageStats, error) {
	var rows []entities.StorageStatRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT year, month,
		       COUNT(*)                              AS records,
		       COUNT(*) FILTER (WHERE is_finalized)  AS finalized
		FROM daily_pl_records
		GROUP BY year, month
		ORDER BY year DESC, month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage stats: %w", err)
	}

	stats := &entities.StorageStats{ByMonth: rows}
	for _, row := range rows {
		stats.TotalRecords += row.Records
		stats.TotalFinalized += row.Finalized
	}
	return stats, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func symbolArray(symbols []string) interface{} {
	if len(symbols) == 0 {
		return pq.Array([]string(nil))
	}
	return pq.Array(symbols)
}

func beforeDate(before *time.Time) interface{} {
	if before == nil {
		return nil
	}
	return dateOnly(*before)
}

func qualifyColumns(alias string) string {
	return alias + ".trade_date, " + alias + ".symbol, " + alias + ".year, " + alias + ".month, " + alias + `.market_price,
		` + alias + ".company_buy_size, " + alias + ".company_buy_price, " + alias + ".company_sell_size, " + alias + `.company_sell_price,
		` + alias + ".cp_buy_size, " + alias + ".cp_buy_price, " + alias + ".cp_sell_size, " + alias + `.cp_sell_price,
		` + alias + ".company_balance, " + alias + ".company_equity, " + alias + ".company_floating, " + alias + `.company_pln,
		` + alias + ".deposit, " + alias + ".withdrawal, " + alias + ".company_realized, " + alias + `.company_unrealized,
		` + alias + ".cp_balance, " + alias + ".cp_equity, " + alias + ".cp_floating, " + alias + ".cp_pln, " + alias + ".cp_realized, " + alias + `.cp_unrealized,
		` + alias + ".account_profit, " + alias + ".daily_company_total, " + alias + ".daily_cp_total, " + alias + `.daily_grand_total,
		` + alias + ".is_finalized, " + alias + ".created_at, " + alias + ".updated_at"
}
