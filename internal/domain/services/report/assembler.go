package report

import (
	"context"
	"time"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/repositories"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/pnl"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
	"github.com/dubeyaashish/itradebook-sub000/pkg/metrics"
)

// Assembler answers report queries for a (year, month) window, blending the
// live "today" computation with the persisted past.
type Assembler struct {
	rawTicks  repositories.RawTickStore
	feed      repositories.CounterpartyFeed
	snapshots repositories.SnapshotStore
	cache     *LiveWindowCache
	resolver  *pnl.Resolver
	calc      *pnl.Calculator
	logger    *logger.Logger

	clock           func() time.Time
	defaultPageSize int
}

// NewAssembler creates a new report assembler
func NewAssembler(
	rawTicks repositories.RawTickStore,
	feed repositories.CounterpartyFeed,
	snapshots repositories.SnapshotStore,
	cache *LiveWindowCache,
	resolver *pnl.Resolver,
	calc *pnl.Calculator,
	clock func() time.Time,
	defaultPageSize int,
	log *logger.Logger,
) *Assembler {
	if clock == nil {
		clock = time.Now
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 31
	}
	return &Assembler{
		rawTicks:        rawTicks,
		feed:            feed,
		snapshots:       snapshots,
		cache:           cache,
		resolver:        resolver,
		calc:            calc,
		logger:          log,
		clock:           clock,
		defaultPageSize: defaultPageSize,
	}
}

// GetReport returns one page of the monthly report with range-wide totals
func (a *Assembler) GetReport(ctx context.Context, year, month int, symbols []string, page, pageSize int) (*entities.ReportPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = a.defaultPageSize
	}

	now := a.clock()
	today := dateOnly(now)

	switch {
	case year == now.Year() && month == int(now.Month()):
		start := time.Now()
		defer func() {
			metrics.ReportRequestDuration.WithLabelValues("current_month").Observe(time.Since(start).Seconds())
		}()
		return a.currentMonthReport(ctx, year, month, symbols, page, pageSize, today)

	case year > now.Year() || (year == now.Year() && month > int(now.Month())):
		// Nothing can exist for a future window.
		return &entities.ReportPage{
			Rows:       []*entities.DailyPLRecord{},
			Pagination: entities.Pagination{Page: page, PageSize: pageSize},
		}, nil

	default:
		start := time.Now()
		defer func() {
			metrics.ReportRequestDuration.WithLabelValues("past_month").Observe(time.Since(start).Seconds())
		}()
		return a.pastMonthReport(ctx, year, month, symbols, page, pageSize)
	}
}

// currentMonthReport merges the live today window with the persisted days
// strictly before today. Today's rows are prepended and never paginated away
// on page one; stored rows fill the remainder of each page.
func (a *Assembler) currentMonthReport(ctx context.Context, year, month int, symbols []string, page, pageSize int, today time.Time) (*entities.ReportPage, error) {
	if err := a.EnsureBackfilled(ctx, year, month, symbols, today); err != nil {
		return nil, err
	}

	todayRows, err := a.cache.GetToday(ctx, today, symbols)
	if err != nil {
		return nil, err
	}
	todayCount := len(todayRows)

	start := (page - 1) * pageSize
	rows := make([]*entities.DailyPLRecord, 0, pageSize)
	if start < todayCount {
		end := start + pageSize
		if end > todayCount {
			end = todayCount
		}
		rows = append(rows, todayRows[start:end]...)
	}

	storedOffset := start - todayCount
	if storedOffset < 0 {
		storedOffset = 0
	}
	storedLimit := pageSize - len(rows)

	stored, storedTotals, storedCount, err := a.snapshots.GetRange(ctx, year, month, symbols, storedLimit, storedOffset, &today)
	if err != nil {
		return nil, errors.Fetch("stored snapshot range", err)
	}
	rows = append(rows, stored...)

	totals := storedTotals.Add(liveTotals(todayRows)).Round()
	totalCount := storedCount + todayCount

	return &entities.ReportPage{
		Rows:       rows,
		Totals:     totals,
		Pagination: paginate(page, pageSize, totalCount),
	}, nil
}

// pastMonthReport guarantees the whole month is finalized, then serves
// purely from the snapshot store.
func (a *Assembler) pastMonthReport(ctx context.Context, year, month int, symbols []string, page, pageSize int) (*entities.ReportPage, error) {
	// A past month has no today; backfill everything not yet finalized.
	farFuture := dateOnly(a.clock())
	if err := a.EnsureBackfilled(ctx, year, month, symbols, farFuture); err != nil {
		return nil, err
	}

	rows, totals, totalCount, err := a.snapshots.GetRange(ctx, year, month, symbols, pageSize, (page-1)*pageSize, nil)
	if err != nil {
		return nil, errors.Fetch("stored snapshot range", err)
	}

	return &entities.ReportPage{
		Rows:       rows,
		Totals:     totals.Round(),
		Pagination: paginate(page, pageSize, totalCount),
	}, nil
}

// EnsureBackfilled materializes, as finalized rows, every day of the window
// strictly before the cutoff that has raw ticks but no complete finalized
// snapshot. Idempotent and safe to run repeatedly: days already finalized
// are skipped, and re-materializing an unfinalized day converges on the same
// rows.
func (a *Assembler) EnsureBackfilled(ctx context.Context, year, month int, symbols []string, before time.Time) error {
	dates, err := a.rawTicks.DistinctDates(ctx, year, month, symbols)
	if err != nil {
		return errors.Fetch("trading dates", err)
	}

	for _, date := range dates {
		date = dateOnly(date)
		if !beforeDay(date, before) {
			continue
		}

		complete, err := a.isDayComplete(ctx, date, symbols)
		if err != nil {
			return err
		}
		if complete {
			metrics.BackfillDaysTotal.WithLabelValues("skipped").Inc()
			continue
		}

		if err := a.MaterializeDay(ctx, date, symbols, true); err != nil {
			metrics.BackfillDaysTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.BackfillDaysTotal.WithLabelValues("stored").Inc()
	}

	return nil
}

// isDayComplete reports whether a finalized row exists for every symbol in
// scope for the date.
func (a *Assembler) isDayComplete(ctx context.Context, date time.Time, symbols []string) (bool, error) {
	scope := symbols
	if len(scope) == 0 {
		var err error
		scope, err = a.rawTicks.DistinctSymbols(ctx, date)
		if err != nil {
			return false, errors.Fetch("day symbols", err)
		}
	}
	if len(scope) == 0 {
		return true, nil
	}

	finalized, err := a.snapshots.CountFinalized(ctx, date, scope)
	if err != nil {
		return false, errors.Fetch("finalized count", err)
	}
	return finalized >= len(scope), nil
}

// MaterializeDay computes and persists one day's records from the first
// tick per symbol. Days without ticks are skipped, not stored. Persistence
// is not interrupted by client disconnects; a completed backfill feeds the
// next request.
func (a *Assembler) MaterializeDay(ctx context.Context, date time.Time, symbols []string, finalize bool) error {
	date = dateOnly(date)

	ticks, err := a.rawTicks.FirstTicksOfDay(ctx, date, symbols)
	if err != nil {
		return errors.Fetch("day raw ticks", err)
	}
	if len(ticks) == 0 {
		return nil
	}

	tickSymbols := make([]string, 0, len(ticks))
	for _, tick := range ticks {
		tickSymbols = append(tickSymbols, tick.Symbol)
	}

	aggregates, err := a.feed.AggregateAsOf(ctx, tickSymbols, date)
	if err != nil {
		return errors.Fetch("day counterparty aggregates", err)
	}

	records := make([]*entities.DailyPLRecord, 0, len(ticks))
	for _, tick := range ticks {
		prior, err := a.resolver.Resolve(ctx, tick.Symbol, date)
		if err != nil {
			return err
		}

		deposit, withdrawal, _, err := a.snapshots.GetDepositWithdrawal(ctx, date, tick.Symbol)
		if err != nil {
			return errors.Fetch("day adjustments", err)
		}

		records = append(records, a.calc.Compute(tick, aggregates[tick.Symbol], prior, deposit, withdrawal))
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := a.snapshots.UpsertDay(persistCtx, date, symbols, records, finalize); err != nil {
		return errors.Persist("day snapshot", err)
	}

	return nil
}

func liveTotals(rows []*entities.DailyPLRecord) entities.ReportTotals {
	var totals entities.ReportTotals
	for _, row := range rows {
		totals = totals.Add(entities.ReportTotals{
			CompanyPln:        row.CompanyPln,
			Deposit:           row.Deposit,
			Withdrawal:        row.Withdrawal,
			CompanyRealized:   row.CompanyRealized,
			CompanyUnrealized: row.CompanyUnrealized,
			CpPln:             row.CpPln,
			CpRealized:        row.CpRealized,
			CpUnrealized:      row.CpUnrealized,
			AccountProfit:     row.AccountProfit,
			DailyCompanyTotal: row.DailyCompanyTotal,
			DailyCpTotal:      row.DailyCpTotal,
			GrandTotal:        row.DailyGrandTotal,
		})
	}
	return totals
}

func paginate(page, pageSize, totalCount int) entities.Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return entities.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beforeDay reports whether a falls on an earlier calendar day than b. The
// store hands back UTC midnights while the clock runs in its own location;
// comparing instants would shift the cutoff by the zone offset.
func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
