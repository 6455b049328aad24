package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/pkg/circuitbreaker"
)

// CounterpartyRepository aggregates the counterparty activity feed. The feed
// lives in a table other systems write to and correct retroactively, so
// every aggregation re-derives from source rather than caching.
//
// Queries pass through a circuit breaker: a flapping feed fails fast instead
// of letting every report request wait out a timeout. Failures are not
// retried here; the caller decides.
type CounterpartyRepository struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCounterpartyRepository creates a new counterparty repository
func NewCounterpartyRepository(db *sqlx.DB, logger *zap.Logger) *CounterpartyRepository {
	return &CounterpartyRepository{
		db:      db,
		breaker: circuitbreaker.New("counterparty-feed", circuitbreaker.FeedConfig(), logger),
		logger:  logger,
	}
}

type cpAggregateRow struct {
	Symbol   string          `db:"symbol"`
	Balance  decimal.Decimal `db:"balance"`
	Equity   decimal.Decimal `db:"equity"`
	Floating decimal.Decimal `db:"floating"`
	Pnl      decimal.Decimal `db:"pnl"`
}

// AggregateAsOf sums balance/equity/floating/pnl per symbol across all
// counterparty sub-accounts, each evaluated at its latest activity on or
// before asOf.
func (r *CounterpartyRepository) AggregateAsOf(ctx context.Context, symbols []string, asOf time.Time) (map[string]*entities.CounterpartyAggregate, error) {
	cutoff := dateOnly(asOf).AddDate(0, 0, 1)

	result, err := r.breaker.Execute(func() (interface{}, error) {
		var rows []cpAggregateRow
		err := r.db.SelectContext(ctx, &rows, `
			SELECT symbol,
			       COALESCE(SUM(balance), 0)  AS balance,
			       COALESCE(SUM(equity), 0)   AS equity,
			       COALESCE(SUM(floating), 0) AS floating,
			       COALESCE(SUM(pnl), 0)      AS pnl
			FROM (
				SELECT DISTINCT ON (account, symbol)
				       symbol, balance, equity, floating, pnl
				FROM counterparty_activity
				WHERE recorded_at < $1
				  AND ($2::text[] IS NULL OR symbol = ANY($2::text[]))
				ORDER BY account, symbol, recorded_at DESC
			) latest
			GROUP BY symbol
		`, cutoff, symbolArray(symbols))
		return rows, err
	})
	if err != nil {
		r.logger.Error("counterparty aggregation failed",
			zap.Error(err),
			zap.Time("as_of", asOf),
		)
		return nil, fmt.Errorf("failed to aggregate counterparty activity: %w", err)
	}

	rows := result.([]cpAggregateRow)
	aggregates := make(map[string]*entities.CounterpartyAggregate, len(rows))
	for _, row := range rows {
		aggregates[row.Symbol] = &entities.CounterpartyAggregate{
			Symbol:   row.Symbol,
			AsOfDate: dateOnly(asOf),
			Balance:  row.Balance,
			Equity:   row.Equity,
			Floating: row.Floating,
			Pnl:      row.Pnl,
		}
	}
	return aggregates, nil
}
