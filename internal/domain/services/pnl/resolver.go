package pnl

import (
	"context"
	"time"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/repositories"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

// Resolver finds the immediately preceding day's balances for a symbol.
//
// The two sides are resolved asymmetrically on purpose: company history is
// trusted once snapshotted, so the snapshot row for date-1 wins and raw
// ticks are only a fallback. Counterparty history can be corrected
// retroactively, so it is always re-derived from the activity feed.
type Resolver struct {
	snapshots repositories.SnapshotStore
	rawTicks  repositories.RawTickStore
	feed      repositories.CounterpartyFeed
	logger    *logger.Logger
}

func NewResolver(snapshots repositories.SnapshotStore, rawTicks repositories.RawTickStore, feed repositories.CounterpartyFeed, log *logger.Logger) *Resolver {
	return &Resolver{
		snapshots: snapshots,
		rawTicks:  rawTicks,
		feed:      feed,
		logger:    log,
	}
}

// Resolve returns the prior-day balances for (symbol, date). Missing data on
// either side resolves to zero; read failures propagate.
func (r *Resolver) Resolve(ctx context.Context, symbol string, date time.Time) (entities.PriorDayBalances, error) {
	var balances entities.PriorDayBalances
	prior := truncateToDay(date).AddDate(0, 0, -1)

	snapshot, err := r.snapshots.Get(ctx, prior, symbol)
	if err != nil {
		return balances, errors.Fetch("prior day snapshot", err)
	}

	if snapshot != nil {
		balances.CompanyBalance = snapshot.CompanyBalance
		balances.CompanyEquity = snapshot.CompanyEquity
	} else {
		ticks, err := r.rawTicks.FirstTicksOfDay(ctx, prior, []string{symbol})
		if err != nil {
			return balances, errors.Fetch("prior day raw ticks", err)
		}
		if len(ticks) > 0 {
			balances.CompanyBalance = ticks[0].CompanyBalance
			balances.CompanyEquity = ticks[0].CompanyEquity
		}
	}

	aggregates, err := r.feed.AggregateAsOf(ctx, []string{symbol}, prior)
	if err != nil {
		return balances, errors.Fetch("prior day counterparty aggregate", err)
	}
	if agg, ok := aggregates[symbol]; ok {
		balances.CpBalance = agg.Balance
		balances.CpFloating = agg.Floating
	}

	return balances, nil
}
