package alerts

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/repositories"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
)

// Evaluator compares a symbol's latest two ticks against a movement
// threshold. It reads only raw ticks, never the snapshot table; delivery of
// triggered alerts belongs to an external collaborator.
type Evaluator struct {
	rawTicks repositories.RawTickStore
}

func NewEvaluator(rawTicks repositories.RawTickStore) *Evaluator {
	return &Evaluator{rawTicks: rawTicks}
}

// Evaluate returns the symbol's movement between its latest two ticks and
// whether it exceeds the threshold. Fewer than two ticks means no movement
// to evaluate.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string, threshold decimal.Decimal) (*entities.SymbolEvaluation, error) {
	if symbol == "" {
		return nil, errors.Validation("symbol", "is required")
	}
	if threshold.IsNegative() {
		return nil, errors.Validation("threshold", "must not be negative")
	}

	ticks, err := e.rawTicks.LatestTwoTicks(ctx, symbol)
	if err != nil {
		return nil, errors.Fetch("latest ticks", err)
	}
	if len(ticks) < 2 {
		return nil, errors.Validation("symbol", "needs at least two observations")
	}

	latest, previous := ticks[0], ticks[1]
	equityChange := latest.CompanyEquity.Sub(previous.CompanyEquity)
	floatingChange := latest.CompanyFloating.Sub(previous.CompanyFloating)

	triggered := !threshold.IsZero() &&
		(equityChange.Abs().GreaterThanOrEqual(threshold) ||
			floatingChange.Abs().GreaterThanOrEqual(threshold))

	return &entities.SymbolEvaluation{
		Symbol:         symbol,
		LatestAt:       latest.ObservedAt,
		PreviousAt:     previous.ObservedAt,
		EquityChange:   equityChange.Round(2),
		FloatingChange: floatingChange.Round(2),
		Threshold:      threshold,
		Triggered:      triggered,
	}, nil
}
