package snapshot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/repositories"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/report"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
	"github.com/dubeyaashish/itradebook-sub000/pkg/metrics"
)

// RebuildLock guards the full rebuild so only one writer runs at a time
type RebuildLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// Service exposes the snapshot store's administrative operations: manual
// adjustments, finalization, full rebuild and storage statistics.
type Service struct {
	snapshots repositories.SnapshotStore
	rawTicks  repositories.RawTickStore
	assembler *report.Assembler
	lock      RebuildLock
	logger    *logger.Logger
}

// NewService creates a new snapshot service
func NewService(
	snapshots repositories.SnapshotStore,
	rawTicks repositories.RawTickStore,
	assembler *report.Assembler,
	lock RebuildLock,
	log *logger.Logger,
) *Service {
	return &Service{
		snapshots: snapshots,
		rawTicks:  rawTicks,
		assembler: assembler,
		lock:      lock,
		logger:    log,
	}
}

// SetDepositWithdrawal stores a manual adjustment for (date, symbol),
// touching nothing else on the row. Validation happens before any store
// mutation.
func (s *Service) SetDepositWithdrawal(ctx context.Context, date time.Time, symbol string, deposit, withdrawal decimal.Decimal) error {
	if date.IsZero() {
		return errors.Validation("date", "is required")
	}
	if symbol == "" {
		return errors.Validation("symbol", "is required")
	}
	if deposit.IsNegative() {
		return errors.Validation("deposit", "must not be negative")
	}
	if withdrawal.IsNegative() {
		return errors.Validation("withdrawal", "must not be negative")
	}

	if err := s.snapshots.SetDepositWithdrawal(ctx, date, symbol, deposit, withdrawal); err != nil {
		return errors.Persist("deposit/withdrawal", err)
	}

	s.logger.Infow("adjustment stored",
		"trade_date", date.Format("2006-01-02"),
		"symbol", symbol,
		"deposit", deposit.String(),
		"withdrawal", withdrawal.String(),
	)
	return nil
}

// GetDepositWithdrawal returns the stored adjustments for (date, symbol)
func (s *Service) GetDepositWithdrawal(ctx context.Context, date time.Time, symbol string) (decimal.Decimal, decimal.Decimal, bool, error) {
	if symbol == "" {
		return decimal.Zero, decimal.Zero, false, errors.Validation("symbol", "is required")
	}
	deposit, withdrawal, found, err := s.snapshots.GetDepositWithdrawal(ctx, date, symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, errors.Fetch("deposit/withdrawal", err)
	}
	return deposit, withdrawal, found, nil
}

// FinalizeDay backfills the date if needed, then locks all its rows against
// automatic recomputation. Idempotent.
func (s *Service) FinalizeDay(ctx context.Context, date time.Time) error {
	if date.IsZero() {
		return errors.Validation("date", "is required")
	}

	if err := s.assembler.MaterializeDay(ctx, date, nil, true); err != nil {
		return err
	}
	if err := s.snapshots.Finalize(ctx, date); err != nil {
		return errors.Persist("finalize day", err)
	}
	return nil
}

// RebuildAll deletes every snapshot row and regenerates one finalized row
// per (date, symbol) from the full raw tick history. Single writer: a
// distributed lock rejects concurrent rebuilds. Report reads during a rebuild
// may see a transiently empty store; callers retry.
func (s *Service) RebuildAll(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return errors.Fetch("rebuild lock", err)
	}
	if !acquired {
		metrics.RebuildsTotal.WithLabelValues("locked").Inc()
		return errors.ErrRebuildInProgress
	}
	defer s.lock.Release(context.WithoutCancel(ctx))

	started := time.Now()
	s.logger.Infow("snapshot rebuild started")

	dates, err := s.rawTicks.AllDates(ctx)
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues("failed").Inc()
		return errors.Fetch("tick history dates", err)
	}

	if err := s.snapshots.DeleteAll(ctx); err != nil {
		metrics.RebuildsTotal.WithLabelValues("failed").Inc()
		return errors.Persist("clear snapshots", err)
	}

	// Oldest first, so each day's prior-day lookup finds the snapshot row
	// written in the previous iteration.
	for _, date := range dates {
		if err := s.assembler.MaterializeDay(ctx, date, nil, true); err != nil {
			metrics.RebuildsTotal.WithLabelValues("failed").Inc()
			return err
		}
	}

	metrics.RebuildsTotal.WithLabelValues("completed").Inc()
	s.logger.Infow("snapshot rebuild completed",
		"days", len(dates),
		"took", time.Since(started).String(),
	)
	return nil
}

// Stats returns the read-only storage summary
func (s *Service) Stats(ctx context.Context) (*entities.StorageStats, error) {
	stats, err := s.snapshots.Stats(ctx)
	if err != nil {
		return nil, errors.Fetch("storage stats", err)
	}
	metrics.SnapshotRowsGauge.Set(float64(stats.TotalRecords))
	return stats, nil
}
