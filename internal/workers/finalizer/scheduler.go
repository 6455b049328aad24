package finalizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DayFinalizer is the operation the scheduler drives
type DayFinalizer interface {
	FinalizeDay(ctx context.Context, date time.Time) error
}

// Config configures the nightly finalization schedule
type Config struct {
	// Cron expression; default runs shortly after midnight so the previous
	// trading day is locked before the first morning report.
	Schedule string
	Timezone string
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Schedule: "10 0 * * *",
		Timezone: "UTC",
		Timeout:  10 * time.Minute,
	}
}

// Scheduler finalizes the previous day on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	finalizer DayFinalizer
	config    Config
	logger    *zap.Logger

	mu      sync.RWMutex
	running bool
	lastRun time.Time
	lastErr error
}

// NewScheduler creates a new finalization scheduler
func NewScheduler(finalizer DayFinalizer, config Config, logger *zap.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", config.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		finalizer: finalizer,
		config:    config,
		logger:    logger,
	}, nil
}

// Start registers the cron entry and begins scheduling
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, s.run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("finalizer scheduler started", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop halts scheduling and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("finalizer scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	yesterday := time.Now().AddDate(0, 0, -1)
	err := s.finalizer.FinalizeDay(ctx, yesterday)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("nightly finalization failed",
			zap.Error(err),
			zap.String("trade_date", yesterday.Format("2006-01-02")),
		)
		return
	}

	s.logger.Info("nightly finalization completed",
		zap.String("trade_date", yesterday.Format("2006-01-02")),
	)
}

// LastRun reports the most recent run and its error, if any
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastErr
}
