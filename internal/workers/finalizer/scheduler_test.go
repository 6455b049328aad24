package finalizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFinalizer struct {
	mu    sync.Mutex
	dates []time.Time
	err   error
}

func (f *fakeFinalizer) FinalizeDay(ctx context.Context, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, date)
	return f.err
}

func TestNewScheduler_RejectsBadTimezone(t *testing.T) {
	_, err := NewScheduler(&fakeFinalizer{}, Config{Schedule: "10 0 * * *", Timezone: "Not/AZone"}, zap.NewNop())
	assert.Error(t, err)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s, err := NewScheduler(&fakeFinalizer{}, Config{Schedule: "not a schedule", Timezone: "UTC"}, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestStart_IsNotReentrant(t *testing.T) {
	s, err := NewScheduler(&fakeFinalizer{}, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Error(t, s.Start())
}

func TestRun_FinalizesYesterday(t *testing.T) {
	fake := &fakeFinalizer{}
	s, err := NewScheduler(fake, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	s.run()

	require.Len(t, fake.dates, 1)
	wantDay := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	assert.Equal(t, wantDay, fake.dates[0].Format("2006-01-02"))

	lastRun, lastErr := s.LastRun()
	assert.False(t, lastRun.IsZero())
	assert.NoError(t, lastErr)
}

func TestRun_RecordsFailure(t *testing.T) {
	fake := &fakeFinalizer{err: errors.New("store unavailable")}
	s, err := NewScheduler(fake, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	s.run()

	_, lastErr := s.LastRun()
	assert.Error(t, lastErr)
}
