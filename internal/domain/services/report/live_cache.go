package report

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/repositories"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/pnl"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
	"github.com/dubeyaashish/itradebook-sub000/pkg/metrics"
)

// LiveWindowCache serves "today"'s computed records with a time-boxed cache.
// It is a write-through accelerator: a miss computes the records, persists
// them as unfinalized snapshot rows, then caches them. Empty windows are
// cached too, so a day without ticks does not hammer the source on every
// poll. Entries expire only by TTL; there is no manual invalidation.
type LiveWindowCache struct {
	rawTicks  repositories.RawTickStore
	feed      repositories.CounterpartyFeed
	snapshots repositories.SnapshotStore
	resolver  *pnl.Resolver
	calc      *pnl.Calculator
	logger    *logger.Logger

	clock func() time.Time
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	locks   map[string]*sync.Mutex
}

type cacheEntry struct {
	records   []*entities.DailyPLRecord
	expiresAt time.Time
}

// NewLiveWindowCache creates the cache with an injected clock and TTL
func NewLiveWindowCache(
	rawTicks repositories.RawTickStore,
	feed repositories.CounterpartyFeed,
	snapshots repositories.SnapshotStore,
	resolver *pnl.Resolver,
	calc *pnl.Calculator,
	clock func() time.Time,
	ttl time.Duration,
	log *logger.Logger,
) *LiveWindowCache {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LiveWindowCache{
		rawTicks:  rawTicks,
		feed:      feed,
		snapshots: snapshots,
		resolver:  resolver,
		calc:      calc,
		logger:    log,
		clock:     clock,
		ttl:       ttl,
		entries:   make(map[string]*cacheEntry),
		locks:     make(map[string]*sync.Mutex),
	}
}

func cacheKey(date time.Time, symbols []string) string {
	day := date.Format("2006-01-02")
	if len(symbols) == 0 {
		return day + "|all"
	}
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return day + "|" + strings.Join(sorted, ",")
}

// GetToday returns today's computed records for the symbol filter
func (c *LiveWindowCache) GetToday(ctx context.Context, date time.Time, symbols []string) ([]*entities.DailyPLRecord, error) {
	key := cacheKey(date, symbols)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.clock().Before(entry.expiresAt) {
		c.mu.Unlock()
		metrics.LiveCacheHits.Inc()
		return entry.records, nil
	}
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	c.mu.Unlock()

	// One computing writer per key; a second concurrent miss waits here and
	// picks up the fresh entry.
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.clock().Before(entry.expiresAt) {
		c.mu.Unlock()
		metrics.LiveCacheHits.Inc()
		return entry.records, nil
	}
	c.mu.Unlock()

	metrics.LiveCacheMisses.Inc()

	records, err := c.compute(ctx, date, symbols)
	if err != nil {
		// Failures are never cached; the next poll retries.
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &cacheEntry{
		records:   records,
		expiresAt: c.clock().Add(c.ttl),
	}
	c.pruneExpiredLocked(c.clock())
	c.mu.Unlock()

	return records, nil
}

// pruneExpiredLocked drops expired entries together with their per-key
// locks, so day rollover and changing symbol filters do not grow the maps
// without bound. Callers hold c.mu. A lock held by an in-flight writer is
// left for a later pass.
func (c *LiveWindowCache) pruneExpiredLocked(now time.Time) {
	for key, lock := range c.locks {
		if entry, ok := c.entries[key]; ok && now.Before(entry.expiresAt) {
			continue
		}
		if !lock.TryLock() {
			continue
		}
		lock.Unlock()
		delete(c.locks, key)
		delete(c.entries, key)
	}
	for key, entry := range c.entries {
		if now.Before(entry.expiresAt) {
			continue
		}
		if _, held := c.locks[key]; held {
			continue
		}
		delete(c.entries, key)
	}
}

func (c *LiveWindowCache) compute(ctx context.Context, date time.Time, symbols []string) ([]*entities.DailyPLRecord, error) {
	ticks, err := c.rawTicks.LatestTicksOfDay(ctx, date, symbols)
	if err != nil {
		return nil, errors.Fetch("today raw ticks", err)
	}
	if len(ticks) == 0 {
		return []*entities.DailyPLRecord{}, nil
	}

	tickSymbols := make([]string, 0, len(ticks))
	for _, tick := range ticks {
		tickSymbols = append(tickSymbols, tick.Symbol)
	}

	aggregates, err := c.feed.AggregateAsOf(ctx, tickSymbols, date)
	if err != nil {
		return nil, errors.Fetch("today counterparty aggregates", err)
	}

	records := make([]*entities.DailyPLRecord, 0, len(ticks))
	for _, tick := range ticks {
		prior, err := c.resolver.Resolve(ctx, tick.Symbol, date)
		if err != nil {
			return nil, err
		}

		// Adjustments already entered for today must flow into companyPln
		// even on a cache miss.
		deposit, withdrawal, _, err := c.snapshots.GetDepositWithdrawal(ctx, date, tick.Symbol)
		if err != nil {
			return nil, errors.Fetch("today adjustments", err)
		}

		records = append(records, c.calc.Compute(tick, aggregates[tick.Symbol], prior, deposit, withdrawal))
	}

	// Write-through: the cache is an accelerator, not a source of truth.
	// Persistence survives client disconnects.
	persistCtx := context.WithoutCancel(ctx)
	if err := c.snapshots.UpsertDay(persistCtx, date, symbols, records, false); err != nil {
		return nil, errors.Persist("today snapshot write-through", err)
	}

	c.logger.Debugw("live window computed",
		"date", date.Format("2006-01-02"),
		"symbols", len(records),
	)

	return records, nil
}
