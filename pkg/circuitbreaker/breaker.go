// Package circuitbreaker configures sony/gobreaker for the shared feed
// tables this service reads. The feeds are written by other systems;
// when one stalls, the breaker fails report requests fast instead of
// letting each one wait out a query timeout.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config controls when a breaker trips and how it recovers.
type Config struct {
	// MaxRequests is how many probe queries may pass while half-open.
	MaxRequests uint32
	// Interval resets the failure counters while closed, so stale
	// failures from hours ago cannot combine with a fresh one to trip.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// MinRequests is the sample size required before the ratio applies.
	MinRequests uint32
	// FailureRatio trips the breaker once reached over MinRequests.
	FailureRatio float64
}

// FeedConfig is tuned for the counterparty activity feed. Report
// traffic is bursty (one query per symbol per page load), so the
// window is short and a single probe decides recovery: the feed is a
// single upstream and either answers or doesn't.
func FeedConfig() Config {
	return Config{
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      45 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

// New builds a named breaker. State changes are logged so a tripped
// feed shows up next to the query errors that tripped it.
func New(name string, cfg Config, logger *zap.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}
