package resilience

import (
	"time"

	"github.com/sony/gobreaker"
)

// NewBreaker wraps an outbound dependency name in a gobreaker.CircuitBreaker
// with the envelope's conservative defaults: trip after 5 consecutive
// failures, half-open after 30s.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}
