package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lineagekit/lineage/internal/storage"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejects
// database calls to prevent cascading failures.
var ErrCircuitOpen = errors.New("database circuit breaker is open")

// BreakerConfig holds the circuit breaker configuration for the remote
// database. The tree-wide batch endpoints fan O(n^2) classification work out
// of a single snapshot load; a degraded Postgres must fail that load fast
// instead of stacking up slow queries.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the
	// circuit. Default: 3.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before allowing test
	// requests. Default: 30 seconds.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of successes in half-open state
	// required to close the circuit. Default: 2.
	HalfOpenMaxSuccesses uint32
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}
}

// breaker wraps gobreaker for database calls.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(config BreakerConfig) *breaker {
	settings := gobreaker.Settings{
		Name:        "PostgresTreeStore",
		MaxRequests: config.HalfOpenMaxSuccesses,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		// Not-found and validation errors are the caller's problem, not a
		// database failure; they must not trip the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, storage.ErrNotFound) ||
				errors.Is(err, storage.ErrInvalidInput)
		},
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// run executes fn through the breaker, translating the open-circuit state
// into ErrCircuitOpen and respecting context cancellation.
func (b *breaker) run(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
