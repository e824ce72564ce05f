package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	pkgkafka "github.com/utafrali/LibraryGo/pkg/kafka"
)

// ErrCircuitOpen is returned while the breaker rejects publishes.
var ErrCircuitOpen = gobreaker.ErrOpenState

var circuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

// CircuitBreakerConfig tunes when the breaker trips.
type CircuitBreakerConfig struct {
	Name string
	// MaxRequests is how many publishes are let through while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; 0 never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns the breaker settings used for Kafka.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakingPublisher guards a Publisher with a circuit breaker so a broker
// outage fails fast instead of stalling every write on the Kafka timeout.
type BreakingPublisher struct {
	next    pkgkafka.Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakingPublisher wraps next.
func NewBreakingPublisher(next pkgkafka.Publisher, cfg CircuitBreakerConfig, logger *slog.Logger) *BreakingPublisher {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	circuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakingPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Publish forwards to the wrapped publisher unless the breaker is open.
func (p *BreakingPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, topic, event)
	})
	return err
}

// State reports the breaker state.
func (p *BreakingPublisher) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the wrapped publisher.
func (p *BreakingPublisher) Close() error {
	return p.next.Close()
}
