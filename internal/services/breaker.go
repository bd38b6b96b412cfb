package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/listenlog/internal/metrics"
	"github.com/desertthunder/listenlog/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerOpts configures a [BreakerSource].
type BreakerOpts struct {
	Name         string
	FailureRatio float64       // trip when failures/requests reaches this ratio
	MinRequests  uint32        // ...and at least this many requests were counted
	Timeout      time.Duration // time spent open before a half-open probe
	Logger       *log.Logger
}

// BreakerOptsFromConfig builds breaker options from the catalog section of the config.
func BreakerOptsFromConfig(cfg shared.CatalogConfig, logger *log.Logger) BreakerOpts {
	return BreakerOpts{
		Name:         "spotify",
		FailureRatio: cfg.BreakerFailureRatio,
		MinRequests:  cfg.BreakerMinRequests,
		Timeout:      cfg.BreakerTimeout(),
		Logger:       logger,
	}
}

// BreakerSource wraps a [Source] in a circuit breaker. Not-found responses and cancellations count
// as successes, so only transport and server failures can open the circuit.
type BreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerSource wraps source with a breaker configured by opts.
func NewBreakerSource(source Source, opts BreakerOpts) *BreakerSource {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	name := opts.Name
	if name == "" {
		name = "catalog"
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, shared.ErrNotFound) || isContextErr(err)
		},
	})

	return &BreakerSource{source: source, cb: cb, name: name}
}

// State reports the breaker's current state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerSource) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s circuit: %w", shared.ErrCatalogUnavailable, b.name, err)
	}
	return result, err
}

// castResult type-asserts a breaker result, passing errors through.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerSource) SeveralTracks(ctx context.Context, ids []string) ([]*SpotifyTrack, error) {
	return castResult[[]*SpotifyTrack](b.execute(func() (any, error) {
		return b.source.SeveralTracks(ctx, ids)
	}))
}

func (b *BreakerSource) Artist(ctx context.Context, id string) (*SpotifyArtist, error) {
	return castResult[*SpotifyArtist](b.execute(func() (any, error) {
		return b.source.Artist(ctx, id)
	}))
}
