package fetch

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/richardwooding/feed-miner/model"
)

// breakerRegistry lazily creates one circuit breaker per host.
type breakerRegistry struct {
	maxRequests      uint32
	interval         time.Duration
	timeout          time.Duration
	failureThreshold uint32
	logger           logrus.FieldLogger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerRegistry(cfg Config) *breakerRegistry {
	return &breakerRegistry{
		maxRequests:      cfg.CircuitBreakerMaxRequests,
		interval:         cfg.CircuitBreakerInterval,
		timeout:          cfg.CircuitBreakerTimeout,
		failureThreshold: cfg.CircuitBreakerFailureThreshold,
		logger:           cfg.Logger,
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (r *breakerRegistry) get(host string) *gobreaker.CircuitBreaker {
	host = strings.ToLower(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[host]; ok {
		return cb
	}

	threshold := r.failureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "host-" + host,
		MaxRequests: r.maxRequests,
		Interval:    r.interval,
		Timeout:     r.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			entry := r.logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"breaker":   name,
				"from":      from.String(),
				"to":        to.String(),
			})
			if to == gobreaker.StateOpen {
				entry.Warn("circuit breaker opened")
				return
			}
			entry.Debug("circuit breaker state changed")
		},
	})
	r.breakers[host] = cb
	return cb
}

// state reports the breaker state for host, StateClosed when none exists yet.
func (r *breakerRegistry) state(host string) gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[strings.ToLower(host)]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// isBreakerSuccess keeps client errors from tripping the breaker: probing
// conventional feed paths produces many 404s from healthy hosts. Fetches that
// never reached the host do not count either.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, errThrottled) {
		return true
	}
	fe, ok := model.AsFeedError(err)
	if !ok {
		return false
	}
	if fe.Category() == model.CategoryInvalidURL {
		return true
	}
	return fe.ErrorType == model.ErrorTypeHTTPClientError && fe.HTTPStatus != 429
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
