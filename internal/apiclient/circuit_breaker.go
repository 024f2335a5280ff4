package apiclient

import (
	"net/http"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// BackendCircuitBreaker fails fast while the backend keeps erroring.
// It never retries: each Execute runs fn at most once.
type BackendCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[int]
}

// NewBackendCircuitBreaker returns nil when the breaker is disabled
func NewBackendCircuitBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *BackendCircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "Backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		// Client errors (bad credentials, missing resume) say nothing about backend health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			status := errors.StatusCode(err)
			return status > 0 && status < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &BackendCircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[int](settings),
	}
}

// Execute runs fn under the breaker. An open breaker returns BACKEND_UNAVAILABLE without calling fn.
func (cb *BackendCircuitBreaker) Execute(fn func() (int, error)) (int, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	status, err := cb.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return 0, errors.NewNetworkError(errors.ErrCodeBackendUnavailable,
			"The resume service is temporarily unavailable. Please try again shortly.", err)
	}
	return status, err
}

// GetStats returns circuit breaker statistics
func (cb *BackendCircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *BackendCircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}
