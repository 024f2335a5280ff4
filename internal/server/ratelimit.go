package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"resumeforge/internal/errors"
	"resumeforge/internal/session"

	"golang.org/x/time/rate"
)

// defaultEvictionAge applies when no idle window is configured
const defaultEvictionAge = 10 * time.Minute

// RateLimiter keeps one token bucket per client key (session or IP).
type RateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastSeen    map[string]time.Time
	rate        rate.Limit
	burst       int
	evictionAge time.Duration
	now         func() time.Time
	done        chan struct{}
	closeOnce   sync.Once
	logger      *errors.Logger
}

// NewRateLimiter creates a limiter allowing requestsPerMin with the given burst per key.
// Keys idle for longer than window are evicted by a background goroutine until Close.
func NewRateLimiter(requestsPerMin int, window time.Duration, burstCapacity int, logger *errors.Logger) *RateLimiter {
	if window <= 0 {
		window = defaultEvictionAge
	}
	m := &RateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		lastSeen:    make(map[string]time.Time),
		rate:        rate.Limit(float64(requestsPerMin) / 60.0),
		burst:       burstCapacity,
		evictionAge: window,
		now:         time.Now,
		done:        make(chan struct{}),
		logger:      logger,
	}

	go m.cleanupRoutine(window)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *RateLimiter) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = m.now()

	return limiter
}

// Allow reports whether one more request for key fits in its bucket
func (m *RateLimiter) Allow(key string) bool {
	return m.GetLimiter(key).AllowN(m.now(), 1)
}

// GetStats returns current rate limiter statistics
func (m *RateLimiter) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
	}
}

func (m *RateLimiter) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters idle for longer than the eviction age
func (m *RateLimiter) cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > m.evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
			removed++
		}
	}

	if m.logger != nil {
		m.logger.Debug("Rate limiter cleanup completed",
			"removed", removed,
			"remaining_limiters", len(m.limiters))
	}
	return removed
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *RateLimiter) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects clients that exceed their bucket with 429.
// It runs after withSession so session keys are available.
func (s *Server) rateLimitMiddleware() middleware {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key, keyType := getRateLimitKey(r, s.RateLimit.BySession, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(key) {
				s.Logger.Info("Rate limit exceeded",
					"key_type", keyType,
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				s.metrics.RecordRateLimitHit(r.Context(), keyType)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too many requests. Please slow down and try again.", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// getRateLimitKey picks the session when enabled and present, else the client IP
func getRateLimitKey(r *http.Request, bySession, byIP bool) (key, keyType string) {
	if bySession {
		if sess := session.FromContext(r.Context()); sess != nil && sess.ID != "" {
			return "session:" + sess.ID, "session"
		}
	}

	if byIP {
		return "ip:" + getClientIP(r), "ip"
	}

	return "", ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
