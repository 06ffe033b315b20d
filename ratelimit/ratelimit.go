package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mezonai/vessel/exception"
	"github.com/mezonai/vessel/logx"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MaxRequests     int           // Maximum number of requests allowed per window
	WindowSize      time.Duration // Sliding window length
	CleanupInterval time.Duration // How often idle keys are dropped
}

// DefaultConfig allows 120 writes per client per minute
func DefaultConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxRequests:     120,
		WindowSize:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements sliding window rate limiting keyed by client
type RateLimiter struct {
	config   RateLimiterConfig
	requests map[string][]time.Time
	mu       sync.Mutex
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.WindowSize <= 0 {
		config.WindowSize = time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * config.WindowSize
	}
	return &RateLimiter{
		config:   config,
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// prune drops timestamps that fell out of the window; callers hold mu
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.config.WindowSize)
	stamps := rl.requests[key]
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	stamps = stamps[i:]
	if len(stamps) == 0 {
		delete(rl.requests, key)
	} else {
		rl.requests[key] = stamps
	}
	return stamps
}

// Allow records a request for key and reports whether it fits the window
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	stamps := rl.prune(key, now)
	if len(stamps) >= rl.config.MaxRequests {
		return false
	}
	rl.requests[key] = append(stamps, now)
	return true
}

// RetryAfter returns how long key must wait before its oldest request expires
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	stamps := rl.prune(key, now)
	if len(stamps) < rl.config.MaxRequests {
		return 0
	}
	return stamps[0].Add(rl.config.WindowSize).Sub(now)
}

// Cleanup removes keys without requests in the current window
func (rl *RateLimiter) Cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key := range rl.requests {
		rl.prune(key, now)
	}
}

// StartCleanup runs Cleanup every CleanupInterval until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	exception.SafeGo("RateLimiterCleanup", func() {
		ticker := time.NewTicker(rl.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	})
}

// Middleware rejects requests over the limit with 429, keyed by client IP
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			wait := rl.RetryAfter(key)
			logx.Warn("RATELIMIT", "Rejected request from ", key, " to ", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
