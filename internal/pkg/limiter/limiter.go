/*
Package limiter provides per-key token bucket rate limiting.

Keys are client IPs for connection upgrades and user ids for message sends. Idle
buckets are swept periodically so the map does not grow without bound.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
	"gatherchat/internal/pkg/resp"
)

const sweepInterval = 3 * time.Minute

// KeyedLimiter holds one rate.Limiter per key.
type KeyedLimiter struct {
	// mu protects the limits map.
	mu sync.RWMutex

	limits map[string]*rate.Limiter

	// r is the sustained rate in events per second.
	r rate.Limit

	// b is the burst size of each bucket.
	b int
}

// NewKeyedLimiter creates a limiter and starts its sweeper, which stops when ctx is cancelled.
func NewKeyedLimiter(ctx context.Context, r rate.Limit, b int) *KeyedLimiter {
	l := &KeyedLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go l.sweep(ctx)

	return l
}

// GetLimiter returns the bucket for key, creating it on first use.
func (l *KeyedLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists = l.limits[key]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limits[key] = limiter
	}

	return limiter
}

// Allow consumes one token from key's bucket.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.GetLimiter(key).Allow()
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limits)
}

// removeIdle drops every bucket that has refilled completely.
func (l *KeyedLimiter) removeIdle(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, limiter := range l.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(l.limits, key)
			removed++
		}
	}
	return removed
}

func (l *KeyedLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := l.removeIdle(now)
			logx.Debug("Rate limiter sweep finished", "removed", removed, "remaining", l.Len())
		}
	}
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}

// Middleware rejects requests over the per-IP limit with ErrRateLimitExceeded.
func (l *KeyedLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
