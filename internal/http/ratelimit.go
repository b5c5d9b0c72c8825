package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxIdleBuckets bounds the limiter's memory; idle or full buckets are
	// dropped first.
	maxIdleBuckets = 10_000
	limiterIdleTTL = 10 * time.Minute
)

// rateLimiter keeps one token bucket per key to throttle login attempts.
type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(rps float64) *rateLimiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps * 2)
	if burst < 5 {
		burst = 5
	}
	return &rateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     limiterIdleTTL,
	}
}

func (l *rateLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= maxIdleBuckets {
			l.prune(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune removes idle buckets and buckets that have refilled completely.
// Must hold l.mu.
func (l *rateLimiter) prune(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.ttl || entry.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.entries, key)
		}
	}
}

type peerKey struct{}

// rememberPeer records the socket address before RealIP rewrites
// RemoteAddr from client-supplied forwarding headers.
func rememberPeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// peerAddress is the address of the connection that sent r.
func peerAddress(r *http.Request) string {
	if addr, ok := r.Context().Value(peerKey{}).(string); ok && addr != "" {
		return clientIPAddress(addr)
	}
	return clientIPAddress(r.RemoteAddr)
}

func clientIPAddress(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
