package limit

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused client bucket is kept.
const DefaultIdleTTL = time.Hour

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a thread-safe set of token buckets, keyed by client identity.
// A background goroutine (Run) periodically evicts buckets that have not
// been used within the idle TTL.
type Limiter struct {
	mu    sync.Mutex
	data  map[string]*entry
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time // injectable for deterministic tests
}

// New creates a Limiter allowing rps requests per second per client with the
// given burst. rps <= 0 disables limiting.
func New(rps float64, burst int, ttl time.Duration) *Limiter {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Limiter{
		data:  make(map[string]*entry),
		rps:   rate.Limit(rps),
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l.rps > 0
}

// Allow takes one token from key's bucket. When the bucket is empty it
// returns false and how long until a token is available.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	e, ok := l.data[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.data[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Count returns the number of client buckets currently held.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data)
}

// Evict removes buckets not used since now minus the idle TTL.
// It returns the number of buckets removed.
func (l *Limiter) Evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-l.ttl)
	removed := 0
	for key, e := range l.data {
		if !e.lastSeen.After(cutoff) {
			delete(l.data, key)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the idle TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	interval := l.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := l.Evict(now); n > 0 {
				slog.Debug("limit: evicted idle buckets", "count", n)
			}
		}
	}
}

// Middleware limits requests per API key, read from header. Requests without
// a key are limited per remote IP. Over-limit requests get 429 with a
// Retry-After header in whole seconds.
func (l *Limiter) Middleware(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(header)
			if key == "" {
				key = clientIP(r)
			}
			ok, wait := l.Allow(key)
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
					"error":   "Too Many Requests",
					"message": "rate limit exceeded, please slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
