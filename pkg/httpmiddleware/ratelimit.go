package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window. Zero disables limiting.
	Max int
	// Window is the sliding window length.
	Window time.Duration
	// KeyFunc maps a request to a client key. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// counter holds request counts for the current and previous fixed windows.
// The previous window is weighted by its overlap with the sliding window.
type counter struct {
	start time.Time
	curr  float64
	prev  float64
}

type decision struct {
	allowed   bool
	remaining int
	reset     time.Time
}

type limiter struct {
	max    int
	window time.Duration
	key    func(*http.Request) string

	mu       sync.Mutex
	counters map[string]*counter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	key := cfg.KeyFunc
	if key == nil {
		key = ClientIP
	}
	return &limiter{
		max:      cfg.Max,
		window:   cfg.Window,
		key:      key,
		counters: make(map[string]*counter),
	}
}

func (l *limiter) take(key string, now time.Time) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok {
		c = &counter{start: now.Truncate(l.window)}
		l.counters[key] = c
	}
	if elapsed := now.Sub(c.start); elapsed >= l.window {
		if elapsed >= 2*l.window {
			c.prev = 0
		} else {
			c.prev = c.curr
		}
		c.curr = 0
		c.start = now.Truncate(l.window)
	}

	overlap := 1 - float64(now.Sub(c.start))/float64(l.window)
	used := c.prev*math.Max(overlap, 0) + c.curr
	reset := c.start.Add(l.window)
	if used >= float64(l.max) {
		return decision{reset: reset}
	}
	c.curr++

	return decision{
		allowed:   true,
		remaining: max(int(float64(l.max)-used-1), 0),
		reset:     reset,
	}
}

// evict drops counters that have not been touched for two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if now.Sub(c.start) >= 2*l.window {
			delete(l.counters, key)
		}
	}
}

func (l *limiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// RateLimit returns a middleware enforcing cfg per client key. Rejected
// requests get 429 with a Retry-After header. Stale counters are evicted in
// the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg)
	go l.evictLoop(ctx)

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			d := l.take(l.key(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))

			if !d.allowed {
				wait := max(d.reset.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
