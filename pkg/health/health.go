// Package health implements liveness and readiness probes.
//
// Every check runs on its own ticker. A check flips to unhealthy only after
// FailureThreshold consecutive failures and back to healthy after
// SuccessThreshold consecutive successes, so a single slow probe does not
// take the service out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	// Liveness checks decide whether the process should be restarted.
	Liveness Kind = iota
	// Readiness checks decide whether the process should receive traffic.
	Readiness
)

func (k Kind) String() string {
	if k == Readiness {
		return "readiness"
	}
	return "liveness"
}

// Check describes a registered check.
type Check struct {
	Name             string
	Kind             Kind
	Timeout          time.Duration
	Func             CheckFunc
	FailureThreshold int
	SuccessThreshold int
}

type check struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Owned by the check goroutine.
	fails, oks int
}

func (c *check) failure() string {
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error()
	}
	return "check is unhealthy"
}

// probe runs the check once. It reports whether the healthy flag changed.
func (c *check) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	err := c.Func(ctx)
	c.lastErr.Store(&err)

	was := c.healthy.Load()
	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.FailureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.fails = 0
		c.oks++
		if c.oks >= c.SuccessThreshold {
			c.healthy.Store(true)
		}
	}
	return was != c.healthy.Load()
}

// Health aggregates checks and serves probe endpoints.
type Health struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
}

// New creates a Health that starts not ready. Call SetReady(true) once
// initialization completes.
func New(lg *zap.Logger) *Health {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Health{lg: lg}
}

// Add registers a check. Zero thresholds default to 3 failures and 1
// success; a zero timeout defaults to one second. Checks start healthy.
func (h *Health) Add(c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	ch := &check{Check: c}
	ch.healthy.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, ch)
	h.mu.Unlock()
}

// Start runs every registered check immediately and then every interval
// until ctx is done or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	checks := slices.Clone(h.checks)
	h.mu.Unlock()

	for _, c := range checks {
		go h.loop(ctx, c, interval)
	}
}

func (h *Health) loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.probe(ctx) {
			h.lg.Info("Health check changed",
				zap.String("check", c.Name),
				zap.Stringer("kind", c.Kind),
				zap.Bool("healthy", c.healthy.Load()),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and all readiness
// checks pass.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

// IsLive reports whether all liveness checks pass.
func (h *Health) IsLive() bool {
	return len(h.failures(Liveness)) == 0
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, c := range h.checks {
		if c.Kind == kind && !c.healthy.Load() {
			out[c.Name] = c.failure()
		}
	}
	return out
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 with failing checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, "ok", h.failures(Liveness))
}

// ReadyEndpoint serves /readyz: 200 {"status":"ok"} when marked ready and all
// readiness checks pass, 503 otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, "ok", failures)
}

// HealthEndpoint serves /health for clients that expect
// {"status":"healthy"}. It follows liveness.
func (h *Health) HealthEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, "healthy", h.failures(Liveness))
}

func writeStatus(w http.ResponseWriter, okStatus string, failures map[string]string) {
	status, code := okStatus, http.StatusOK
	if len(failures) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(status) })
		if len(failures) == 0 {
			return
		}
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		slices.Sort(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
