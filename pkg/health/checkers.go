package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than limit goroutines are running.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("goroutine count %d exceeds %d", n, limit)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any recent GC pause exceeds limit.
func GCMaxPauseCheck(limit time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > limit {
				return errors.Errorf("gc pause %s exceeds %s", pause, limit)
			}
		}
		return nil
	}
}

// Counter is anything that reports a size, such as an in-memory store.
type Counter interface {
	Len() int
}

// CapacityCheck fails when c holds more than limit entries. A non-positive
// limit disables the check.
func CapacityCheck(c Counter, limit int) CheckFunc {
	return func(context.Context) error {
		if limit <= 0 {
			return nil
		}
		if n := c.Len(); n > limit {
			return errors.Errorf("%d entries exceeds capacity %d", n, limit)
		}
		return nil
	}
}
