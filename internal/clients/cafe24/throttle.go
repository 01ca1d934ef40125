package cafe24

import (
	"context"
	"sync"
	"time"
)

const (
	windowLength   = 60 * time.Second
	throttleBuffer = 5
)

// windowThrottle counts requests inside a rolling 60 second window and
// sleeps out the remainder of the window once the count gets within a small
// buffer of the server's ceiling. The API limits calls per minute, so
// staying a few requests short of the ceiling avoids 429 responses
// entirely in steady state.
type windowThrottle struct {
	mu          sync.Mutex
	ceiling     int
	windowStart time.Time
	count       int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newWindowThrottle(ceiling int) *windowThrottle {
	return &windowThrottle{
		ceiling: ceiling,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait accounts for one request, sleeping until the window rolls over when
// the counter has reached the throttle threshold.
func (t *windowThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()

	now := t.now()
	if t.windowStart.IsZero() || now.Sub(t.windowStart) >= windowLength {
		t.windowStart = now
		t.count = 0
	}

	if t.count >= t.ceiling-throttleBuffer {
		remaining := windowLength - now.Sub(t.windowStart)
		t.mu.Unlock()
		if remaining > 0 {
			if err := t.sleep(ctx, remaining); err != nil {
				return err
			}
		}
		t.mu.Lock()
		t.windowStart = t.now()
		t.count = 0
	}

	t.count++
	t.mu.Unlock()
	return nil
}

// Snapshot returns the current window count for status reporting.
func (t *windowThrottle) Snapshot() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.windowStart.IsZero() || t.now().Sub(t.windowStart) >= windowLength {
		return 0
	}
	return t.count
}
