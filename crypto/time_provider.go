package crypto

import (
	"sync"
	"time"
)

// TimeProvider abstracts time operations for deterministic testing.
// Implementations must be safe for concurrent use.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer that inactivity deadlines need.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since the given time.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// AfterFunc wraps time.AfterFunc.
func (DefaultTimeProvider) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var (
	timeMu              sync.RWMutex
	defaultTimeProvider TimeProvider = DefaultTimeProvider{}
)

// SetDefaultTimeProvider sets the package-level time provider for testing.
// Pass nil to reset to the default implementation.
func SetDefaultTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	timeMu.Lock()
	defaultTimeProvider = tp
	timeMu.Unlock()
}

// GetDefaultTimeProvider returns the current package-level time provider.
func GetDefaultTimeProvider() TimeProvider {
	timeMu.RLock()
	defer timeMu.RUnlock()
	return defaultTimeProvider
}

// ManualClock is a TimeProvider whose time only moves when Advance is called.
// Timers scheduled with AfterFunc fire synchronously inside Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManualClock starts a clock at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the clock time elapsed since t.
func (c *ManualClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, deadline: c.now.Add(d), fn: f, active: true}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that came due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if t.active && !t.deadline.After(c.now) {
			t.active = false
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Time
	fn       func()
	active   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.deadline = t.clock.now.Add(d)
	t.active = true
	return was
}
