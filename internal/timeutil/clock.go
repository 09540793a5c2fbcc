// Package timeutil abstracts wall-clock access so time-driven behavior
// (context expiry sweeps, poll interval waits) can be tested deterministically
// with a fake clock instead of real timers.
package timeutil

import (
	"context"
	"sync"
	"time"
)

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock provides the time operations used by the service. Sleep must honor
// context cancellation and return the context error when interrupted.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
	Ticker(d time.Duration) Ticker
}

// RealClock delegates to the time package.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// Ticker returns a ticker backed by time.Ticker.
func (RealClock) Ticker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.t.C }

func (t *realTicker) Stop() { t.t.Stop() }

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FakeClock is a manually advanced clock for tests. Sleep returns immediately
// after recording the requested duration and advancing the fake time, so
// polling loops run without real delays while tests can still assert on the
// waits that would have happened. Tickers created from a FakeClock fire when
// Advance moves the fake time past their next deadline.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	tickers []*fakeTicker
}

// NewFakeClock creates a FakeClock starting at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake time forward by d and delivers any ticks that fall
// due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.deliverLocked()
}

// Ticker returns a fake ticker fired by Advance. Like time.NewTicker it
// panics on a non-positive interval.
func (c *FakeClock) Ticker(d time.Duration) Ticker {
	if d <= 0 {
		panic("non-positive interval for Ticker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{
		clock:    c,
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// deliverLocked fires every ticker whose deadline the fake time has passed.
// Delivery is non-blocking with a one-tick buffer, matching time.Ticker's
// behavior of dropping ticks a slow receiver misses.
func (c *FakeClock) deliverLocked() {
	for _, t := range c.tickers {
		for !t.stopped && !c.now.Before(t.next) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.interval)
		}
	}
}

type fakeTicker struct {
	clock    *FakeClock
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// Sleep records the requested duration, advances the fake time and returns.
// Cancellation is still observed so cancelled contexts behave as with a real
// clock.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.deliverLocked()
	c.mu.Unlock()
	return nil
}

// Sleeps returns a copy of the durations passed to Sleep so far.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
