// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock set to initial. Time moves only when
// Advance is called.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.waitersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests.
//
// AfterFunc callbacks run synchronously inside Advance with the clock's
// lock released, so a callback may call Now, After, AfterFunc or
// Timer.Stop. It must not call Advance.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	waiters        []*fakeWaiter
	waitersChanged *sync.Cond
}

// fakeWaiter is one armed After or AfterFunc.
type fakeWaiter struct {
	deadline time.Time

	// Exactly one of channel (After) and callback (AfterFunc) is set.
	channel  chan time.Time
	callback func()

	stopped bool
	fired   bool
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock has advanced by
// d. If d <= 0 the channel is ready on return and no waiter is
// registered.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.addLocked(&fakeWaiter{deadline: c.current.Add(d), channel: channel})
	return channel
}

// AfterFunc arms f to run once the clock has advanced by d. If d <= 0,
// f runs before AfterFunc returns and the returned Timer is inert.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	waiter := &fakeWaiter{deadline: c.current.Add(d), callback: f}
	c.addLocked(waiter)

	return &Timer{
		stopFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if waiter.stopped || waiter.fired {
				return false
			}
			waiter.stopped = true
			c.waitersChanged.Broadcast()
			return true
		},
	}
}

func (c *FakeClock) addLocked(waiter *fakeWaiter) {
	c.waiters = append(c.waiters, waiter)
	c.waitersChanged.Broadcast()
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline is at or before the new time, earliest first (ties in the
// order they were armed). Waiters fire one at a time: while a callback
// runs, Now reports that waiter's deadline, a timer it stops does not
// fire, and a timer it arms fires in the same call if its deadline is
// also within d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		waiter := c.nextExpired(target)
		if waiter == nil {
			return
		}
		if waiter.callback != nil {
			waiter.callback()
			continue
		}
		select {
		case waiter.channel <- waiter.deadline:
		default:
		}
	}
}

// nextExpired removes and returns the earliest live waiter due at or
// before target, moving the clock to its deadline. With none left it
// drops stopped waiters, moves the clock to target and returns nil.
// Acquires c.mu.
func (c *FakeClock) nextExpired(target time.Time) *fakeWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := -1
	for i, waiter := range c.waiters {
		if waiter.stopped || waiter.deadline.After(target) {
			continue
		}
		if index < 0 || waiter.deadline.Before(c.waiters[index].deadline) {
			index = i
		}
	}

	if index < 0 {
		remaining := c.waiters[:0]
		for _, waiter := range c.waiters {
			if !waiter.stopped {
				remaining = append(remaining, waiter)
			}
		}
		c.waiters = remaining
		if target.After(c.current) {
			c.current = target
		}
		return nil
	}

	waiter := c.waiters[index]
	c.waiters = append(c.waiters[:index], c.waiters[index+1:]...)
	waiter.fired = true
	if waiter.deadline.After(c.current) {
		c.current = waiter.deadline
	}
	c.waitersChanged.Broadcast()
	return waiter
}

// WaitForTimers blocks until at least n waiters are armed (neither
// fired nor stopped).
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingCountLocked() < n {
		c.waitersChanged.Wait()
	}
}

// PendingCount returns the number of armed waiters.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingCountLocked()
}

func (c *FakeClock) pendingCountLocked() int {
	count := 0
	for _, waiter := range c.waiters {
		if !waiter.stopped && !waiter.fired {
			count++
		}
	}
	return count
}
