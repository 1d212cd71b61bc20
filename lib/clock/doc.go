// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the
// exchange engine for its handshake and reply deadlines.
//
// Production code holds a [Clock] and never calls time.AfterFunc or
// time.Now directly. [Real] wraps the time package. [Fake] returns a
// [FakeClock] that stands still until the test calls Advance, so a
// test can step an exchange past its ack deadline without sleeping:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine, _ := exchange.New(exchange.Config{Clock: fake, ...})
//	pending, _ := engine.Send(ctx, request, 5*time.Second)
//	fake.Advance(time.Second) // ack deadline passes
//
// AfterFunc callbacks registered on a FakeClock run synchronously
// inside Advance, in deadline order. [FakeClock.WaitForTimers] blocks
// until a given number of timers are armed, which removes the race
// between a goroutine arming a timer and the test advancing past it.
package clock
