// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"maps"
	"sync"

	"github.com/bureau-foundation/webeid/lib/protocol"
)

// Compile-time interface check.
var _ Channel = (*Bus)(nil)

// Bus is an in-process Channel. Two parties holding the same Bus (the
// client and a test responder, or the client and an embedded peer)
// exchange messages without any I/O.
//
// Post never blocks on delivery: messages are queued and a single
// dispatcher goroutine hands them to subscribers in post order.
// Each subscriber receives its own copy of the message's field maps.
type Bus struct {
	origin      string
	subscribers subscribers

	mu      sync.Mutex
	queue   []protocol.Message
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
}

// NewBus creates a Bus serving origin and starts its dispatcher. Call
// Close to stop it.
func NewBus(origin string) *Bus {
	bus := &Bus{
		origin:  origin,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go bus.dispatch()
	return bus
}

// Origin returns the origin the bus was created with.
func (b *Bus) Origin() string { return b.origin }

// Subscribe registers handler. See [Channel.Subscribe].
func (b *Bus) Subscribe(handler func(protocol.Message)) func() {
	return b.subscribers.add(handler)
}

// Post queues message for delivery. It fails only when ctx is already
// done or the bus is closed.
func (b *Bus) Post(ctx context.Context, message protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.queue = append(b.queue, message)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the dispatcher after the messages already queued have
// been delivered. Posts after Close fail with ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.stopped
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	<-b.stopped
	return nil
}

func (b *Bus) dispatch() {
	defer close(b.stopped)
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		closed := b.closed
		b.mu.Unlock()

		for _, message := range batch {
			b.deliver(message)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-b.wake
	}
}

func (b *Bus) deliver(message protocol.Message) {
	for _, handler := range b.subscribers.snapshot() {
		handler(protocol.Message{
			Action: message.Action,
			Phase:  message.Phase,
			Fields: maps.Clone(message.Fields),
			Error:  maps.Clone(message.Error),
		})
	}
}
