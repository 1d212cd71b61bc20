// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/bureau-foundation/webeid/lib/protocol"
)

// ErrClosed is returned by Post after the channel has been closed.
var ErrClosed = errors.New("channel: closed")

// Channel is a broadcast message medium shared with the extension.
type Channel interface {
	// Post broadcasts message. It returns once the message is handed
	// to the medium, not when it is delivered. Whether the poster's own
	// subscribers see it depends on the medium, so receivers ignore
	// request-phase echoes.
	Post(ctx context.Context, message protocol.Message) error

	// Subscribe registers handler for every message that arrives after
	// the call. Handlers for one channel are called from a single
	// goroutine, in arrival order. The returned function removes the
	// subscription and may be called more than once.
	Subscribe(handler func(protocol.Message)) (unsubscribe func())

	// Origin is the origin of the context the channel serves, for
	// example "https://example.org".
	Origin() string
}

// subscribers is the handler set shared by Bus and Stream.
type subscribers struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]func(protocol.Message)
	order    []uint64
}

func (s *subscribers) add(handler func(protocol.Message)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[uint64]func(protocol.Message))
	}
	s.nextID++
	id := s.nextID
	s.handlers[id] = handler
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.handlers, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the current handlers in subscription order. Delivery
// runs on the snapshot so a handler may subscribe or unsubscribe
// without deadlocking.
func (s *subscribers) snapshot() []func(protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handlers := make([]func(protocol.Message), 0, len(s.order))
	for _, id := range s.order {
		handlers = append(handlers, s.handlers[id])
	}
	return handlers
}

func (s *subscribers) deliver(message protocol.Message) {
	for _, handler := range s.snapshot() {
		handler(message)
	}
}
