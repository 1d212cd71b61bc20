// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package channeltest provides a scripted extension peer for tests of
// code built on lib/channel.
//
// A [Responder] subscribes to a channel and answers each request with
// the replies its [Script] returns for that action:
//
//	bus := channel.NewBus("https://example.org")
//	responder := channeltest.NewResponder(bus)
//	responder.Handle(protocol.ActionStatus, channeltest.Reply(
//		channeltest.Ack(),
//		channeltest.Success(map[string]any{"extension": "1.0.0", "nativeApp": "1.0.0"}),
//	))
//
// Actions without a script get no reply at all, which is how tests
// provoke handshake timeouts.
package channeltest

import (
	"context"
	"sync"

	"github.com/bureau-foundation/webeid/lib/channel"
	"github.com/bureau-foundation/webeid/lib/protocol"
)

// Script computes the replies to one request. Replies are posted in
// order, after the request has been recorded.
type Script func(request protocol.Message) []protocol.Message

// Step builds one reply to a request.
type Step func(request protocol.Message) protocol.Message

// Ack returns a step producing the acknowledgement.
func Ack() Step {
	return func(request protocol.Message) protocol.Message {
		return request.Reply(protocol.PhaseAck, nil)
	}
}

// Success returns a step producing a success reply with fields.
func Success(fields map[string]any) Step {
	return func(request protocol.Message) protocol.Message {
		return request.Reply(protocol.PhaseSuccess, fields)
	}
}

// Failure returns a step producing a failure reply carrying errorObject.
func Failure(errorObject map[string]any) Step {
	return func(request protocol.Message) protocol.Message {
		return request.Fail(errorObject)
	}
}

// Reply returns a Script that answers every request with steps.
func Reply(steps ...Step) Script {
	return func(request protocol.Message) []protocol.Message {
		replies := make([]protocol.Message, 0, len(steps))
		for _, step := range steps {
			replies = append(replies, step(request))
		}
		return replies
	}
}

// Responder is a scripted peer on a Channel.
type Responder struct {
	channel     channel.Channel
	unsubscribe func()

	mu       sync.Mutex
	scripts  map[protocol.Action]Script
	requests []protocol.Message
	received chan protocol.Message
}

// NewResponder subscribes a responder to ch. Call Close to detach it.
func NewResponder(ch channel.Channel) *Responder {
	responder := &Responder{
		channel:  ch,
		scripts:  make(map[protocol.Action]Script),
		received: make(chan protocol.Message, 64),
	}
	responder.unsubscribe = ch.Subscribe(responder.handle)
	return responder
}

// Handle installs script for action, replacing any earlier one.
func (r *Responder) Handle(action protocol.Action, script Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[action] = script
}

// Received delivers every request the responder sees. It is buffered;
// requests beyond the buffer are still recorded by Requests.
func (r *Responder) Received() <-chan protocol.Message {
	return r.received
}

// Requests returns every request seen so far.
func (r *Responder) Requests() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.requests...)
}

// Close unsubscribes the responder.
func (r *Responder) Close() {
	r.unsubscribe()
}

func (r *Responder) handle(message protocol.Message) {
	if message.Phase != protocol.PhaseRequest {
		return
	}

	r.mu.Lock()
	r.requests = append(r.requests, message)
	script := r.scripts[message.Action]
	r.mu.Unlock()

	select {
	case r.received <- message:
	default:
	}

	if script == nil {
		return
	}
	for _, reply := range script(message) {
		if err := r.channel.Post(context.Background(), reply); err != nil {
			return
		}
	}
}
