// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/webeid/lib/channel"
	"github.com/bureau-foundation/webeid/lib/clock"
	"github.com/bureau-foundation/webeid/lib/eiderr"
	"github.com/bureau-foundation/webeid/lib/protocol"
)

// DefaultHandshakeTimeout is how long the extension has to acknowledge
// a request.
const DefaultHandshakeTimeout = time.Second

// ErrNotRequest is returned by Send for messages that are not in the
// request phase.
var ErrNotRequest = errors.New("exchange: only request messages can be sent")

// Config configures an Engine.
type Config struct {
	// Channel carries requests out and replies in. Required.
	Channel channel.Channel

	// Clock drives both deadlines. Defaults to clock.Real().
	Clock clock.Clock

	// HandshakeTimeout is the acknowledgement deadline. Zero selects
	// DefaultHandshakeTimeout; negative values are rejected.
	HandshakeTimeout time.Duration

	// Logger receives exchange lifecycle events at debug level. Nil
	// discards.
	Logger *slog.Logger
}

// Engine sends requests and matches replies to them.
type Engine struct {
	channel          channel.Channel
	clock            clock.Clock
	handshakeTimeout time.Duration
	logger           *slog.Logger
	unsubscribe      func()

	mu       sync.Mutex
	registry *Registry
	closed   bool
}

// New returns an Engine subscribed to config.Channel. Call Close to
// detach it.
func New(config Config) (*Engine, error) {
	if config.Channel == nil {
		return nil, errors.New("exchange: channel is required")
	}
	if config.HandshakeTimeout < 0 {
		return nil, fmt.Errorf("exchange: handshake timeout must not be negative, got %v", config.HandshakeTimeout)
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	engine := &Engine{
		channel:          config.Channel,
		clock:            config.Clock,
		handshakeTimeout: config.HandshakeTimeout,
		logger:           config.Logger,
		registry:         NewRegistry(),
	}
	engine.unsubscribe = config.Channel.Subscribe(engine.Receive)
	return engine, nil
}

// Send starts an exchange for message, which must be a request.
//
// Send fails synchronously, without posting anything or arming any
// deadline, when the channel's origin is not a secure context
// (ERR_WEBEID_CONTEXT_INSECURE), when an exchange for the same action
// is already in flight (ERR_WEBEID_ACTION_PENDING, the existing
// exchange is unaffected), or when replyTimeout is not positive.
//
// Otherwise the exchange is registered, both deadlines are armed and
// the request is posted. If the post fails, the returned exchange is
// already settled with ERR_WEBEID_EXTENSION_UNAVAILABLE.
//
// ctx bounds only the post. Once Send returns, the exchange runs until
// it settles; there is no way to cancel it.
func (e *Engine) Send(ctx context.Context, message protocol.Message, replyTimeout time.Duration) (*Exchange, error) {
	if message.Phase != protocol.PhaseRequest {
		return nil, fmt.Errorf("%w: got %s/%s", ErrNotRequest, message.Action, message.Phase)
	}
	if !channel.IsSecureOrigin(e.channel.Origin()) {
		return nil, eiderr.New(eiderr.CodeContextInsecure, "").With("origin", e.channel.Origin())
	}
	if replyTimeout <= 0 {
		return nil, eiderr.Newf(eiderr.CodeMissingParameter, "reply timeout for %s must be positive, got %v", message.Action, replyTimeout)
	}

	x := &Exchange{
		engine:  e,
		request: message,
		state:   StatePending,
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, eiderr.New(eiderr.CodeExtensionUnavailable, "exchange engine is closed")
	}
	if !e.registry.Add(x) {
		e.mu.Unlock()
		return nil, eiderr.New(eiderr.CodeActionPending, "").With("action", string(message.Action))
	}
	now := e.clock.Now()
	x.ackDeadline = now.Add(e.handshakeTimeout)
	x.replyDeadline = now.Add(replyTimeout)
	x.ackTimer = e.clock.AfterFunc(e.handshakeTimeout, func() { e.onAckTimeout(x) })
	x.replyTimer = e.clock.AfterFunc(replyTimeout, func() { e.onReplyTimeout(x) })
	e.mu.Unlock()

	e.logger.Debug("sending request",
		"action", string(message.Action),
		"handshake_timeout", e.handshakeTimeout,
		"reply_timeout", replyTimeout,
	)

	if err := e.channel.Post(ctx, message); err != nil {
		e.settle(x, protocol.Message{},
			eiderr.New(eiderr.CodeExtensionUnavailable, "").With("cause", err.Error()),
			"post failed")
	}
	return x, nil
}

// Receive handles one message from the channel. Requests (including the
// engine's own, echoed back by a broadcast medium) and messages for
// actions with nothing in flight are ignored.
func (e *Engine) Receive(message protocol.Message) {
	if message.Phase == protocol.PhaseRequest {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	x := e.registry.Get(message.Action)
	if x == nil {
		e.logger.Debug("ignoring reply with no pending exchange",
			"action", string(message.Action), "phase", message.Phase.String())
		return
	}

	switch message.Phase {
	case protocol.PhaseAck:
		if x.state != StatePending {
			return
		}
		x.ackTimer.Stop()
		x.state = StateAcked
		e.logger.Debug("request acknowledged", "action", string(message.Action))
	case protocol.PhaseSuccess:
		e.settleLocked(x, message, nil, "success")
	case protocol.PhaseFailure:
		e.settleLocked(x, protocol.Message{}, failureError(message), "failure")
	}
}

// failureError converts a failure reply to an error. Without a
// structured error object the whole reply becomes the error's extra
// attributes.
func failureError(message protocol.Message) *eiderr.Error {
	if message.Error != nil {
		return eiderr.Deserialize(message.Error)
	}
	result := eiderr.New(eiderr.CodeUnknownError, "")
	for key, value := range message.Fields {
		result.With(key, value)
	}
	return result.With("action", message.WireAction())
}

func (e *Engine) onAckTimeout(x *Exchange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if x.state != StatePending {
		return
	}
	e.settleLocked(x, protocol.Message{}, eiderr.New(eiderr.CodeExtensionUnavailable, ""), "handshake timeout")
}

// onReplyTimeout settles x as timed out. An exchange never acknowledged
// whose handshake deadline had already passed is reported as a missing
// extension instead, whichever timer's goroutine got the lock first.
func (e *Engine) onReplyTimeout(x *Exchange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if x.state == StatePending && !x.replyDeadline.Before(x.ackDeadline) {
		e.settleLocked(x, protocol.Message{}, eiderr.New(eiderr.CodeExtensionUnavailable, ""), "handshake timeout")
		return
	}
	e.settleLocked(x, protocol.Message{}, eiderr.New(eiderr.CodeActionTimeout, ""), "reply timeout")
}

func (e *Engine) settle(x *Exchange, response protocol.Message, err *eiderr.Error, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settleLocked(x, response, err, reason)
}

// settleLocked finalizes x if it is still registered. Caller holds
// e.mu. This is the only place an exchange leaves the registry.
func (e *Engine) settleLocked(x *Exchange, response protocol.Message, err *eiderr.Error, reason string) {
	if !e.registry.Remove(x) {
		return
	}
	x.ackTimer.Stop()
	x.replyTimer.Stop()
	x.state = StateSettled
	x.response = response
	if err != nil {
		x.err = err
	}
	close(x.done)

	if err != nil {
		e.logger.Debug("exchange failed",
			"action", string(x.request.Action), "reason", reason, "code", string(err.Code))
		return
	}
	e.logger.Debug("exchange settled", "action", string(x.request.Action), "reason", reason)
}

// Pending returns the number of exchanges in flight.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// Close detaches the engine from its channel and settles every
// exchange still in flight with ERR_WEBEID_EXTENSION_UNAVAILABLE.
// Later Sends fail with the same code. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, x := range e.registry.All() {
		e.settleLocked(x, protocol.Message{},
			eiderr.New(eiderr.CodeExtensionUnavailable, "exchange engine closed"),
			"engine closed")
	}
	e.mu.Unlock()

	e.unsubscribe()
	return nil
}
