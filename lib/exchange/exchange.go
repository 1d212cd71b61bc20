// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"context"
	"time"

	"github.com/bureau-foundation/webeid/lib/clock"
	"github.com/bureau-foundation/webeid/lib/protocol"
)

// Exchange is one in-flight request. Its result is written once, before
// Done is closed, and never changes afterwards.
type Exchange struct {
	engine  *Engine
	request protocol.Message

	// Fixed at Send from one reading of the engine's clock.
	ackDeadline   time.Time
	replyDeadline time.Time

	// Guarded by engine.mu until done is closed.
	state      State
	ackTimer   *clock.Timer
	replyTimer *clock.Timer
	response   protocol.Message
	err        error

	done chan struct{}
}

// Message returns the request that started the exchange.
func (x *Exchange) Message() protocol.Message {
	return x.request
}

// Action returns the exchange's action.
func (x *Exchange) Action() protocol.Action {
	return x.request.Action
}

// Done is closed when the exchange settles.
func (x *Exchange) Done() <-chan struct{} {
	return x.done
}

// State returns the current lifecycle state.
func (x *Exchange) State() State {
	x.engine.mu.Lock()
	defer x.engine.mu.Unlock()
	return x.state
}

// Wait blocks until the exchange settles and returns the success reply
// or the failure. A failure is always an *eiderr.Error.
//
// If ctx is done first, Wait returns ctx.Err(). The exchange keeps
// running and can be waited on again.
func (x *Exchange) Wait(ctx context.Context) (protocol.Message, error) {
	select {
	case <-x.done:
		return x.response, x.err
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}
