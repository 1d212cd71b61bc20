// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "maps"

// Action names one logical operation.
type Action string

const (
	ActionStatus       Action = "status"
	ActionAuthenticate Action = "authenticate"
	ActionSign         Action = "sign"
)

// Known reports whether a is one of the operations this client issues.
func (a Action) Known() bool {
	switch a {
	case ActionStatus, ActionAuthenticate, ActionSign:
		return true
	}
	return false
}

// Phase is the position of a message within its exchange.
type Phase uint8

const (
	// PhaseRequest is the client's outbound message.
	PhaseRequest Phase = iota

	// PhaseAck signals that the extension received the request. It
	// carries no result.
	PhaseAck

	// PhaseSuccess terminates the exchange with a result payload.
	PhaseSuccess

	// PhaseFailure terminates the exchange with an error object.
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseRequest:
		return "request"
	case PhaseAck:
		return "ack"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return "invalid"
	}
}

// Terminal reports whether p ends an exchange.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseFailure
}

// Message is one protocol message.
type Message struct {
	Action Action
	Phase  Phase

	// Fields holds every wire field except "action" and a structured
	// "error": request options, or the reply payload.
	Fields map[string]any

	// Error is the wire error object of a failure message. Nil when
	// the peer sent none.
	Error map[string]any
}

// NewRequest returns a request message for action. fields is copied.
func NewRequest(action Action, fields map[string]any) Message {
	return Message{
		Action: action,
		Phase:  PhaseRequest,
		Fields: maps.Clone(fields),
	}
}

// Reply returns a message for the same action in the given phase with
// the given payload. Used by peers and test responders.
func (m Message) Reply(phase Phase, fields map[string]any) Message {
	return Message{
		Action: m.Action,
		Phase:  phase,
		Fields: maps.Clone(fields),
	}
}

// Fail returns a failure reply carrying errorObject.
func (m Message) Fail(errorObject map[string]any) Message {
	return Message{
		Action: m.Action,
		Phase:  PhaseFailure,
		Error:  maps.Clone(errorObject),
	}
}

// String returns the string value of a payload field.
func (m Message) String(key string) (string, bool) {
	value, ok := m.Fields[key].(string)
	return value, ok
}

// Field returns a payload field.
func (m Message) Field(key string) (any, bool) {
	value, ok := m.Fields[key]
	return value, ok
}

// WireAction returns the action string as it appears on the wire.
func (m Message) WireAction() string {
	return Namespace + string(m.Action) + suffixes[m.Phase]
}
