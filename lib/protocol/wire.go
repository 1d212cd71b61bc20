// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Namespace prefixes every wire action.
const Namespace = "web-eid:"

// suffixes maps each phase to its wire suffix. Request has none.
var suffixes = map[Phase]string{
	PhaseRequest: "",
	PhaseAck:     "-ack",
	PhaseSuccess: "-success",
	PhaseFailure: "-failure",
}

var (
	// ErrMissingAction is returned for objects without a string
	// "action" field.
	ErrMissingAction = errors.New("protocol: missing action")

	// ErrForeignMessage is returned for actions outside the Web eID
	// namespace. Other scripts share the channel; their traffic is not
	// an error worth reporting, only something to skip.
	ErrForeignMessage = errors.New("protocol: action outside web-eid namespace")

	// ErrEmptyAction is returned when the namespace is followed by
	// nothing but a phase suffix.
	ErrEmptyAction = errors.New("protocol: empty action")
)

// EncodeWire returns the wire object for m. A structured error is
// placed under "error"; payload fields are copied at the top level. The
// "action" key always reflects m.Action and m.Phase, even if Fields
// happens to carry one.
func EncodeWire(m Message) map[string]any {
	wire := make(map[string]any, len(m.Fields)+2)
	for key, value := range m.Fields {
		wire[key] = value
	}
	if m.Error != nil {
		wire["error"] = m.Error
	}
	wire["action"] = m.WireAction()
	return wire
}

// DecodeWire parses a wire object. The phase is recognized by exact
// match of the action's tail against "-ack", "-success" and
// "-failure"; anything else is a request for the whole name.
func DecodeWire(wire map[string]any) (Message, error) {
	raw, ok := wire["action"].(string)
	if !ok {
		return Message{}, ErrMissingAction
	}
	name, ok := strings.CutPrefix(raw, Namespace)
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrForeignMessage, raw)
	}

	action, phase := splitPhase(name)
	if action == "" {
		return Message{}, fmt.Errorf("%w: %q", ErrEmptyAction, raw)
	}

	message := Message{
		Action: Action(action),
		Phase:  phase,
		Fields: make(map[string]any, len(wire)),
	}
	for key, value := range wire {
		switch key {
		case "action":
		case "error":
			if object, ok := value.(map[string]any); ok {
				message.Error = object
			} else {
				message.Fields[key] = value
			}
		default:
			message.Fields[key] = value
		}
	}
	return message, nil
}

func splitPhase(name string) (string, Phase) {
	for _, phase := range []Phase{PhaseAck, PhaseSuccess, PhaseFailure} {
		if base, ok := strings.CutSuffix(name, suffixes[phase]); ok {
			return base, phase
		}
	}
	return name, PhaseRequest
}

// MarshalJSON encodes m in wire form.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeWire(m))
}

// UnmarshalJSON decodes a wire object into m.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	decoded, err := DecodeWire(wire)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}
