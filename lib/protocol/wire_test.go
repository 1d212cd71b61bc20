// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeWirePhases(t *testing.T) {
	tests := []struct {
		action string
		base   Action
		phase  Phase
	}{
		{"web-eid:status", ActionStatus, PhaseRequest},
		{"web-eid:status-ack", ActionStatus, PhaseAck},
		{"web-eid:sign-success", ActionSign, PhaseSuccess},
		{"web-eid:authenticate-failure", ActionAuthenticate, PhaseFailure},
		// Only the tail counts: a suffix in the middle is part of the name.
		{"web-eid:ack-status", Action("ack-status"), PhaseRequest},
		{"web-eid:sign-success-ack", Action("sign-success"), PhaseAck},
		// Suffix must be dash-separated.
		{"web-eid:signsuccess", Action("signsuccess"), PhaseRequest},
	}
	for _, test := range tests {
		t.Run(test.action, func(t *testing.T) {
			message, err := DecodeWire(map[string]any{"action": test.action})
			if err != nil {
				t.Fatalf("DecodeWire: %v", err)
			}
			if message.Action != test.base || message.Phase != test.phase {
				t.Errorf("DecodeWire(%q) = (%q, %s), want (%q, %s)",
					test.action, message.Action, message.Phase, test.base, test.phase)
			}
		})
	}
}

func TestDecodeWireRejects(t *testing.T) {
	tests := []struct {
		name string
		wire map[string]any
		want error
	}{
		{"no action", map[string]any{"foo": 1}, ErrMissingAction},
		{"non-string action", map[string]any{"action": 7}, ErrMissingAction},
		{"foreign namespace", map[string]any{"action": "other:status"}, ErrForeignMessage},
		{"bare action", map[string]any{"action": "status"}, ErrForeignMessage},
		{"empty", map[string]any{"action": "web-eid:"}, ErrEmptyAction},
		{"suffix only", map[string]any{"action": "web-eid:-ack"}, ErrEmptyAction},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeWire(test.wire)
			if !errors.Is(err, test.want) {
				t.Errorf("DecodeWire(%v) error = %v, want %v", test.wire, err, test.want)
			}
		})
	}
}

func TestDecodeWireSplitsErrorObject(t *testing.T) {
	message, err := DecodeWire(map[string]any{
		"action": "web-eid:sign-failure",
		"error":  map[string]any{"code": "ERR_WEBEID_USER_CANCELLED"},
		"extra":  true,
	})
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if message.Error["code"] != "ERR_WEBEID_USER_CANCELLED" {
		t.Errorf("Error = %v", message.Error)
	}
	if _, ok := message.Fields["action"]; ok {
		t.Error("action leaked into Fields")
	}
	if _, ok := message.Fields["error"]; ok {
		t.Error("structured error leaked into Fields")
	}
	if message.Fields["extra"] != true {
		t.Errorf("Fields = %v", message.Fields)
	}

	// A non-object error stays a plain field.
	message, err = DecodeWire(map[string]any{"action": "web-eid:sign-failure", "error": "boom"})
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if message.Error != nil || message.Fields["error"] != "boom" {
		t.Errorf("message = %+v", message)
	}
}

func TestEncodeWire(t *testing.T) {
	request := NewRequest(ActionAuthenticate, map[string]any{
		"getAuthChallengeUrl": "https://example.org/challenge",
		"action":              "web-eid:forged",
	})
	wire := EncodeWire(request)
	if wire["action"] != "web-eid:authenticate" {
		t.Errorf("action = %v", wire["action"])
	}
	if wire["getAuthChallengeUrl"] != "https://example.org/challenge" {
		t.Errorf("payload field lost: %v", wire)
	}

	failure := request.Fail(map[string]any{"code": "ERR_WEBEID_NATIVE_FATAL"})
	wire = EncodeWire(failure)
	if wire["action"] != "web-eid:authenticate-failure" {
		t.Errorf("action = %v", wire["action"])
	}
	errorObject, ok := wire["error"].(map[string]any)
	if !ok || errorObject["code"] != "ERR_WEBEID_NATIVE_FATAL" {
		t.Errorf("error = %v", wire["error"])
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := Message{
		Action: ActionStatus,
		Phase:  PhaseSuccess,
		Fields: map[string]any{"extension": "0.9.0", "nativeApp": "0.9.0"},
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Action != original.Action || decoded.Phase != original.Phase {
		t.Errorf("decoded = %+v", decoded)
	}
	if version, _ := decoded.String("extension"); version != "0.9.0" {
		t.Errorf("extension = %q", version)
	}
}

func TestRequestCopiesFields(t *testing.T) {
	fields := map[string]any{"a": 1}
	request := NewRequest(ActionSign, fields)
	fields["a"] = 2
	if request.Fields["a"] != 1 {
		t.Error("NewRequest aliased the caller's map")
	}
}

func TestPhaseAndActionHelpers(t *testing.T) {
	if PhaseRequest.Terminal() || PhaseAck.Terminal() {
		t.Error("non-terminal phase reported terminal")
	}
	if !PhaseSuccess.Terminal() || !PhaseFailure.Terminal() {
		t.Error("terminal phase reported non-terminal")
	}
	if Phase(9).String() != "invalid" {
		t.Errorf("Phase(9) = %s", Phase(9))
	}
	if !ActionSign.Known() || Action("reboot").Known() {
		t.Error("Known mismatch")
	}
}
