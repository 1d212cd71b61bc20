// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

// State is an exchange's lifecycle position.
type State uint8

const (
	// StatePending: request posted, no acknowledgement yet. Both
	// deadlines are armed.
	StatePending State = iota

	// StateAcked: the extension acknowledged. Only the reply deadline
	// remains armed.
	StateAcked

	// StateSettled: the result is final and the exchange is no longer
	// registered.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAcked:
		return "acked"
	case StateSettled:
		return "settled"
	default:
		return "invalid"
	}
}
