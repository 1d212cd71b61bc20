// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the messages exchanged between the client
// and the Web eID browser extension.
//
// Every exchange is identified by an [Action] (status, authenticate,
// sign) and progresses through phases: the client posts a request, the
// extension answers with an acknowledgement, then with exactly one
// terminal success or failure. A [Message] carries the action and the
// [Phase] as separate fields, so nothing outside this package ever
// inspects action strings.
//
// On the wire the phase is folded into the action string: actions are
// namespaced "web-eid:" and non-request phases append "-ack",
// "-success" or "-failure" (for example "web-eid:sign-success").
// [EncodeWire] and [DecodeWire] are the only places that convert
// between the two forms. Messages whose action lacks the namespace are
// not Web eID traffic and fail to decode with [ErrForeignMessage];
// channels drop them.
package protocol
