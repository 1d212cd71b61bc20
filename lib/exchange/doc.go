// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package exchange runs the request/acknowledge/reply protocol between
// the client and the extension.
//
// An [Engine] owns a [Registry] of in-flight exchanges, at most one per
// action. [Engine.Send] posts a request and returns an [Exchange]
// whose result arrives through [Exchange.Wait]. Two deadlines guard
// every exchange:
//
//   - The handshake deadline (Config.HandshakeTimeout, 1s by default)
//     expects an acknowledgement. The extension's content script sends
//     it as soon as it sees the request, so missing it means no
//     extension is listening: the exchange fails with
//     ERR_WEBEID_EXTENSION_UNAVAILABLE.
//   - The reply deadline is chosen by the caller per request and
//     covers the whole operation including user interaction. Expiry
//     fails the exchange with ERR_WEBEID_ACTION_TIMEOUT.
//
// An acknowledgement disarms only the handshake deadline. A success or
// failure reply settles the exchange. Every exchange settles exactly
// once: whichever of reply, deadline, post failure or Close gets there
// first removes it from the registry, and every later event for it is
// ignored.
//
// Exchange lifecycle:
//
//	Pending --ack--> Acked
//	Pending|Acked --success|failure|deadline|Close--> Settled
//
// The engine's mutex guards the registry and every exchange's state.
// Timer callbacks and channel deliveries both acquire it, so their
// order is whatever order they reach the lock in.
package exchange
