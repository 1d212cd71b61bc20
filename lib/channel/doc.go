// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel carries protocol messages between the client and the
// extension.
//
// A [Channel] is a broadcast medium, not a point-to-point pipe: every
// subscriber sees every message, possibly including the ones its own
// side posted, and other traffic may share the medium. Receivers filter by action
// and phase. This mirrors the window message bus a page shares with an
// extension's content script.
//
// Two implementations exist:
//
//   - [Bus] is in-process. Delivery happens on a dedicated goroutine in
//     post order, so a subscriber may post from inside its callback.
//   - [Stream] frames messages over an io.Reader/io.Writer pair (a Unix
//     socket, or the stdio of a spawned peer). [FramingNative] is the
//     browser native-messaging format: a little-endian uint32 length
//     followed by a JSON object. [FramingCBOR] writes self-delimiting
//     CBOR items via lib/codec.
//
// Every channel reports the origin it serves. [IsSecureOrigin] decides
// whether that origin counts as a secure context; the exchange engine
// refuses to send anything over a channel that does not.
package channel
