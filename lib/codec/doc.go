// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the shared CBOR configuration used for the
// binary framing of protocol messages between the client and a
// local peer.
//
// JSON stays the format for the browser-facing wire (the native
// messaging framing and CLI output). CBOR is the alternative framing
// for local stream transports, where a self-delimiting encoding
// removes the need for a length prefix. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same message always
// produces the same bytes.
//
// Buffer-oriented:
//
//	data, err := codec.Marshal(frame)
//	err = codec.Unmarshal(data, &frame)
//
// Stream-oriented:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that are only ever CBOR carry `cbor` struct tags. Types that
// are also rendered as JSON carry `json` tags only; fxamacker/cbor
// falls back to them when `cbor` tags are absent.
package codec
