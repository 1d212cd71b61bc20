// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so a test that would otherwise hang on a lost reply or
// an exchange that never settles fails with a message instead. They
// are the only place tests use real wall-clock timeouts; protocol
// deadlines under test always run on a fake clock.
//
// [SocketDir] returns a short directory under /tmp for Unix domain
// sockets, whose paths are limited to 108 bytes.
//
// [UniqueID] returns monotonically increasing identifiers for test
// payloads (nonces, challenge URLs) that must be distinguishable.
//
// All helpers call t.Fatalf on failure.
package testutil
