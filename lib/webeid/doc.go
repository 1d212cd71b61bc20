// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package webeid is the caller-facing Web eID client: status,
// authentication and signing requests sent to the browser extension.
//
// A [Client] wraps an exchange engine. Each operation validates its
// options, yields once so a freshly attached peer can subscribe to the
// channel, then sends a single request whose reply deadline is
// assembled from the configured timeouts:
//
//	status       = extension handshake + native app handshake
//	authenticate = extension handshake + native app handshake
//	               + 2 * server request + user interaction
//	sign         = extension handshake + native app handshake
//	               + 2 * server request + 2 * user interaction
//
// Authenticate and Sign take per-call overrides for the server request
// and user interaction budgets.
//
// Status additionally checks that the extension and native application
// are not a major version behind this library ([version.Version]). A
// lagging peer fails the call with ERR_WEBEID_VERSION_MISMATCH even
// though the exchange itself succeeded.
//
// Every error returned by the operations is or wraps an *eiderr.Error, apart
// from context errors from an abandoned wait.
package webeid
