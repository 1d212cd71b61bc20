// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Webeid is the command-line Web eID client. It connects to an
// extension peer over a Unix socket or a spawned process and runs
// status, authenticate and sign requests.
//
// Usage:
//
//	webeid status --socket /run/user/1000/webeid.sock
//	webeid authenticate --challenge-url URL --token-url URL
//	webeid sign --prepare-url URL --finalize-url URL
//	webeid version
package main
