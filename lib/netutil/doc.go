// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors for code that reads a
// peer's byte stream until it goes away.
package netutil
