// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal end of a peer
// connection: EOF, a closed connection or pipe, broken pipe, or
// connection reset. A peer that exits without a half-close produces
// ECONNRESET or EPIPE on our side instead of EOF, and closing our own
// end to unblock a read produces net.ErrClosed (sockets) or
// os.ErrClosed (pipes). None of these should be reported as failures.
//
// io.ErrUnexpectedEOF is not included: a stream that ends inside a
// frame is truncated, not closed.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
