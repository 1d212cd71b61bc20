// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eiderr

import (
	"errors"
	"fmt"
	"maps"
)

// Error is a Web eID failure. Code is always one of the defined codes.
// Extra carries additional attributes: values copied from a wire error
// object, or context attached locally (for example the library version
// on status failures).
type Error struct {
	Code    Code
	Message string
	Extra   map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New returns an error with the given code. An empty message selects
// the code's default message. Unknown codes are replaced by
// CodeUnknownError so that Code stays within the closed set.
func New(code Code, message string) *Error {
	if !code.Known() {
		code = CodeUnknownError
	}
	if message == "" {
		message = code.DefaultMessage()
	}
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// With sets an extra attribute and returns e for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
	return e
}

// Get returns an extra attribute.
func (e *Error) Get(key string) (any, bool) {
	value, ok := e.Extra[key]
	return value, ok
}

// Name returns the conventional class name of the error's code.
func (e *Error) Name() string {
	return e.Code.Name()
}

// Wire returns the error as a wire object: the extra attributes plus
// "code", "message" and "name". Deserialize(e.Wire()) reproduces e,
// apart from "name" which is kept as an extra attribute.
func (e *Error) Wire() map[string]any {
	wire := make(map[string]any, len(e.Extra)+3)
	maps.Copy(wire, e.Extra)
	wire["code"] = string(e.Code)
	wire["message"] = e.Message
	wire["name"] = e.Name()
	return wire
}

// IsCode reports whether err is (or wraps) an *Error with the given
// code.
func IsCode(err error, code Code) bool {
	var eidErr *Error
	if errors.As(err, &eidErr) {
		return eidErr.Code == code
	}
	return false
}

// CodeOf returns the code of the *Error in err's chain, or the empty
// code if there is none.
func CodeOf(err error) Code {
	var eidErr *Error
	if errors.As(err, &eidErr) {
		return eidErr.Code
	}
	return ""
}
