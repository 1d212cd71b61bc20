// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eiderr defines the closed set of Web eID error codes and the
// single error type that carries them.
//
// Every failure the client surfaces (locally detected precondition
// violations, protocol timeouts, and errors reported by the extension
// or native application) is an [*Error] whose [Code] is one of the
// ERR_WEBEID_* constants. Callers branch on the code, never on the
// message text:
//
//	var eidErr *eiderr.Error
//	if errors.As(err, &eidErr) && eidErr.Code == eiderr.CodeUserCancelled {
//	    ...
//	}
//
// or, more compactly, [IsCode].
//
// # Wire reconstruction
//
// The extension reports failures as an object with at least a "code"
// field. [Deserialize] maps a recognized code to its kind and falls
// back to [CodeUnknownError] for anything else; it never fails. Fields
// other than "code" and "message" land in [Error].Extra verbatim, so
// peer-supplied context such as version strings survives the trip
// without the error type growing ad-hoc fields.
//
// This package depends on no other webeid packages.
package eiderr
