// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eiderr

// VersionMismatch returns a CodeVersionMismatch error for a status
// check where at least one peer is a major version behind the library.
// The three version strings and the per-peer update flags are attached
// as the extra attributes "library", "extension", "nativeApp" and
// "requiresUpdate" (a map with boolean "extension" and "nativeApp").
func VersionMismatch(library, extension, nativeApp string, extensionUpdate, nativeAppUpdate bool) *Error {
	var message string
	switch {
	case extensionUpdate && nativeAppUpdate:
		message = "Update required for Web-eID extension and native app"
	case extensionUpdate:
		message = "Update required for Web-eID extension"
	case nativeAppUpdate:
		message = "Update required for Web-eID native app"
	}
	return New(CodeVersionMismatch, message).
		With("library", library).
		With("extension", extension).
		With("nativeApp", nativeApp).
		With("requiresUpdate", map[string]any{
			"extension": extensionUpdate,
			"nativeApp": nativeAppUpdate,
		})
}
