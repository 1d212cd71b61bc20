// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compat decides whether the extension or native application
// must be updated to work with this library.
//
// Only the major version gates compatibility. A peer whose major
// version is behind the library's requires an update; minor and patch
// differences, and peers that are ahead, are accepted.
package compat

import (
	"fmt"

	"github.com/bureau-foundation/webeid/lib/semver"
)

// Versions holds the version strings of the three parties. JSON tags
// match the field names the extension reports in a status reply.
type Versions struct {
	Library   string `json:"library"`
	Extension string `json:"extension"`
	NativeApp string `json:"nativeApp"`
}

// Result reports which peers require an update.
type Result struct {
	Extension bool `json:"extension"`
	NativeApp bool `json:"nativeApp"`
}

// Any reports whether at least one peer requires an update.
func (r Result) Any() bool {
	return r.Extension || r.NativeApp
}

// Check parses all three versions and compares each peer against the
// library. A parse failure of any one version aborts the whole check
// with an ERR_WEBEID_VERSION_INVALID error; no partial result is
// returned.
func Check(versions Versions) (Result, error) {
	library, err := semver.Parse(versions.Library)
	if err != nil {
		return Result{}, fmt.Errorf("library version: %w", err)
	}
	extension, err := semver.Parse(versions.Extension)
	if err != nil {
		return Result{}, fmt.Errorf("extension version: %w", err)
	}
	nativeApp, err := semver.Parse(versions.NativeApp)
	if err != nil {
		return Result{}, fmt.Errorf("native app version: %w", err)
	}

	return Result{
		Extension: semver.Compare(extension, library).Major == semver.Older,
		NativeApp: semver.Compare(nativeApp, library).Major == semver.Older,
	}, nil
}

// versionProperties are the keys a status reply or version-mismatch
// error uses for version strings.
var versionProperties = []string{"library", "extension", "nativeApp"}

// HasVersionProperties reports whether object carries any of the
// "library", "extension" or "nativeApp" keys. The values are not
// checked for validity.
func HasVersionProperties(object map[string]any) bool {
	for _, key := range versionProperties {
		if _, ok := object[key]; ok {
			return true
		}
	}
	return false
}
