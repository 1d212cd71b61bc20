// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package semver parses and compares semantic version strings of the
// form MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD].
//
// Parsing is strict: the grammar is the one published at semver.org
// (no leading zeros in numeric identifiers, no "v" prefix, no missing
// components). A string that does not match is rejected with an
// ERR_WEBEID_VERSION_INVALID error from [eiderr]; it is never coerced
// into a nearby valid version.
//
// [Compare] reports a three-way sign per numeric component rather than
// a single ordering, because callers gate on individual components
// (compatibility only looks at Major).
package semver
