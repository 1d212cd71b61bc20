// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version holds build information for the webeid binaries and
// the library version reported to the extension.
//
// Four variables are injected at build time via -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version of this library
//
// [Version] is not only cosmetic. It is the "library" side of the
// compatibility check run on every status exchange: an extension or
// native application whose major version is below it must be updated.
// It must therefore always be a valid SemVer string.
package version
