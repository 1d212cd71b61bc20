// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the webeid
// client and CLI.
//
// Configuration is loaded from a single file named by either the
// WEBEID_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search. Values absent
// from the file keep the [Default] values, which match the protocol's
// standard deadlines.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${XDG_RUNTIME_DIR} and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Durations are Go duration strings ("1s", "2m").
package config
