// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the webeid CLI.
//
// The central type is [Command], a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// The tree is assembled in cmd/webeid/commands and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing and
// help output with examples.
//
// Unknown subcommands and flags get a "did you mean" suggestion when
// the edit distance to a known name is at most 3.
//
// [NewCommandLogger] picks a text or JSON slog handler depending on
// whether stderr is a terminal. [JSONOutput] adds a --json flag to a
// command's parameters. [ExitError] lets a command exit non-zero after
// writing its own report.
package cli
