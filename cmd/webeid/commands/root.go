// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"io"

	"github.com/bureau-foundation/webeid/cmd/webeid/cli"
)

// Output is where commands write results and reports.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Root returns the webeid command tree writing to output.
func Root(output Output) *cli.Command {
	return &cli.Command{
		Name:    "webeid",
		Summary: "Web eID protocol client",
		Description: `webeid talks to a Web eID browser extension peer over a Unix socket
or a spawned process. It checks component versions, authenticates the
user against a relying party, and signs documents.

Configuration is read from --config, or the file named by WEBEID_CONFIG,
or built-in defaults. Transport flags override the configuration.`,
		HelpOutput: output.Stderr,
		Subcommands: []*cli.Command{
			statusCommand(output),
			authenticateCommand(output),
			signCommand(output),
			versionCommand(output),
		},
	}
}
