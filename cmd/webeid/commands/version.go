// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/webeid/cmd/webeid/cli"
	"github.com/bureau-foundation/webeid/lib/version"
)

func versionCommand(output Output) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return version.Print(output.Stdout, "webeid")
		},
	}
}
