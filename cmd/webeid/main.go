// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/webeid/cmd/webeid/commands"
	"github.com/bureau-foundation/webeid/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that render their own report return an error with
		// the desired exit code. Don't print a redundant "error:" line
		// for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := commands.Root(commands.Output{Stdout: os.Stdout, Stderr: os.Stderr})
	return root.Execute(ctx, os.Args[1:])
}
