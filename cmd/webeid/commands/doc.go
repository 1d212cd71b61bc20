// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the webeid command tree.
//
// Every operation command connects to an extension peer (a Unix socket
// or a spawned process speaking the framed protocol on stdio), builds a
// [webeid.Client] over a [channel.Stream], runs one request and renders
// the result. Web eID failures are rendered with their code and extra
// attributes and exit with status 1; other failures propagate to main.
package commands
