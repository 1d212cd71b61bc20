// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/webeid/cmd/webeid/cli"
	"github.com/bureau-foundation/webeid/lib/channel"
	"github.com/bureau-foundation/webeid/lib/config"
	"github.com/bureau-foundation/webeid/lib/netutil"
	"github.com/bureau-foundation/webeid/lib/webeid"
)

// connectionParams are the flags shared by every command that talks to
// an extension peer.
type connectionParams struct {
	ConfigPath  string
	SocketPath  string
	PeerCommand string
	Framing     string
	Origin      string
	Verbose     bool
}

func (p *connectionParams) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.ConfigPath, "config", "", "path to webeid.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&p.SocketPath, "socket", "", "Unix socket of the extension peer")
	flagSet.StringVar(&p.PeerCommand, "peer-command", "", "spawn the extension peer and speak to it on stdio")
	flagSet.StringVar(&p.Framing, "framing", "", "wire framing: native or cbor")
	flagSet.StringVar(&p.Origin, "origin", "", "origin claimed for requests (must be a secure context)")
	flagSet.BoolVarP(&p.Verbose, "verbose", "v", false, "log the exchange lifecycle to stderr")
}

// loadConfig resolves the configuration: --config, then WEBEID_CONFIG,
// then defaults. Flags override the loaded values.
func (p *connectionParams) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case p.ConfigPath != "":
		cfg, err = config.LoadFile(p.ConfigPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.ExpandVariables()
	}
	if err != nil {
		return nil, err
	}

	// An explicit transport flag selects that transport.
	if p.SocketPath != "" {
		cfg.Transport.SocketPath = p.SocketPath
		cfg.Transport.PeerCommand = ""
	}
	if p.PeerCommand != "" {
		cfg.Transport.PeerCommand = p.PeerCommand
	}
	if p.Framing != "" {
		cfg.Transport.Framing = p.Framing
	}
	if p.Origin != "" {
		cfg.Transport.Origin = p.Origin
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// session is a connected client and the transport underneath it.
type session struct {
	client  *webeid.Client
	stream  *channel.Stream
	cancel  context.CancelFunc
	runDone chan error
	peer    *exec.Cmd
	logger  *slog.Logger
}

// connect loads the configuration and connects a client to the
// configured peer. The caller must Close the session.
func (p *connectionParams) connect(ctx context.Context, command string) (*session, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(p.Verbose).With("command", command)
	return dial(ctx, cfg, logger)
}

func dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	framing, err := channel.ParseFraming(cfg.Transport.Framing)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	var reader io.Reader
	var writer io.Writer
	var peer *exec.Cmd

	if args := cfg.PeerArgs(); args != nil {
		peer = exec.CommandContext(runCtx, args[0], args[1:]...)
		peer.Stderr = os.Stderr
		stdin, err := peer.StdinPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("peer stdin: %w", err)
		}
		stdout, err := peer.StdoutPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("peer stdout: %w", err)
		}
		if err := peer.Start(); err != nil {
			cancel()
			return nil, fmt.Errorf("starting peer %q: %w", args[0], err)
		}
		logger.Debug("peer started", "command", strings.Join(args, " "), "pid", peer.Process.Pid)
		reader, writer = stdout, stdin
	} else {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "unix", cfg.Transport.SocketPath)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("connecting to extension peer at %s: %w", cfg.Transport.SocketPath, err)
		}
		logger.Debug("connected to peer", "socket", cfg.Transport.SocketPath)
		reader, writer = conn, conn
	}

	stream, err := channel.NewStream(channel.StreamConfig{
		Reader:  reader,
		Writer:  writer,
		Framing: framing,
		Origin:  cfg.Transport.Origin,
		Logger:  logger,
	})
	if err != nil {
		cancel()
		closeTransport(reader, writer, peer)
		return nil, err
	}

	client, err := webeid.New(webeid.Config{
		Channel:  stream,
		Timeouts: cfg.Timeouts,
		Logger:   logger,
	})
	if err != nil {
		cancel()
		_ = stream.Close()
		if peer != nil {
			_ = peer.Wait()
		}
		return nil, err
	}

	s := &session{
		client:  client,
		stream:  stream,
		cancel:  cancel,
		runDone: make(chan error, 1),
		peer:    peer,
		logger:  logger,
	}
	go func() {
		err := stream.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("extension peer stream failed", "error", err)
		}
		// Whatever is still in flight cannot complete once the peer
		// is gone.
		_ = client.Close()
		s.runDone <- err
	}()
	return s, nil
}

func closeTransport(reader io.Reader, writer io.Writer, peer *exec.Cmd) {
	if closer, ok := writer.(io.Closer); ok {
		_ = closer.Close()
	}
	if closer, ok := reader.(io.Closer); ok && any(reader) != any(writer) {
		_ = closer.Close()
	}
	if peer != nil {
		_ = peer.Wait()
	}
}

// Close settles anything in flight, disconnects and reaps a spawned
// peer.
func (s *session) Close() error {
	_ = s.client.Close()
	s.cancel()
	err := s.stream.Close()
	if netutil.IsExpectedCloseError(err) {
		// Run already closed the reader on cancellation.
		err = nil
	}
	<-s.runDone
	if s.peer != nil {
		// The peer sees EOF on stdin; a kill from the cancelled
		// context is the expected way for it to stop.
		if waitErr := s.peer.Wait(); waitErr != nil {
			s.logger.Debug("peer exited", "error", waitErr)
		}
	}
	return err
}
