// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webeid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/bureau-foundation/webeid/lib/channel"
	"github.com/bureau-foundation/webeid/lib/clock"
	"github.com/bureau-foundation/webeid/lib/compat"
	"github.com/bureau-foundation/webeid/lib/config"
	"github.com/bureau-foundation/webeid/lib/eiderr"
	"github.com/bureau-foundation/webeid/lib/exchange"
	"github.com/bureau-foundation/webeid/lib/protocol"
	"github.com/bureau-foundation/webeid/lib/semver"
	"github.com/bureau-foundation/webeid/lib/version"
)

// Config configures a Client.
type Config struct {
	// Channel reaches the extension. Required.
	Channel channel.Channel

	// Clock drives the deadlines. Defaults to clock.Real().
	Clock clock.Clock

	// Timeouts are the protocol deadlines. Zero fields take the
	// values from config.Default.
	Timeouts config.TimeoutsConfig

	// LibraryVersion is compared against the peers' versions on
	// status. Defaults to version.Version.
	LibraryVersion string

	// Logger receives debug output from the client and its engine.
	// Nil discards.
	Logger *slog.Logger
}

// Client issues Web eID operations over a channel. Operations for
// different actions may run concurrently; a second call for an action
// that is still in flight fails with ERR_WEBEID_ACTION_PENDING.
type Client struct {
	engine   *exchange.Engine
	clock    clock.Clock
	timeouts config.TimeoutsConfig
	library  string
	logger   *slog.Logger
}

// StatusResult reports the versions of all three components.
type StatusResult struct {
	Library   string `json:"library"`
	Extension string `json:"extension"`
	NativeApp string `json:"nativeApp"`
}

// New returns a Client subscribed to config.Channel.
func New(cfg Config) (*Client, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.LibraryVersion == "" {
		cfg.LibraryVersion = version.Version
	}
	if _, err := semver.Parse(cfg.LibraryVersion); err != nil {
		return nil, fmt.Errorf("library version: %w", err)
	}

	defaults := config.Default().Timeouts
	timeouts := cfg.Timeouts
	fillDuration(&timeouts.ExtensionHandshake, defaults.ExtensionHandshake)
	fillDuration(&timeouts.NativeAppHandshake, defaults.NativeAppHandshake)
	fillDuration(&timeouts.UserInteraction, defaults.UserInteraction)
	fillDuration(&timeouts.ServerRequest, defaults.ServerRequest)

	engine, err := exchange.New(exchange.Config{
		Channel:          cfg.Channel,
		Clock:            cfg.Clock,
		HandshakeTimeout: timeouts.ExtensionHandshake,
		Logger:           cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		engine:   engine,
		clock:    cfg.Clock,
		timeouts: timeouts,
		library:  cfg.LibraryVersion,
		logger:   cfg.Logger,
	}, nil
}

func fillDuration(target *time.Duration, fallback time.Duration) {
	if *target <= 0 {
		*target = fallback
	}
}

// Close settles anything still in flight with
// ERR_WEBEID_EXTENSION_UNAVAILABLE and detaches from the channel.
func (c *Client) Close() error {
	return c.engine.Close()
}

// Status asks the extension for its own and the native application's
// versions. Any failure carries the library version as the "library"
// extra attribute.
func (c *Client) Status(ctx context.Context) (StatusResult, error) {
	if err := c.yield(ctx); err != nil {
		return StatusResult{}, err
	}

	reply, err := c.roundTrip(ctx, protocol.NewRequest(protocol.ActionStatus, nil), c.StatusTimeout())
	if err != nil {
		var eidErr *eiderr.Error
		if errors.As(err, &eidErr) {
			eidErr.With("library", c.library)
		}
		return StatusResult{}, err
	}

	result := StatusResult{Library: c.library}
	result.Extension, _ = reply.String("extension")
	result.NativeApp, _ = reply.String("nativeApp")

	requiresUpdate, err := compat.Check(compat.Versions{
		Library:   result.Library,
		Extension: result.Extension,
		NativeApp: result.NativeApp,
	})
	if err != nil {
		return StatusResult{}, err
	}
	if requiresUpdate.Any() {
		return StatusResult{}, eiderr.VersionMismatch(result.Library, result.Extension, result.NativeApp,
			requiresUpdate.Extension, requiresUpdate.NativeApp)
	}
	return result, nil
}

// Authenticate asks the extension to authenticate the user against the
// relying party and returns the "response" field of the reply.
func (c *Client) Authenticate(ctx context.Context, options AuthenticateOptions) (any, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}
	if err := c.yield(ctx); err != nil {
		return nil, err
	}

	request := protocol.NewRequest(protocol.ActionAuthenticate, options.fields())
	reply, err := c.roundTrip(ctx, request, c.AuthenticateTimeout(options.CommonOptions))
	if err != nil {
		return nil, err
	}
	response, _ := reply.Field("response")
	return response, nil
}

// Sign asks the extension to sign a document hash obtained from the
// relying party and returns the "response" field of the reply.
func (c *Client) Sign(ctx context.Context, options SignOptions) (any, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}
	if err := c.yield(ctx); err != nil {
		return nil, err
	}

	request := protocol.NewRequest(protocol.ActionSign, options.fields())
	reply, err := c.roundTrip(ctx, request, c.SignTimeout(options.CommonOptions))
	if err != nil {
		return nil, err
	}
	response, _ := reply.Field("response")
	return response, nil
}

// StatusTimeout is the reply budget of a status request.
func (c *Client) StatusTimeout() time.Duration {
	return c.timeouts.ExtensionHandshake + c.timeouts.NativeAppHandshake
}

// AuthenticateTimeout is the reply budget of an authenticate request
// with the given overrides.
func (c *Client) AuthenticateTimeout(options CommonOptions) time.Duration {
	server, user := c.budgets(options)
	return c.StatusTimeout() + 2*server + user
}

// SignTimeout is the reply budget of a sign request with the given
// overrides.
func (c *Client) SignTimeout(options CommonOptions) time.Duration {
	server, user := c.budgets(options)
	return c.StatusTimeout() + 2*server + 2*user
}

func (c *Client) budgets(options CommonOptions) (server, user time.Duration) {
	server, user = c.timeouts.ServerRequest, c.timeouts.UserInteraction
	if options.ServerRequestTimeout > 0 {
		server = options.ServerRequestTimeout
	}
	if options.UserInteractionTimeout > 0 {
		user = options.UserInteractionTimeout
	}
	return server, user
}

func (c *Client) roundTrip(ctx context.Context, request protocol.Message, timeout time.Duration) (protocol.Message, error) {
	c.logger.Debug("webeid request", "action", string(request.Action), "timeout", timeout)
	pending, err := c.engine.Send(ctx, request, timeout)
	if err != nil {
		return protocol.Message{}, err
	}
	return pending.Wait(ctx)
}

// yield gives the scheduler one turn before a send, so a peer that is
// still attaching to the channel gets to subscribe before the request
// is broadcast.
func (c *Client) yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	select {
	case <-c.clock.After(0):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
