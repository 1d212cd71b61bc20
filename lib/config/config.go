// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/webeid/lib/channel"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "WEBEID_CONFIG"

// Config is the master configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Timeouts are the protocol deadlines.
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Transport describes how the CLI reaches the extension peer.
	Transport TransportConfig `yaml:"transport"`

	// Environment-specific overrides.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains environment-specific overrides. Zero fields
// leave the base value unchanged.
type ConfigOverrides struct {
	Timeouts  *TimeoutsConfig  `yaml:"timeouts,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
}

// TimeoutsConfig holds the deadlines the client assembles reply
// budgets from.
type TimeoutsConfig struct {
	// ExtensionHandshake is how long the extension has to acknowledge
	// a request. Default: 1s.
	ExtensionHandshake time.Duration `yaml:"extension_handshake"`

	// NativeAppHandshake is how long the native application has to
	// answer the extension. Default: 5s.
	NativeAppHandshake time.Duration `yaml:"native_app_handshake"`

	// UserInteraction is the default budget for one user prompt
	// (PIN entry, certificate choice). Default: 2m.
	UserInteraction time.Duration `yaml:"user_interaction"`

	// ServerRequest is the default budget for one relying-party
	// server round trip. Default: 20s.
	ServerRequest time.Duration `yaml:"server_request"`
}

// TransportConfig selects and configures the channel to the peer.
type TransportConfig struct {
	// SocketPath is a Unix socket where an extension bridge listens.
	// Used when PeerCommand is empty.
	SocketPath string `yaml:"socket_path"`

	// PeerCommand, when set, is spawned and spoken to over its stdio.
	// Split on whitespace; no shell quoting.
	PeerCommand string `yaml:"peer_command"`

	// Framing is "native" or "cbor". Default: native.
	Framing string `yaml:"framing"`

	// Origin is the origin the client claims for its requests. It must
	// be a secure context. Default: https://localhost.
	Origin string `yaml:"origin"`
}

// Default returns the default configuration, used as the base before a
// config file is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Timeouts: TimeoutsConfig{
			ExtensionHandshake: time.Second,
			NativeAppHandshake: 5 * time.Second,
			UserInteraction:    2 * time.Minute,
			ServerRequest:      20 * time.Second,
		},
		Transport: TransportConfig{
			SocketPath: "${XDG_RUNTIME_DIR:-/tmp}/webeid.sock",
			Framing:    string(channel.FramingNative),
			Origin:     "https://localhost",
		},
	}
}

// Load loads configuration from the file named by WEBEID_CONFIG. It
// fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your webeid.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults, applies
// environment overrides and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.ExpandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Timeouts != nil {
		overrideDuration(&c.Timeouts.ExtensionHandshake, overrides.Timeouts.ExtensionHandshake)
		overrideDuration(&c.Timeouts.NativeAppHandshake, overrides.Timeouts.NativeAppHandshake)
		overrideDuration(&c.Timeouts.UserInteraction, overrides.Timeouts.UserInteraction)
		overrideDuration(&c.Timeouts.ServerRequest, overrides.Timeouts.ServerRequest)
	}

	if overrides.Transport != nil {
		overrideString(&c.Transport.SocketPath, overrides.Transport.SocketPath)
		overrideString(&c.Transport.PeerCommand, overrides.Transport.PeerCommand)
		overrideString(&c.Transport.Framing, overrides.Transport.Framing)
		overrideString(&c.Transport.Origin, overrides.Transport.Origin)
	}
}

func overrideDuration(target *time.Duration, value time.Duration) {
	if value != 0 {
		*target = value
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// ExpandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. LoadFile calls it; callers building a Config from Default
// call it themselves.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Transport.SocketPath = expandVars(c.Transport.SocketPath, vars)
	c.Transport.PeerCommand = expandVars(c.Transport.PeerCommand, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	for _, timeout := range []struct {
		name  string
		value time.Duration
	}{
		{"timeouts.extension_handshake", c.Timeouts.ExtensionHandshake},
		{"timeouts.native_app_handshake", c.Timeouts.NativeAppHandshake},
		{"timeouts.user_interaction", c.Timeouts.UserInteraction},
		{"timeouts.server_request", c.Timeouts.ServerRequest},
	} {
		if timeout.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", timeout.name, timeout.value))
		}
	}

	if c.Transport.SocketPath == "" && strings.TrimSpace(c.Transport.PeerCommand) == "" {
		errs = append(errs, errors.New("transport.socket_path or transport.peer_command is required"))
	}
	if _, err := channel.ParseFraming(c.Transport.Framing); err != nil {
		errs = append(errs, fmt.Errorf("transport.framing: %w", err))
	}
	if !channel.IsSecureOrigin(c.Transport.Origin) {
		errs = append(errs, fmt.Errorf("transport.origin %q is not a secure context", c.Transport.Origin))
	}

	return errors.Join(errs...)
}

// PeerArgs splits PeerCommand into argv. Nil when no peer command is
// configured.
func (c *Config) PeerArgs() []string {
	args := strings.Fields(c.Transport.PeerCommand)
	if len(args) == 0 {
		return nil
	}
	return args
}
