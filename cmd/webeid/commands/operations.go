// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/webeid/cmd/webeid/cli"
	"github.com/bureau-foundation/webeid/lib/webeid"
)

type statusParams struct {
	connectionParams
	cli.JSONOutput
}

func statusCommand(output Output) *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Report and check component versions",
		Description: `Ask the extension for its version and the native application's version,
and check both against the library version. A peer with an older major
version fails with ERR_WEBEID_VERSION_MISMATCH, naming the component
that requires an update.`,
		Usage: "webeid status [flags]",
		Examples: []cli.Example{
			{
				Description: "Check versions through a local socket",
				Command:     "webeid status --socket /run/user/1000/webeid.sock",
			},
			{
				Description: "Spawn the peer and print JSON",
				Command:     "webeid status --peer-command 'webeid-peer --stdio' --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			params.addFlags(flagSet)
			params.AddJSONFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			connection, err := params.connect(ctx, "status")
			if err != nil {
				return err
			}
			defer connection.Close()

			result, err := connection.client.Status(ctx)
			if err != nil {
				return report(output, params.OutputJSON, err)
			}
			if done, err := params.EmitJSON(output.Stdout, result); done {
				return err
			}
			return renderStatus(output.Stdout, result)
		},
	}
}

// requestParams are the flags shared by authenticate and sign.
type requestParams struct {
	connectionParams
	cli.JSONOutput
	OptionsPath   string
	Headers       map[string]string
	UserTimeout   time.Duration
	ServerTimeout time.Duration
}

func (p *requestParams) addFlags(flagSet *pflag.FlagSet) {
	p.connectionParams.addFlags(flagSet)
	p.AddJSONFlag(flagSet)
	flagSet.StringVar(&p.OptionsPath, "options", "", "JSON or JSONC file with request options")
	flagSet.StringToStringVar(&p.Headers, "header", nil, "header the extension adds to server requests (name=value, repeatable)")
	flagSet.DurationVar(&p.UserTimeout, "user-timeout", 0, "budget for one user prompt (default from config)")
	flagSet.DurationVar(&p.ServerTimeout, "server-timeout", 0, "budget for one server round trip (default from config)")
}

// readOptions decodes the --options file. Comments and trailing commas
// are allowed. No file yields an empty object.
func (p *requestParams) readOptions() (map[string]any, error) {
	if p.OptionsPath == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(p.OptionsPath)
	if err != nil {
		return nil, fmt.Errorf("reading options: %w", err)
	}
	var object map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &object); err != nil {
		return nil, fmt.Errorf("parsing options %s: %w", p.OptionsPath, err)
	}
	if object == nil {
		return nil, fmt.Errorf("options %s: expected a JSON object", p.OptionsPath)
	}
	return object, nil
}

// applyCommon lets flags override the options file.
func (p *requestParams) applyCommon(common *webeid.CommonOptions) {
	if len(p.Headers) > 0 {
		if common.Headers == nil {
			common.Headers = make(map[string]string, len(p.Headers))
		}
		for name, value := range p.Headers {
			common.Headers[name] = value
		}
	}
	if p.UserTimeout > 0 {
		common.UserInteractionTimeout = p.UserTimeout
	}
	if p.ServerTimeout > 0 {
		common.ServerRequestTimeout = p.ServerTimeout
	}
}

type authenticateParams struct {
	requestParams
	ChallengeURL string
	TokenURL     string
}

func authenticateCommand(output Output) *cli.Command {
	var params authenticateParams
	return &cli.Command{
		Name:    "authenticate",
		Summary: "Authenticate the user with their ID card",
		Description: `Ask the extension to authenticate the user against a relying party. The
extension fetches a challenge nonce from --challenge-url, has the user
sign it with the authentication certificate, and posts the token to
--token-url. The token response is printed as JSON.`,
		Usage: "webeid authenticate --challenge-url URL --token-url URL [flags]",
		Examples: []cli.Example{
			{
				Description: "Authenticate against a relying party",
				Command:     "webeid authenticate --challenge-url https://rp.example/auth/challenge --token-url https://rp.example/auth/login",
			},
			{
				Description: "Read URLs and headers from a file",
				Command:     "webeid authenticate --options auth.jsonc --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("authenticate", pflag.ContinueOnError)
			params.requestParams.addFlags(flagSet)
			flagSet.StringVar(&params.ChallengeURL, "challenge-url", "", "URL the extension fetches the challenge nonce from")
			flagSet.StringVar(&params.TokenURL, "token-url", "", "URL the extension posts the authentication token to")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			object, err := params.readOptions()
			if err != nil {
				return err
			}
			options, err := webeid.ParseAuthenticateOptions(object)
			if err != nil {
				return err
			}
			if params.ChallengeURL != "" {
				options.GetAuthChallengeURL = params.ChallengeURL
			}
			if params.TokenURL != "" {
				options.PostAuthTokenURL = params.TokenURL
			}
			params.applyCommon(&options.CommonOptions)

			connection, err := params.connect(ctx, "authenticate")
			if err != nil {
				return err
			}
			defer connection.Close()

			response, err := connection.client.Authenticate(ctx, options)
			if err != nil {
				return report(output, params.OutputJSON, err)
			}
			if done, err := params.EmitJSON(output.Stdout, response); done {
				return err
			}
			return renderResponse(output.Stdout, "authenticated", response)
		},
	}
}

type signParams struct {
	requestParams
	PrepareURL  string
	FinalizeURL string
}

func signCommand(output Output) *cli.Command {
	var params signParams
	return &cli.Command{
		Name:    "sign",
		Summary: "Sign a document with the user's ID card",
		Description: `Ask the extension to sign a document. The extension posts the signing
certificate to --prepare-url, receives the hash to sign, has the user
sign it, and posts the signature to --finalize-url. The final server
response is printed as JSON.`,
		Usage: "webeid sign --prepare-url URL --finalize-url URL [flags]",
		Examples: []cli.Example{
			{
				Description: "Sign with a longer PIN entry budget",
				Command:     "webeid sign --prepare-url https://rp.example/sign/prepare --finalize-url https://rp.example/sign/finalize --user-timeout 5m",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("sign", pflag.ContinueOnError)
			params.requestParams.addFlags(flagSet)
			flagSet.StringVar(&params.PrepareURL, "prepare-url", "", "URL that returns the hash to sign for the certificate")
			flagSet.StringVar(&params.FinalizeURL, "finalize-url", "", "URL the extension posts the signature to")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			object, err := params.readOptions()
			if err != nil {
				return err
			}
			options, err := webeid.ParseSignOptions(object)
			if err != nil {
				return err
			}
			if params.PrepareURL != "" {
				options.PostPrepareSigningURL = params.PrepareURL
			}
			if params.FinalizeURL != "" {
				options.PostFinalizeSigningURL = params.FinalizeURL
			}
			params.applyCommon(&options.CommonOptions)

			connection, err := params.connect(ctx, "sign")
			if err != nil {
				return err
			}
			defer connection.Close()

			response, err := connection.client.Sign(ctx, options)
			if err != nil {
				return report(output, params.OutputJSON, err)
			}
			if done, err := params.EmitJSON(output.Stdout, response); done {
				return err
			}
			return renderResponse(output.Stdout, "signed", response)
		},
	}
}
