// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webeid

import (
	"fmt"
	"maps"
	"time"

	"github.com/bureau-foundation/webeid/lib/eiderr"
)

// Wire names of the option fields.
const (
	fieldGetAuthChallengeURL    = "getAuthChallengeUrl"
	fieldPostAuthTokenURL       = "postAuthTokenUrl"
	fieldPostPrepareSigningURL  = "postPrepareSigningUrl"
	fieldPostFinalizeSigningURL = "postFinalizeSigningUrl"
	fieldHeaders                = "headers"
	fieldUserInteractionTimeout = "userInteractionTimeout"
	fieldServerRequestTimeout   = "serverRequestTimeout"
)

// CommonOptions are shared by authenticate and sign requests.
type CommonOptions struct {
	// Headers are added by the extension to its requests to the
	// relying-party server.
	Headers map[string]string

	// UserInteractionTimeout overrides the configured budget for one
	// user prompt. Zero or negative uses the configured value.
	UserInteractionTimeout time.Duration

	// ServerRequestTimeout overrides the configured budget for one
	// server round trip. Zero or negative uses the configured value.
	ServerRequestTimeout time.Duration

	// Extra fields are passed to the extension verbatim. They never
	// replace the named fields above.
	Extra map[string]any
}

// AuthenticateOptions configure an authentication request.
type AuthenticateOptions struct {
	// GetAuthChallengeURL is where the extension fetches the nonce.
	// Required.
	GetAuthChallengeURL string

	// PostAuthTokenURL is where the extension submits the signed
	// token. Required.
	PostAuthTokenURL string

	CommonOptions
}

// SignOptions configure a signing request.
type SignOptions struct {
	// PostPrepareSigningURL receives the signing certificate and
	// returns the hash to sign. Required.
	PostPrepareSigningURL string

	// PostFinalizeSigningURL receives the signature. Required.
	PostFinalizeSigningURL string

	CommonOptions
}

func (o AuthenticateOptions) validate() error {
	if o.GetAuthChallengeURL == "" {
		return eiderr.New(eiderr.CodeMissingParameter, fieldGetAuthChallengeURL+" missing from authenticate options")
	}
	if o.PostAuthTokenURL == "" {
		return eiderr.New(eiderr.CodeMissingParameter, fieldPostAuthTokenURL+" missing from authenticate options")
	}
	return nil
}

func (o SignOptions) validate() error {
	if o.PostPrepareSigningURL == "" {
		return eiderr.New(eiderr.CodeMissingParameter, fieldPostPrepareSigningURL+" missing from sign options")
	}
	if o.PostFinalizeSigningURL == "" {
		return eiderr.New(eiderr.CodeMissingParameter, fieldPostFinalizeSigningURL+" missing from sign options")
	}
	return nil
}

func (o AuthenticateOptions) fields() map[string]any {
	fields := o.CommonOptions.fields()
	fields[fieldGetAuthChallengeURL] = o.GetAuthChallengeURL
	fields[fieldPostAuthTokenURL] = o.PostAuthTokenURL
	return fields
}

func (o SignOptions) fields() map[string]any {
	fields := o.CommonOptions.fields()
	fields[fieldPostPrepareSigningURL] = o.PostPrepareSigningURL
	fields[fieldPostFinalizeSigningURL] = o.PostFinalizeSigningURL
	return fields
}

// fields returns the request payload. Timeouts travel as integer
// milliseconds.
func (o CommonOptions) fields() map[string]any {
	fields := maps.Clone(o.Extra)
	if fields == nil {
		fields = make(map[string]any)
	}
	if len(o.Headers) > 0 {
		headers := make(map[string]any, len(o.Headers))
		for name, value := range o.Headers {
			headers[name] = value
		}
		fields[fieldHeaders] = headers
	}
	if o.UserInteractionTimeout > 0 {
		fields[fieldUserInteractionTimeout] = o.UserInteractionTimeout.Milliseconds()
	}
	if o.ServerRequestTimeout > 0 {
		fields[fieldServerRequestTimeout] = o.ServerRequestTimeout.Milliseconds()
	}
	return fields
}

// ParseAuthenticateOptions builds options from a decoded JSON object
// such as an options file. Unrecognized keys go to Extra.
func ParseAuthenticateOptions(object map[string]any) (AuthenticateOptions, error) {
	var options AuthenticateOptions
	rest, err := parseCommon(object, &options.CommonOptions,
		fieldGetAuthChallengeURL, &options.GetAuthChallengeURL,
		fieldPostAuthTokenURL, &options.PostAuthTokenURL)
	options.Extra = rest
	return options, err
}

// ParseSignOptions builds options from a decoded JSON object such as
// an options file. Unrecognized keys go to Extra.
func ParseSignOptions(object map[string]any) (SignOptions, error) {
	var options SignOptions
	rest, err := parseCommon(object, &options.CommonOptions,
		fieldPostPrepareSigningURL, &options.PostPrepareSigningURL,
		fieldPostFinalizeSigningURL, &options.PostFinalizeSigningURL)
	options.Extra = rest
	return options, err
}

// parseCommon fills common and the two named URL fields from object
// and returns the remaining keys.
func parseCommon(object map[string]any, common *CommonOptions,
	firstKey string, first *string, secondKey string, second *string,
) (map[string]any, error) {
	rest := make(map[string]any)
	for key, value := range object {
		var err error
		switch key {
		case firstKey:
			*first, err = stringOption(key, value)
		case secondKey:
			*second, err = stringOption(key, value)
		case fieldHeaders:
			common.Headers, err = headersOption(value)
		case fieldUserInteractionTimeout:
			common.UserInteractionTimeout, err = millisecondsOption(key, value)
		case fieldServerRequestTimeout:
			common.ServerRequestTimeout, err = millisecondsOption(key, value)
		default:
			rest[key] = value
		}
		if err != nil {
			return nil, err
		}
	}
	if len(rest) == 0 {
		rest = nil
	}
	return rest, nil
}

func stringOption(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("option %s: expected string, got %T", key, value)
	}
	return s, nil
}

func headersOption(value any) (map[string]string, error) {
	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("option %s: expected object, got %T", fieldHeaders, value)
	}
	headers := make(map[string]string, len(object))
	for name, raw := range object {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("option %s.%s: expected string, got %T", fieldHeaders, name, raw)
		}
		headers[name] = s
	}
	return headers, nil
}

func millisecondsOption(key string, value any) (time.Duration, error) {
	switch number := value.(type) {
	case float64:
		return time.Duration(number * float64(time.Millisecond)), nil
	case int:
		return time.Duration(number) * time.Millisecond, nil
	case int64:
		return time.Duration(number) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("option %s: expected milliseconds, got %T", key, value)
	}
}
