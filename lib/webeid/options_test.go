// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webeid

import (
	"strings"
	"testing"
	"time"
)

func TestParseAuthenticateOptions(t *testing.T) {
	options, err := ParseAuthenticateOptions(map[string]any{
		"getAuthChallengeUrl":    "https://rp.example.org/challenge",
		"postAuthTokenUrl":       "https://rp.example.org/token",
		"headers":                map[string]any{"Authorization": "Bearer x"},
		"userInteractionTimeout": float64(45000),
		"serverRequestTimeout":   float64(1500),
		"lang":                   "en",
	})
	if err != nil {
		t.Fatalf("ParseAuthenticateOptions: %v", err)
	}
	if options.GetAuthChallengeURL != "https://rp.example.org/challenge" || options.PostAuthTokenURL != "https://rp.example.org/token" {
		t.Errorf("URLs = %q, %q", options.GetAuthChallengeURL, options.PostAuthTokenURL)
	}
	if options.UserInteractionTimeout != 45*time.Second {
		t.Errorf("UserInteractionTimeout = %v", options.UserInteractionTimeout)
	}
	if options.ServerRequestTimeout != 1500*time.Millisecond {
		t.Errorf("ServerRequestTimeout = %v", options.ServerRequestTimeout)
	}
	if options.Headers["Authorization"] != "Bearer x" {
		t.Errorf("Headers = %v", options.Headers)
	}
	if len(options.Extra) != 1 || options.Extra["lang"] != "en" {
		t.Errorf("Extra = %v", options.Extra)
	}
}

func TestParseSignOptions(t *testing.T) {
	options, err := ParseSignOptions(map[string]any{
		"postPrepareSigningUrl":  "https://rp.example.org/prepare",
		"postFinalizeSigningUrl": "https://rp.example.org/finalize",
	})
	if err != nil {
		t.Fatalf("ParseSignOptions: %v", err)
	}
	if options.PostPrepareSigningURL == "" || options.PostFinalizeSigningURL == "" {
		t.Errorf("options = %+v", options)
	}
	if options.Extra != nil {
		t.Errorf("Extra = %v, want nil", options.Extra)
	}
	if err := options.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestParseOptionsTypeErrors(t *testing.T) {
	tests := []struct {
		object map[string]any
		want   string
	}{
		{map[string]any{"getAuthChallengeUrl": 7.0}, "getAuthChallengeUrl"},
		{map[string]any{"headers": "x"}, "headers"},
		{map[string]any{"headers": map[string]any{"A": 1.0}}, "headers.A"},
		{map[string]any{"userInteractionTimeout": "2m"}, "userInteractionTimeout"},
	}
	for _, test := range tests {
		_, err := ParseAuthenticateOptions(test.object)
		if err == nil || !strings.Contains(err.Error(), test.want) {
			t.Errorf("ParseAuthenticateOptions(%v) = %v, want error mentioning %q", test.object, err, test.want)
		}
	}
}

func TestOptionFieldsDoNotLetExtraOverrideNamedFields(t *testing.T) {
	options := AuthenticateOptions{
		GetAuthChallengeURL: "https://rp.example.org/challenge",
		PostAuthTokenURL:    "https://rp.example.org/token",
		CommonOptions: CommonOptions{
			Extra: map[string]any{"postAuthTokenUrl": "https://evil.example.org"},
		},
	}
	fields := options.fields()
	if fields["postAuthTokenUrl"] != "https://rp.example.org/token" {
		t.Errorf("postAuthTokenUrl = %v", fields["postAuthTokenUrl"])
	}
	if options.Extra["postAuthTokenUrl"] != "https://evil.example.org" {
		t.Error("fields() mutated the caller's Extra map")
	}
}
