// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "testing"

func TestIsSecureOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://rp.example.org", true},
		{"HTTPS://RP.EXAMPLE.ORG", true},
		{"wss://rp.example.org:8443", true},
		{"file:///home/user/page.html", true},
		{"http://localhost", true},
		{"http://localhost:8080", true},
		{"http://app.localhost", true},
		{"http://LOCALHOST.", true},
		{"http://127.0.0.1:3000", true},
		{"http://127.8.9.10", true},
		{"http://[::1]:8080", true},
		{"ws://localhost/socket", true},
		{"http://rp.example.org", false},
		{"http://localhost.example.org", false},
		{"http://10.0.0.1", false},
		{"http://[::2]", false},
		{"ftp://rp.example.org", false},
		{"rp.example.org", false},
		{"", false},
		{"://broken", false},
	}
	for _, test := range tests {
		if got := IsSecureOrigin(test.origin); got != test.want {
			t.Errorf("IsSecureOrigin(%q) = %v, want %v", test.origin, got, test.want)
		}
	}
}
