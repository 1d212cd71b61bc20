// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"net"
	"net/url"
	"strings"
)

// IsSecureOrigin reports whether origin is a secure context in the
// browser's sense: https, wss and file origins are, and so are http and
// ws origins whose host is a loopback address (localhost, any
// *.localhost name, 127.0.0.0/8 or ::1). Anything that does not parse
// as an absolute URL is not.
func IsSecureOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" {
		return false
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https", "wss", "file":
		return true
	case "http", "ws":
		return isLoopbackHost(parsed.Hostname())
	default:
		return false
	}
}

func isLoopbackHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
