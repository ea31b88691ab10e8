// Package clientip extracts the caller address used to key per-client
// rate limits on the bridge.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the peer address of r. Forwarding headers are
// ignored since the bridge is only reachable over loopback.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.Trim(strings.TrimSpace(host), "[]")
}
