// Package clientip derives the caller address used for rate-limit keys and logs.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the peer address of r. Proxy headers are ignored: the
// API is reached directly, so X-Forwarded-For would be caller-controlled.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// Key is the limiter bucket for r. IPv6 callers are grouped by /64 since a
// single host usually controls the whole prefix.
func Key(r *http.Request) string {
	raw := RealClientIP(r)
	ip := net.ParseIP(raw)
	if ip == nil {
		return raw
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}
