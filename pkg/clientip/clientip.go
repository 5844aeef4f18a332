// Package clientip extracts the originating client address from proxied
// HTTP requests. The collector endpoints sit behind a CDN or reverse proxy,
// so RemoteAddr alone is almost never the storefront visitor.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the client address for r, checking proxy headers in
// trust order before falling back to the socket address. Returns an empty
// string when nothing parses as an IP.
func ClientIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	// X-Forwarded-For may carry a chain; the first valid entry is the client.
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for part := range strings.SplitSeq(forwarded, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes a candidate address.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
