package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// ClientIP returns the address rate limits are keyed on. With trustProxy it
// takes the rightmost public X-Forwarded-For hop (the one our proxy appended)
// and then X-Real-IP; otherwise forwarding headers are ignored.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop != "" && !isPrivate(hop) {
					return hop
				}
			}
			return strings.TrimSpace(hops[len(hops)-1])
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	// No port: unix socket or a bare address.
	if _, err := netip.ParseAddr(r.RemoteAddr); err == nil {
		return r.RemoteAddr
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		if _, err := netip.ParseAddr(r.RemoteAddr[:idx]); err == nil {
			return r.RemoteAddr[:idx]
		}
	}
	return r.RemoteAddr
}

func isPrivate(raw string) bool {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range privatePrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
