package server

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies resolves the client IP used for rate limiting. Forwarding
// headers are only honored when the direct peer is inside a configured
// trusted range; otherwise a client could spoof its way past the limiter.
type TrustedProxies struct {
	networks []*net.IPNet
}

// NewTrustedProxies builds a TrustedProxies from CIDR strings. Bare IPs are
// accepted as /32 (or /128) ranges; entries that parse as neither are
// dropped.
func NewTrustedProxies(cidrs []string) *TrustedProxies {
	tp := &TrustedProxies{}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			if ip := net.ParseIP(cidr); ip != nil {
				if ip.To4() != nil {
					_, network, _ = net.ParseCIDR(ip.String() + "/32")
				} else {
					_, network, _ = net.ParseCIDR(ip.String() + "/128")
				}
			}
		}
		if network != nil {
			tp.networks = append(tp.networks, network)
		}
	}
	return tp
}

// IsTrusted reports whether ip falls inside any trusted range.
func (tp *TrustedProxies) IsTrusted(ip net.IP) bool {
	for _, network := range tp.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetClientIP returns the effective client IP for the request. For
// connections from a trusted proxy the first valid X-Forwarded-For entry
// wins, then X-Real-IP; everything else uses the connection address.
func (tp *TrustedProxies) GetClientIP(r *http.Request) net.IP {
	directIP := parseRemoteAddr(r.RemoteAddr)
	if directIP == nil || !tp.IsTrusted(directIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// "client, proxy1, proxy2" — the leftmost entry is the client.
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
		return directIP
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip
		}
	}
	return directIP
}

// GetClientIPString is GetClientIP rendered for log fields and limiter keys.
func (tp *TrustedProxies) GetClientIPString(r *http.Request) string {
	ip := tp.GetClientIP(r)
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

// parseRemoteAddr extracts the IP from "ip:port" / "[ip]:port" RemoteAddr
// forms, falling back to a bare IP.
func parseRemoteAddr(addr string) net.IP {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.ParseIP(addr)
	}
	return net.ParseIP(host)
}
