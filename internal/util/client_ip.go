package util

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// ProxyAllowlist names the reverse proxies whose X-Forwarded-For header is
// believed. A nil allowlist trusts no proxy.
type ProxyAllowlist struct {
	prefixes []netip.Prefix
}

// ParseProxyAllowlist accepts CIDR ranges and bare addresses. It returns nil
// when no entry is given.
func ParseProxyAllowlist(entries []string) (*ProxyAllowlist, error) {
	var prefixes []netip.Prefix
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(prefixes) == 0 {
		return nil, nil
	}
	return &ProxyAllowlist{prefixes: prefixes}, nil
}

func (l *ProxyAllowlist) trusts(addr netip.Addr) bool {
	if l == nil {
		return false
	}
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is the caller address that access logs and abuse counters are
// keyed on. X-Forwarded-For is walked from the right only while hops are
// trusted proxies. Addresses are unmapped so an IPv4 caller seen over IPv6
// keeps the same key. It returns "" when the peer address is unusable.
func (l *ProxyAllowlist) ClientIP(r *http.Request) string {
	peer, ok := parseHost(r.RemoteAddr)
	if !ok {
		return ""
	}
	if !l.trusts(peer) {
		return peer.String()
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseHost(hops[i])
		if !ok {
			continue
		}
		client = hop
		if !l.trusts(hop) {
			break
		}
	}
	return client.String()
}

func parseHost(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().WithZone("").Unmap(), true
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.WithZone("").Unmap(), true
}
