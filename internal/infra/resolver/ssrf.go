package resolver

import (
	"net/netip"
	"strings"
)

// blockedHosts are rejected by name before any DNS or network activity.
var blockedHosts = map[string]bool{
	"localhost":       true,
	"127.0.0.1":       true,
	"0.0.0.0":         true,
	"169.254.169.254": true, // cloud metadata service
	"::1":             true,
	"::ffff:127.0.0.1": true,
}

// blockedPrefixes are the private, link-local and loopback ranges a did:web
// identifier must never point at.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("::1/128"),
}

// isBlockedHost reports whether a did:web domain is disallowed. Hostnames
// that are not IP literals pass; DNS-level protections belong to the
// deployment, not this resolver.
func isBlockedHost(domain string) bool {
	host := strings.ToLower(strings.Trim(domain, "[]"))
	if blockedHosts[host] {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	for _, prefix := range blockedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
