package utils

import (
	"net"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may call the API. Local and
// private-network origins are always trusted; public origins must be listed.
type OriginPolicy struct {
	extra map[string]bool
}

// NewOriginPolicy trusts the given public origins in addition to private ones.
// Entries are compared by scheme and host, so trailing slashes are ignored.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{extra: make(map[string]bool, len(allowed))}
	for _, origin := range allowed {
		if key := originKey(origin); key != "" {
			p.extra[key] = true
		}
	}
	return p
}

// Allowed reports whether origin is trusted.
func (p *OriginPolicy) Allowed(origin string) bool {
	if IsPrivateOrigin(origin) {
		return true
	}
	if p == nil {
		return false
	}
	key := originKey(origin)
	return key != "" && p.extra[key]
}

func originKey(origin string) string {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host)
}

// IsPrivateOrigin accepts localhost, private and link-local IPs, .local mDNS
// names and single-label LAN hostnames.
func IsPrivateOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
	}
	return !strings.Contains(hostname, ".")
}
