package datasource

import (
	"net"
	"strings"
)

// EgressDecision is the verdict on an outbound address of an HTTP source.
type EgressDecision struct {
	// Reason explains why the address was blocked.
	Reason string

	// ResolvedIP is the address the connection must be pinned to.
	ResolvedIP string

	Allowed bool
}

// EgressOption configures ValidateAddress.
type EgressOption func(*egressPolicy)

type egressPolicy struct {
	allowlist      []string // hostnames, wildcards or CIDRs that bypass the IP rules
	blocklist      []string
	blockPrivate   bool
	blockLocalhost bool
	blockLinkLocal bool
	blockMulticast bool
	resolveDNS     bool
}

func defaultEgressPolicy() egressPolicy {
	return egressPolicy{
		blockPrivate:   true,
		blockLocalhost: true,
		blockLinkLocal: true,
		blockMulticast: true,
		resolveDNS:     true,
	}
}

// WithAllowedHosts sets hostnames (exact or "*.suffix") and CIDRs that are
// always allowed.
func WithAllowedHosts(hosts ...string) EgressOption {
	return func(p *egressPolicy) {
		p.allowlist = hosts
	}
}

// WithBlockedHosts sets hostnames and CIDRs that are always blocked.
func WithBlockedHosts(hosts ...string) EgressOption {
	return func(p *egressPolicy) {
		p.blocklist = hosts
	}
}

// WithPrivateNetworks allows loopback and RFC 1918 targets. Sources that run
// next to the host (sidecar price services, tests) need it.
func WithPrivateNetworks(allow bool) EgressOption {
	return func(p *egressPolicy) {
		p.blockPrivate = !allow
		p.blockLocalhost = !allow
	}
}

// WithResolveDNS enables/disables resolving hostnames before the IP checks.
func WithResolveDNS(resolve bool) EgressOption {
	return func(p *egressPolicy) {
		p.resolveDNS = resolve
	}
}

// ValidateAddress decides whether an HTTP source may connect to address
// ("host" or "host:port"). Hostnames are resolved so the decision holds for the
// IP the transport will dial.
func ValidateAddress(address string, opts ...EgressOption) EgressDecision {
	p := defaultEgressPolicy()
	for _, opt := range opts {
		opt(&p)
	}

	host, err := splitHost(address)
	if err != nil {
		return EgressDecision{Reason: "invalid address: " + err.Error()}
	}

	for _, pattern := range p.blocklist {
		if matchesHost(host, pattern) {
			return EgressDecision{Reason: "address in blocklist"}
		}
	}

	ip := net.ParseIP(host)
	if ip == nil && p.resolveDNS {
		ips, err := net.LookupIP(host)
		if err != nil {
			return EgressDecision{Reason: "DNS resolution failed: " + err.Error()}
		}
		if len(ips) > 0 {
			ip = ips[0]
		}
	}

	for _, pattern := range p.allowlist {
		if matchesHost(host, pattern) || (ip != nil && matchesHost(ip.String(), pattern)) {
			return EgressDecision{Allowed: true, ResolvedIP: ipString(ip)}
		}
	}

	if ip == nil {
		// hostname-only mode, nothing left to check
		return EgressDecision{Allowed: true}
	}

	for _, pattern := range p.blocklist {
		if matchesHost(ip.String(), pattern) {
			return EgressDecision{Reason: "IP in blocklist"}
		}
	}

	if reason := restrictedIP(ip, p); reason != "" {
		return EgressDecision{Reason: reason}
	}
	return EgressDecision{Allowed: true, ResolvedIP: ip.String()}
}

func restrictedIP(ip net.IP, p egressPolicy) string {
	switch {
	case p.blockLocalhost && ip.IsLoopback():
		return "localhost/loopback addresses blocked"
	case p.blockPrivate && ip.IsPrivate():
		return "private addresses blocked (RFC 1918)"
	case p.blockLinkLocal && (ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()):
		return "link-local addresses blocked"
	case p.blockMulticast && ip.IsMulticast():
		return "multicast addresses blocked"
	case ip.IsUnspecified():
		return "unspecified address blocked"
	}
	return ""
}

// splitHost strips an optional port. Bare IPv6 literals are accepted.
func splitHost(address string) (string, error) {
	if address == "" {
		return "", &net.AddrError{Err: "empty address"}
	}
	if !strings.Contains(address, ":") {
		return address, nil
	}
	h, _, err := net.SplitHostPort(address)
	if err != nil {
		if net.ParseIP(address) != nil {
			return address, nil
		}
		return "", err
	}
	return h, nil
}

// matchesHost checks host against an exact name, a "*.suffix" wildcard or a CIDR.
func matchesHost(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]) {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		if _, cidr, err := net.ParseCIDR(pattern); err == nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
