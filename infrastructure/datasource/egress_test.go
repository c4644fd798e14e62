package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress_Restricted(t *testing.T) {
	tests := []struct {
		name    string
		address string
		reason  string
	}{
		{"loopback", "127.0.0.1", "localhost"},
		{"loopback with port", "127.0.0.1:8080", "localhost"},
		{"loopback ipv6", "::1", "localhost"},
		{"10/8", "10.1.2.3", "private"},
		{"172.16/12", "172.31.255.255", "private"},
		{"192.168/16", "192.168.1.1:443", "private"},
		{"link-local", "169.254.169.254", "link-local"},
		{"link-local ipv6", "fe80::1", "link-local"},
		{"multicast", "239.1.1.1", "multicast"},
		{"unspecified", "0.0.0.0", "unspecified"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := ValidateAddress(tc.address, WithResolveDNS(false))
			assert.False(t, d.Allowed, "should block %s", tc.address)
			assert.Contains(t, d.Reason, tc.reason)
		})
	}
}

func TestValidateAddress_Public(t *testing.T) {
	for _, addr := range []string{"8.8.8.8", "1.1.1.1:443", "2606:4700:4700::1111"} {
		t.Run(addr, func(t *testing.T) {
			d := ValidateAddress(addr, WithResolveDNS(false))
			assert.True(t, d.Allowed)
			assert.NotEmpty(t, d.ResolvedIP)
		})
	}
}

func TestValidateAddress_PrivateNetworksAllowed(t *testing.T) {
	d := ValidateAddress("127.0.0.1:9000", WithResolveDNS(false), WithPrivateNetworks(true))
	assert.True(t, d.Allowed)
	assert.Equal(t, "127.0.0.1", d.ResolvedIP)

	// link-local stays blocked: cloud metadata endpoints live there
	d = ValidateAddress("169.254.169.254", WithResolveDNS(false), WithPrivateNetworks(true))
	assert.False(t, d.Allowed)
}

func TestValidateAddress_Lists(t *testing.T) {
	t.Run("allowlist CIDR bypasses private check", func(t *testing.T) {
		d := ValidateAddress("10.0.0.5", WithResolveDNS(false), WithAllowedHosts("10.0.0.0/24"))
		assert.True(t, d.Allowed)
	})

	t.Run("wildcard allowlist", func(t *testing.T) {
		d := ValidateAddress("prices.internal.example", WithResolveDNS(false), WithAllowedHosts("*.internal.example"))
		assert.True(t, d.Allowed)
	})

	t.Run("blocklist wins", func(t *testing.T) {
		d := ValidateAddress("8.8.8.8", WithResolveDNS(false),
			WithAllowedHosts("8.8.8.8"), WithBlockedHosts("8.8.0.0/16"))
		assert.False(t, d.Allowed)
		assert.Contains(t, d.Reason, "blocklist")
	})

	t.Run("blocked hostname", func(t *testing.T) {
		d := ValidateAddress("evil.example:80", WithResolveDNS(false), WithBlockedHosts("evil.example"))
		assert.False(t, d.Allowed)
	})
}

func TestValidateAddress_HostnameWithoutResolution(t *testing.T) {
	d := ValidateAddress("api.example.com:443", WithResolveDNS(false))
	assert.True(t, d.Allowed)
	assert.Empty(t, d.ResolvedIP)
}

func TestValidateAddress_Invalid(t *testing.T) {
	d := ValidateAddress("")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "invalid address")

	d = ValidateAddress("host:port:extra", WithResolveDNS(false))
	assert.False(t, d.Allowed)
}
