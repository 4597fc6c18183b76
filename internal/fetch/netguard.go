package fetch

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"syscall"
)

var nonPublicPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// blockedAddrError is returned when a connection would reach a loopback,
// private, link-local or otherwise non-public address.
type blockedAddrError struct {
	addr netip.Addr
}

func (e *blockedAddrError) Error() string {
	return fmt.Sprintf("refusing to connect to non-public address %s", e.addr)
}

// isPublicAddr reports whether ip is routable on the public internet.
func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() {
		return false
	}
	for _, p := range nonPublicPrefixes {
		if p.Contains(ip) {
			return false
		}
	}
	return true
}

// blockedHost reports whether a URL host is obviously local: localhost
// names or a literal non-public IP. Names are checked again after DNS
// resolution by publicDialControl.
func blockedHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return !isPublicAddr(ip)
	}
	return false
}

// publicDialControl is a net.Dialer Control hook. It runs after name
// resolution, so it also covers DNS names that point at private addresses.
func publicDialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublicAddr(ip) {
		return &blockedAddrError{addr: ip}
	}
	return nil
}
