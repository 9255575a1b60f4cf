package transport

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

// Endpoint is a concrete socket address candidate for a contact.
// Host is either an IP literal or a hostname that is resolved at connect time.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Zone string `json:"zone,omitempty"`
}

// IP returns the parsed host, or nil for an unresolved hostname.
func (e Endpoint) IP() net.IP {
	return net.ParseIP(e.Host)
}

// Resolved reports whether Host is an IP literal.
func (e Endpoint) Resolved() bool {
	return e.IP() != nil
}

// IsIPv6 reports whether the endpoint is a resolved IPv6 address.
func (e Endpoint) IsIPv6() bool {
	ip := e.IP()
	return ip != nil && ip.To4() == nil
}

// String returns the dialable "host:port" form, including the zone for scoped IPv6.
func (e Endpoint) String() string {
	host := e.Host
	if e.Zone != "" {
		host += "%" + e.Zone
	}
	return net.JoinHostPort(host, strconv.Itoa(e.Port))
}

// Equal compares endpoints by address value, so "::1" and "0:0::1" match.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.key() == o.key()
}

func (e Endpoint) key() string {
	host := strings.ToLower(e.Host)
	if ip := e.IP(); ip != nil {
		host = ip.String()
	}
	return host + "%" + e.Zone + "#" + strconv.Itoa(e.Port)
}

// Multiaddr renders the endpoint as a multiaddr, e.g.
// /ip6zone/eth0/ip6/fe80::1/tcp/10001 or /dns/host.lan/tcp/10001.
func (e Endpoint) Multiaddr() (ma.Multiaddr, error) {
	var s string
	ip := e.IP()
	switch {
	case ip == nil:
		s = fmt.Sprintf("/dns/%s/tcp/%d", e.Host, e.Port)
	case ip.To4() != nil:
		s = fmt.Sprintf("/ip4/%s/tcp/%d", ip.To4(), e.Port)
	case e.Zone != "":
		s = fmt.Sprintf("/ip6zone/%s/ip6/%s/tcp/%d", e.Zone, ip, e.Port)
	default:
		s = fmt.Sprintf("/ip6/%s/tcp/%d", ip, e.Port)
	}
	return ma.NewMultiaddr(s)
}

// EndpointFromMultiaddr converts a TCP multiaddr back into an Endpoint.
func EndpointFromMultiaddr(m ma.Multiaddr) (Endpoint, error) {
	portStr, err := m.ValueForProtocol(ma.P_TCP)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %s has no tcp component", ErrInvalidAddress, m)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: bad port %q", ErrInvalidAddress, portStr)
	}

	ep := Endpoint{Port: port}
	if zone, err := m.ValueForProtocol(ma.P_IP6ZONE); err == nil {
		ep.Zone = zone
	}
	for _, code := range []int{ma.P_IP4, ma.P_IP6, ma.P_DNS, ma.P_DNS4, ma.P_DNS6} {
		if host, err := m.ValueForProtocol(code); err == nil {
			ep.Host = host
			return ep, nil
		}
	}
	return Endpoint{}, fmt.Errorf("%w: %s has no host component", ErrInvalidAddress, m)
}

// EndpointFromAddr builds the endpoint to remember for a peer from the remote
// address of a live connection. The port is replaced by the service port because
// the remote side of an inbound connection uses an ephemeral source port.
func EndpointFromAddr(addr net.Addr, servicePort int) (Endpoint, bool) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP == nil {
		return Endpoint{}, false
	}
	ep := Endpoint{Host: tcp.IP.String(), Port: servicePort}
	if tcp.IP.To4() == nil && tcp.IP.IsLinkLocalUnicast() {
		ep.Zone = tcp.Zone
	}
	return ep, true
}

// Address scope ranks; lower sorts first.
const (
	ScopeLoopback = iota
	ScopeLinkLocal
	ScopeSiteLocal
	ScopeMulticastGlobal
	ScopeMulticastLinkLocal
	ScopeMulticastNodeLocal
	ScopeMulticastOrgLocal
	ScopeMulticastSiteLocal
	ScopeOther
)

var (
	siteLocalV6   = mustCIDR("fec0::/10")
	orgLocalV4    = mustCIDR("239.192.0.0/14")
	siteLocalMCV4 = mustCIDR("239.255.0.0/16")
)

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ScopeRank ranks an address by how narrow its network scope is.
// Unresolved hostnames (nil) rank as ScopeOther.
func ScopeRank(ip net.IP) int {
	switch {
	case ip == nil:
		return ScopeOther
	case ip.IsLoopback():
		return ScopeLoopback
	case ip.IsLinkLocalUnicast():
		return ScopeLinkLocal
	case ip.IsPrivate() || siteLocalV6.Contains(ip):
		return ScopeSiteLocal
	case ip.IsMulticast():
		return multicastScope(ip)
	default:
		return ScopeOther
	}
}

func multicastScope(ip net.IP) int {
	if v4 := ip.To4(); v4 != nil {
		switch {
		case ip.IsLinkLocalMulticast():
			return ScopeMulticastLinkLocal
		case siteLocalMCV4.Contains(v4):
			return ScopeMulticastSiteLocal
		case orgLocalV4.Contains(v4):
			return ScopeMulticastOrgLocal
		default:
			return ScopeMulticastGlobal
		}
	}

	switch ip[1] & 0x0f {
	case 0x1:
		return ScopeMulticastNodeLocal
	case 0x2:
		return ScopeMulticastLinkLocal
	case 0x5:
		return ScopeMulticastSiteLocal
	case 0x8:
		return ScopeMulticastOrgLocal
	case 0xe:
		return ScopeMulticastGlobal
	default:
		return ScopeOther
	}
}

// SortEndpoints orders candidates in place. Rules apply in turn, each breaking
// ties of the previous one:
//
//  1. the last working address first
//  2. unresolved hostnames before IP literals
//  3. IPv6 before IPv4
//  4. narrower scope first (see ScopeRank)
//
// The sort is stable, so equal candidates keep their discovery order.
func SortEndpoints(endpoints []Endpoint, lastWorking *Endpoint) {
	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpointLess(endpoints[i], endpoints[j], lastWorking)
	})
}

func endpointLess(a, b Endpoint, lastWorking *Endpoint) bool {
	if lastWorking != nil {
		aLast, bLast := a.Equal(*lastWorking), b.Equal(*lastWorking)
		if aLast != bLast {
			return aLast
		}
	}

	// Hostnames go first so the system resolver can race them.
	aResolved, bResolved := a.Resolved(), b.Resolved()
	if aResolved != bResolved {
		return !aResolved
	}
	if !aResolved {
		return false
	}

	aV6, bV6 := a.IsIPv6(), b.IsIPv6()
	if aV6 != bV6 {
		return aV6
	}

	return ScopeRank(a.IP()) < ScopeRank(b.IP())
}

// DedupEndpoints removes repeated endpoints, keeping the first occurrence.
func DedupEndpoints(endpoints []Endpoint) []Endpoint {
	seen := make(map[string]struct{}, len(endpoints))
	out := endpoints[:0]
	for _, ep := range endpoints {
		k := ep.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ep)
	}
	return out
}
