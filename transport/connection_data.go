package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

// ConnectionKind tags the variant held by a ConnectionData.
type ConnectionKind uint8

const (
	// KindHostname is an IP literal or DNS name dialed on the service port.
	KindHostname ConnectionKind = iota
	// KindLinkLocal is a MAC address expanded into EUI-64 and neighbor-table candidates.
	KindLinkLocal
	// KindSignalingServer is a host with an explicit port (host:port or multiaddr).
	KindSignalingServer
)

// String returns a human-readable representation of the connection kind.
func (k ConnectionKind) String() string {
	switch k {
	case KindHostname:
		return "hostname"
	case KindLinkLocal:
		return "link-local"
	case KindSignalingServer:
		return "signaling-server"
	default:
		return "unknown"
	}
}

// ConnectionData is one stored contact address, parsed into a closed set of
// variants. Only the fields of the active Kind are meaningful.
type ConnectionData struct {
	Kind ConnectionKind
	Host string
	Zone string
	Port int
	MAC  net.HardwareAddr
}

// ParseConnectionData classifies a stored address string. Hostnames and IP
// literals use servicePort; host:port and multiaddr forms keep their own port.
func ParseConnectionData(address string, servicePort int) (ConnectionData, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return ConnectionData{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	if strings.HasPrefix(address, "/") {
		m, err := ma.NewMultiaddr(address)
		if err != nil {
			return ConnectionData{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		ep, err := EndpointFromMultiaddr(m)
		if err != nil {
			return ConnectionData{}, err
		}
		return ConnectionData{Kind: KindSignalingServer, Host: ep.Host, Zone: ep.Zone, Port: ep.Port}, nil
	}

	if mac, err := net.ParseMAC(address); err == nil && len(mac) == 6 {
		return ConnectionData{Kind: KindLinkLocal, MAC: mac}, nil
	}

	if host, portStr, err := net.SplitHostPort(address); err == nil {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return ConnectionData{}, fmt.Errorf("%w: bad port in %q", ErrInvalidAddress, address)
		}
		host, zone := splitZone(host)
		return ConnectionData{Kind: KindSignalingServer, Host: host, Zone: zone, Port: port}, nil
	}

	host, zone := splitZone(address)
	if net.ParseIP(host) == nil && !validHostname(host) {
		return ConnectionData{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return ConnectionData{Kind: KindHostname, Host: host, Zone: zone, Port: servicePort}, nil
}

// Resolve expands the connection data into endpoints. Hostnames stay
// unresolved; the dialer resolves them at connect time.
func (c ConnectionData) Resolve(r *AddressResolver) []Endpoint {
	switch c.Kind {
	case KindHostname, KindSignalingServer:
		return []Endpoint{{Host: c.Host, Port: c.Port, Zone: c.Zone}}
	case KindLinkLocal:
		return r.expandMAC(c.MAC)
	default:
		return nil
	}
}

func splitZone(host string) (string, string) {
	if i := strings.LastIndexByte(host, '%'); i >= 0 {
		return host[:i], host[i+1:]
	}
	return host, ""
}

func validHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				return false
			}
		}
	}
	return true
}
