package transport

import (
	"net"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the well-known meshcall service port.
const DefaultPort = 10001

// AddressResolver turns a contact's stored address strings into an ordered,
// deduplicated list of endpoints to try.
type AddressResolver struct {
	// Port is the service port used for addresses that carry none.
	Port int
	// Interfaces lists local interfaces; their EUI-64 addresses serve as
	// templates for expanding contact MAC addresses.
	Interfaces func() ([]LocalInterface, error)
	// Neighbors is consulted for IPs currently bound to a contact MAC.
	Neighbors NeighborTable
}

// NewAddressResolver creates a resolver backed by the system interfaces and
// neighbor table.
func NewAddressResolver(port int) *AddressResolver {
	if port <= 0 {
		port = DefaultPort
	}
	return &AddressResolver{
		Port:       port,
		Interfaces: SystemInterfaces,
		Neighbors:  NewSystemNeighborTable(),
	}
}

// ResolveEndpoints expands addresses into endpoints, adds lastWorking, removes
// duplicates and sorts the result with SortEndpoints. Unparseable addresses are
// logged and skipped.
func (r *AddressResolver) ResolveEndpoints(addresses []string, lastWorking *Endpoint) []Endpoint {
	var endpoints []Endpoint
	if lastWorking != nil {
		endpoints = append(endpoints, *lastWorking)
	}

	for _, address := range addresses {
		data, err := ParseConnectionData(address, r.Port)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "ResolveEndpoints",
				"address":  address,
				"error":    err.Error(),
			}).Warn("Skipping unparseable contact address")
			continue
		}
		endpoints = append(endpoints, data.Resolve(r)...)
	}

	endpoints = DedupEndpoints(endpoints)
	SortEndpoints(endpoints, lastWorking)

	logrus.WithFields(logrus.Fields{
		"function":       "ResolveEndpoints",
		"address_count":  len(addresses),
		"endpoint_count": len(endpoints),
		"has_last":       lastWorking != nil,
	}).Debug("Resolved contact endpoints")

	return endpoints
}

// expandMAC derives IPv6 candidates for a contact MAC from every local interface
// address that is itself EUI-64 derived (same prefix, contact identifier), a
// plain fe80:: candidate on every interface with IPv6 link-local connectivity,
// and whatever the neighbor table currently maps to the MAC.
func (r *AddressResolver) expandMAC(mac net.HardwareAddr) []Endpoint {
	var out []Endpoint

	if r.Interfaces != nil {
		ifaces, err := r.Interfaces()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "expandMAC",
				"error":    err.Error(),
			}).Warn("Cannot list local interfaces")
		}
		for _, iface := range ifaces {
			out = append(out, r.interfaceCandidates(iface, mac)...)
		}
	}

	if r.Neighbors != nil {
		for _, n := range r.Neighbors.Lookup(mac) {
			ep := Endpoint{Host: n.IP.String(), Port: r.Port}
			if n.IP.To4() == nil && n.IP.IsLinkLocalUnicast() {
				ep.Zone = n.Device
			}
			out = append(out, ep)
		}
	}

	return out
}

func (r *AddressResolver) interfaceCandidates(iface LocalInterface, mac net.HardwareAddr) []Endpoint {
	if !iface.Up || iface.Loop {
		return nil
	}

	var out []Endpoint
	hasLinkLocal := false
	for _, ip := range iface.Addrs {
		if ip.To4() != nil {
			continue
		}
		if ip.IsLinkLocalUnicast() {
			hasLinkLocal = true
		}
		if !IsEUI64Of(ip, iface.MAC) {
			continue
		}
		candidate, ok := ReplaceInterfaceID(ip, mac)
		if !ok {
			continue
		}
		ep := Endpoint{Host: candidate.String(), Port: r.Port}
		if candidate.IsLinkLocalUnicast() {
			ep.Zone = iface.Name
		}
		out = append(out, ep)
	}

	if hasLinkLocal {
		if ll, ok := LinkLocalFromMAC(mac); ok {
			out = append(out, Endpoint{Host: ll.String(), Port: r.Port, Zone: iface.Name})
		}
	}
	return out
}
