package contact

import (
	"sort"
	"strings"

	"github.com/opd-ai/meshcall/transport"
)

// AddressEntry is one local address offered in the address-management UI.
type AddressEntry struct {
	Address   string
	Device    string
	Multicast bool
}

// SortAddressEntries orders entries by address string.
func SortAddressEntries(entries []AddressEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Address < entries[j].Address
	})
}

// CollectAddresses lists the local MAC, IPv4 and IPv6 addresses of all
// interfaces that are up, excluding loopback.
func CollectAddresses() ([]AddressEntry, error) {
	ifaces, err := transport.SystemInterfaces()
	if err != nil {
		return nil, err
	}
	return collectFrom(ifaces), nil
}

func collectFrom(ifaces []transport.LocalInterface) []AddressEntry {
	var out []AddressEntry
	seen := make(map[string]bool)
	add := func(e AddressEntry) {
		key := strings.ToLower(e.Address)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, e)
	}

	for _, iface := range ifaces {
		if !iface.Up || iface.Loop {
			continue
		}
		if len(iface.MAC) == 6 {
			add(AddressEntry{Address: iface.MAC.String(), Device: iface.Name})
		}
		for _, ip := range iface.Addrs {
			if ip.IsLoopback() {
				continue
			}
			add(AddressEntry{
				Address:   ip.String(),
				Device:    iface.Name,
				Multicast: ip.IsMulticast(),
			})
		}
	}

	SortAddressEntries(out)
	return out
}
