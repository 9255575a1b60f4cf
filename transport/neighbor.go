package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// NeighborEntry is one IP-to-MAC mapping learned from the OS neighbor table.
type NeighborEntry struct {
	IP     net.IP
	MAC    net.HardwareAddr
	Device string
}

// NeighborTable looks up IP addresses currently associated with a MAC.
type NeighborTable interface {
	Lookup(mac net.HardwareAddr) []NeighborEntry
}

// SystemNeighborTable reads the kernel neighbor table through `ip neigh show`,
// falling back to /proc/net/arp (IPv4 only) when the ip tool is unavailable.
type SystemNeighborTable struct {
	// Timeout bounds the ip command.
	Timeout time.Duration
	// ARPPath is the ARP table file, /proc/net/arp by default.
	ARPPath string
}

// NewSystemNeighborTable creates a neighbor table with default settings.
func NewSystemNeighborTable() *SystemNeighborTable {
	return &SystemNeighborTable{
		Timeout: 500 * time.Millisecond,
		ARPPath: "/proc/net/arp",
	}
}

// Lookup returns all neighbor entries whose link-layer address equals mac.
func (s *SystemNeighborTable) Lookup(mac net.HardwareAddr) []NeighborEntry {
	entries, err := s.entries()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SystemNeighborTable.Lookup",
			"error":    err.Error(),
		}).Debug("Neighbor table unavailable")
		return nil
	}
	return FilterNeighbors(entries, mac)
}

func (s *SystemNeighborTable) entries() ([]NeighborEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ip", "neigh", "show").Output()
	if err == nil {
		return ParseIPNeighbors(bytes.NewReader(out)), nil
	}

	f, ferr := os.Open(s.ARPPath)
	if ferr != nil {
		return nil, err
	}
	defer f.Close()
	return ParseProcARP(f), nil
}

// FilterNeighbors keeps the entries whose MAC equals mac.
func FilterNeighbors(entries []NeighborEntry, mac net.HardwareAddr) []NeighborEntry {
	var out []NeighborEntry
	for _, e := range entries {
		if bytes.Equal(e.MAC, mac) {
			out = append(out, e)
		}
	}
	return out
}

// ParseIPNeighbors parses `ip neigh show` output such as
//
//	192.168.1.1 dev wlan0 lladdr 00:11:22:33:44:55 REACHABLE
//	fe80::1 dev eth0 lladdr 00:11:22:33:44:55 router STALE
//
// Entries without a link-layer address or in FAILED/INCOMPLETE state are skipped.
func ParseIPNeighbors(r io.Reader) []NeighborEntry {
	var out []NeighborEntry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		ip := net.ParseIP(fields[0])
		if ip == nil {
			continue
		}

		var entry NeighborEntry
		entry.IP = ip
		failed := false
		for i := 1; i < len(fields); i++ {
			switch fields[i] {
			case "dev":
				if i+1 < len(fields) {
					entry.Device = fields[i+1]
				}
			case "lladdr":
				if i+1 < len(fields) {
					entry.MAC, _ = net.ParseMAC(fields[i+1])
				}
			case "FAILED", "INCOMPLETE":
				failed = true
			}
		}
		if failed || len(entry.MAC) != 6 {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ParseProcARP parses the Linux /proc/net/arp table.
func ParseProcARP(r io.Reader) []NeighborEntry {
	var out []NeighborEntry
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		ip := net.ParseIP(fields[0])
		mac, err := net.ParseMAC(fields[3])
		// flags 0x0 marks an incomplete entry
		if ip == nil || err != nil || fields[2] == "0x0" {
			continue
		}
		out = append(out, NeighborEntry{IP: ip, MAC: mac, Device: fields[5]})
	}
	return out
}
