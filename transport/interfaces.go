package transport

import (
	"net"

	"github.com/sirupsen/logrus"
)

// LocalInterface is a snapshot of one local network interface.
type LocalInterface struct {
	Name  string
	MAC   net.HardwareAddr
	Addrs []net.IP
	Up    bool
	Loop  bool
}

// SystemInterfaces lists the local interfaces with their IP addresses.
func SystemInterfaces() ([]LocalInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]LocalInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		li := LocalInterface{
			Name: iface.Name,
			MAC:  iface.HardwareAddr,
			Up:   iface.Flags&net.FlagUp != 0,
			Loop: iface.Flags&net.FlagLoopback != 0,
		}

		addrs, err := iface.Addrs()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "SystemInterfaces",
				"interface": iface.Name,
				"error":     err.Error(),
			}).Debug("Skipping interface addresses")
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok {
				li.Addrs = append(li.Addrs, ipnet.IP)
			}
		}
		out = append(out, li)
	}
	return out, nil
}
