package transport

import "net"

// MACToEUI64 derives the modified EUI-64 interface identifier of a 48-bit MAC:
// ff:fe is inserted in the middle and the universal/local bit is flipped.
func MACToEUI64(mac net.HardwareAddr) ([8]byte, bool) {
	var id [8]byte
	if len(mac) != 6 {
		return id, false
	}
	copy(id[0:3], mac[0:3])
	id[3] = 0xff
	id[4] = 0xfe
	copy(id[5:8], mac[3:6])
	id[0] ^= 0x02
	return id, true
}

// MACFromEUI64 recovers the MAC from an IPv6 address whose interface identifier
// is EUI-64 derived.
func MACFromEUI64(ip net.IP) (net.HardwareAddr, bool) {
	ip16 := ip.To16()
	if ip16 == nil || ip.To4() != nil {
		return nil, false
	}
	if ip16[11] != 0xff || ip16[12] != 0xfe {
		return nil, false
	}
	mac := net.HardwareAddr{ip16[8] ^ 0x02, ip16[9], ip16[10], ip16[13], ip16[14], ip16[15]}
	return mac, true
}

// IsEUI64Of reports whether ip carries the EUI-64 interface identifier of mac.
func IsEUI64Of(ip net.IP, mac net.HardwareAddr) bool {
	id, ok := MACToEUI64(mac)
	ip16 := ip.To16()
	if !ok || ip16 == nil || ip.To4() != nil {
		return false
	}
	for i := 0; i < 8; i++ {
		if ip16[8+i] != id[i] {
			return false
		}
	}
	return true
}

// ReplaceInterfaceID keeps the /64 prefix of template and substitutes the
// EUI-64 identifier of mac.
func ReplaceInterfaceID(template net.IP, mac net.HardwareAddr) (net.IP, bool) {
	id, ok := MACToEUI64(mac)
	t16 := template.To16()
	if !ok || t16 == nil || template.To4() != nil {
		return nil, false
	}
	out := make(net.IP, net.IPv6len)
	copy(out[:8], t16[:8])
	copy(out[8:], id[:])
	return out, true
}

// LinkLocalFromMAC returns fe80::/64 combined with the EUI-64 identifier of mac.
func LinkLocalFromMAC(mac net.HardwareAddr) (net.IP, bool) {
	return ReplaceInterfaceID(net.ParseIP("fe80::"), mac)
}
