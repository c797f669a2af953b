package probes

import (
	"context"
	"fmt"
	"net"
)

// MAC enumerates non-loopback interfaces with non-zero hardware addresses,
// one entry per interface, de-duplicated by interface name (§4.D).
func MAC(ctx context.Context, id string, reply func([]byte, error)) {
	ifaces, err := net.Interfaces()
	if err != nil {
		reply(nil, err)
		return
	}
	seen := make(map[string]bool)
	var addrs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if seen[iface.Name] {
			continue
		}
		if len(iface.HardwareAddr) == 0 || isZeroAddr(iface.HardwareAddr) {
			continue
		}
		seen[iface.Name] = true
		addrs = append(addrs, formatMAC(iface.HardwareAddr))
	}
	reply(marshal(macPayload{ID: id, TypeID: "MAC", MACAddresses: addrs}), nil)
}

func isZeroAddr(hw net.HardwareAddr) bool {
	for _, b := range hw {
		if b != 0 {
			return false
		}
	}
	return true
}

func formatMAC(hw net.HardwareAddr) string {
	out := ""
	for i, b := range hw {
		if i > 0 {
			out += ":"
		}
		out += fmt.Sprintf("%02x", b)
	}
	return out
}
