package utilities

import "net"

// NIC is one hardware network interface of the agent host.
type NIC struct {
	Name  string   `json:"name"`
	MAC   string   `json:"mac"`
	Addrs []string `json:"addrs,omitempty"`
}

// HardwareNICs lists interfaces that are up and carry a universally
// administered MAC. Loopback and virtual (locally administered) interfaces
// are skipped.
func HardwareNICs() ([]NIC, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	nics := make([]NIC, 0, len(ifaces))
	for _, ifa := range ifaces {
		if !isHardware(ifa) {
			continue
		}
		nic := NIC{Name: ifa.Name, MAC: ifa.HardwareAddr.String()}
		if addrs, err := ifa.Addrs(); err == nil {
			for _, a := range addrs {
				nic.Addrs = append(nic.Addrs, a.String())
			}
		}
		nics = append(nics, nic)
	}
	return nics, nil
}

func isHardware(ifa net.Interface) bool {
	if ifa.Flags&net.FlagUp == 0 || ifa.Flags&net.FlagLoopback != 0 {
		return false
	}
	return len(ifa.HardwareAddr) > 0 && ifa.HardwareAddr[0]&0x02 == 0
}
