// Package netaddr detects the address other machines on the LAN can use to
// reach this host.
package netaddr

import (
	"net"
	"os"
)

// Loopback is returned when no better address can be found.
const Loopback = "127.0.0.1"

// probeAddr is never contacted: connecting a UDP socket only selects the
// outbound interface.
const probeAddr = "8.8.8.8:80"

// Resolver finds the local network address. The zero value uses the real network.
type Resolver struct {
	Dial       func(network, address string) (net.Conn, error)
	Hostname   func() (string, error)
	LookupHost func(host string) ([]string, error)
}

// LocalIP returns the host's outbound IPv4 address, falling back to the
// address the hostname resolves to, then to the loopback address.
func (r Resolver) LocalIP() string {
	if ip := r.fromRoute(); ip != "" {
		return ip
	}
	if ip := r.fromHostname(); ip != "" {
		return ip
	}
	return Loopback
}

func (r Resolver) fromRoute() string {
	dial := r.Dial
	if dial == nil {
		dial = net.Dial
	}
	conn, err := dial("udp", probeAddr)
	if err != nil {
		return ""
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return ""
	}
	return addr.IP.String()
}

func (r Resolver) fromHostname() string {
	hostname, lookup := r.Hostname, r.LookupHost
	if hostname == nil {
		hostname = os.Hostname
	}
	if lookup == nil {
		lookup = net.LookupHost
	}

	name, err := hostname()
	if err != nil || name == "" {
		return ""
	}
	addrs, err := lookup(name)
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return ip.String()
		}
	}
	return ""
}

// LocalIP runs the default Resolver.
func LocalIP() string {
	return Resolver{}.LocalIP()
}
