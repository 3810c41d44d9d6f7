package fileserver

import (
	"fmt"
	"net"
)

// Port range searched when no port is requested.
const (
	DefaultPortStart = 8000
	DefaultPortEnd   = 9000
)

// FindFreePort returns the first TCP port in [start, end) that can be bound
// on all interfaces.
func FindFreePort(start, end int) (int, error) {
	for port := start; port < end; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// LocalIP returns the address of the interface used for outbound traffic.
// No packets are sent; the UDP dial only selects a route.
func LocalIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer func() { _ = conn.Close() }()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
