// Package wol sends Wake-on-LAN magic packets.
package wol

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	// DefaultBroadcast is the limited broadcast address.
	DefaultBroadcast = "255.255.255.255"
	// DefaultPort is the discard port most NICs listen on; 7 is also common.
	DefaultPort = 9

	// PacketSize is 6 sync bytes plus 16 copies of the MAC.
	PacketSize = 6 + 16*6
)

// Result describes one send attempt.
type Result struct {
	MAC       string `json:"mac_address"`
	Broadcast string `json:"broadcast_address"`
	Port      int    `json:"port"`
	Success   bool   `json:"success"`
	Error     string `json:"error"`
}

// NormalizeMAC returns mac as upper-case colon-separated hex. It accepts
// ":", "-" and "." separators or none, and pads single-digit groups, so
// "0:c:8a:91:3e:b3" becomes "00:0C:8A:91:3E:B3".
func NormalizeMAC(mac string) (string, error) {
	parts := strings.Split(strings.NewReplacer("-", ":", ".", ":").Replace(mac), ":")

	var clean string
	if len(parts) == 6 {
		var b strings.Builder
		for _, p := range parts {
			if len(p) < 2 {
				p = strings.Repeat("0", 2-len(p)) + p
			}
			b.WriteString(p)
		}
		clean = strings.ToUpper(b.String())
	} else {
		clean = strings.ToUpper(strings.Join(parts, ""))
	}

	if len(clean) != 12 {
		return "", fmt.Errorf("Invalid MAC address: %s", mac)
	}
	if _, err := hex.DecodeString(clean); err != nil {
		return "", fmt.Errorf("Invalid MAC address: %s", mac)
	}

	groups := make([]string, 6)
	for i := range groups {
		groups[i] = clean[i*2 : i*2+2]
	}
	return strings.Join(groups, ":"), nil
}

// MagicPacket builds the 102-byte wake packet for mac.
func MagicPacket(mac string) ([]byte, error) {
	norm, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	hw, _ := hex.DecodeString(strings.ReplaceAll(norm, ":", ""))

	packet := bytes.Repeat([]byte{0xFF}, 6)
	return append(packet, bytes.Repeat(hw, 16)...), nil
}

// Send broadcasts one magic packet. Failures are reported in the Result.
func Send(ctx context.Context, mac, broadcast string, port int) Result {
	if broadcast == "" {
		broadcast = DefaultBroadcast
	}
	if port == 0 {
		port = DefaultPort
	}
	res := Result{MAC: mac, Broadcast: broadcast, Port: port}

	norm, err := NormalizeMAC(mac)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	packet, _ := MagicPacket(norm)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", net.JoinHostPort(broadcast, strconv.Itoa(port)))
	if err != nil {
		res.Error = fmt.Sprintf("Network error: %v", err)
		return res
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write(packet); err != nil {
		res.Error = fmt.Sprintf("Network error: %v", err)
		return res
	}
	res.MAC = norm
	res.Success = true
	return res
}

// SubnetBroadcast returns ip | ^mask. An empty mask means /24.
func SubnetBroadcast(ip, mask string) (string, error) {
	if mask == "" {
		mask = "255.255.255.0"
	}
	addr := net.ParseIP(ip).To4()
	if addr == nil {
		return "", fmt.Errorf("invalid IPv4 address: %s", ip)
	}
	m := net.ParseIP(mask).To4()
	if m == nil {
		return "", fmt.Errorf("invalid netmask: %s", mask)
	}

	out := make(net.IP, 4)
	for i := range out {
		out[i] = addr[i] | ^m[i]
	}
	return out.String(), nil
}
