package discovery

import (
	"fmt"
	"time"
)

// Protocol tags carried by DiscoveredDevice.Protocol.
const (
	ProtocolUPnP = "upnp"
	ProtocolRoku = "roku"
)

// DiscoveredDevice is a pre-identification record from one discovery cycle.
// It is consumed by an adapter factory and never persisted.
type DiscoveredDevice struct {
	IP           string            `json:"ip_address"`
	Protocol     string            `json:"protocol"`
	DeviceType   string            `json:"device_type"`
	Name         string            `json:"name"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Model        string            `json:"model,omitempty"`
	Location     string            `json:"location,omitempty"` // UPnP description URL
	Services     []string          `json:"services"`
	Headers      map[string]string `json:"-"`
	DiscoveredAt time.Time         `json:"-"`
}

// String returns a human-readable string representation of the record
func (d DiscoveredDevice) String() string {
	name := d.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s device %s (%s) at %s", d.Protocol, name, d.DeviceType, d.IP)
}

// Header retrieves a raw SSDP header by upper-case name, or "" if absent.
func (d DiscoveredDevice) Header(key string) string {
	if d.Headers == nil {
		return ""
	}
	return d.Headers[key]
}
