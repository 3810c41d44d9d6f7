package discovery

import (
	"context"
	"time"
)

// Probe is one discovery method (SSDP, a protocol-specific search target...).
type Probe interface {
	Name() string
	Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredDevice, error)
}

// UPnPProbe searches for every UPnP device with ssdp:all.
type UPnPProbe struct {
	Searcher *SSDPSearcher
}

// Name implements Probe.
func (p *UPnPProbe) Name() string { return ProtocolUPnP }

// Discover runs an ssdp:all search. A device usually answers once per
// advertised service; the replies are collapsed to one record per IP,
// preferring one that carries a description URL.
func (p *UPnPProbe) Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredDevice, error) {
	found, err := searcher(p.Searcher).Search(ctx, SearchAll, timeout)
	if err != nil {
		return nil, err
	}
	return collapseByIP(found), nil
}

// RokuProbe searches for Roku players with the roku:ecp target.
type RokuProbe struct {
	Searcher *SSDPSearcher
}

// Name implements Probe.
func (p *RokuProbe) Name() string { return ProtocolRoku }

// Discover runs a roku:ecp search and tags every reply as a Roku.
func (p *RokuProbe) Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredDevice, error) {
	found, err := searcher(p.Searcher).Search(ctx, SearchRoku, timeout)
	if err != nil {
		return nil, err
	}
	for i := range found {
		found[i].Protocol = ProtocolRoku
		found[i].DeviceType = "streaming"
		found[i].Manufacturer = "Roku"
	}
	return collapseByIP(found), nil
}

// DefaultProbes returns the built-in probes in their fixed order.
func DefaultProbes() []Probe {
	return []Probe{&UPnPProbe{}, &RokuProbe{}}
}

func searcher(s *SSDPSearcher) *SSDPSearcher {
	if s == nil {
		return NewSSDPSearcher()
	}
	return s
}

func collapseByIP(devices []DiscoveredDevice) []DiscoveredDevice {
	pos := make(map[string]int, len(devices))
	out := make([]DiscoveredDevice, 0, len(devices))
	for _, d := range devices {
		i, seen := pos[d.IP]
		if !seen {
			pos[d.IP] = len(out)
			out = append(out, d)
			continue
		}
		if out[i].Location == "" && d.Location != "" {
			out[i] = d
		}
	}
	return out
}
