package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"golang.org/x/sync/errgroup"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default window for service browsing
	DefaultBrowseTimeout = 5 * time.Second
)

// CommonServiceTypes maps well-known DNS-SD service types to display names.
var CommonServiceTypes = map[string]string{
	"_http._tcp":            "Web Server",
	"_https._tcp":           "Secure Web",
	"_ssh._tcp":             "SSH",
	"_sftp-ssh._tcp":        "SFTP",
	"_smb._tcp":             "Windows Share",
	"_afpovertcp._tcp":      "Apple Share",
	"_nfs._tcp":             "NFS",
	"_ftp._tcp":             "FTP",
	"_printer._tcp":         "Printer",
	"_ipp._tcp":             "Printer (IPP)",
	"_pdl-datastream._tcp":  "Printer (PDL)",
	"_airplay._tcp":         "AirPlay",
	"_raop._tcp":            "AirPlay Audio",
	"_airport._tcp":         "AirPort",
	"_homekit._tcp":         "HomeKit",
	"_hap._tcp":             "HomeKit (HAP)",
	"_companion-link._tcp":  "Apple Companion",
	"_googlecast._tcp":      "Chromecast",
	"_spotify-connect._tcp": "Spotify Connect",
	"_sonos._tcp":           "Sonos",
	"_daap._tcp":            "iTunes/DAAP",
	"_dacp._tcp":            "iTunes Remote",
	"_touch-able._tcp":      "Apple Remote",
	"_workstation._tcp":     "Workstation",
	"_device-info._tcp":     "Device Info",
	"_rfb._tcp":             "VNC/Remote Desktop",
	"_vnc._tcp":             "VNC",
	"_rdp._tcp":             "Remote Desktop",
	"_mysql._tcp":           "MySQL",
	"_postgresql._tcp":      "PostgreSQL",
	"_mongodb._tcp":         "MongoDB",
	"_redis._tcp":           "Redis",
	"_elasticsearch._tcp":   "Elasticsearch",
	"_mqtt._tcp":            "MQTT",
	"_coap._udp":            "CoAP (IoT)",
	"_hue._tcp":             "Philips Hue",
	"_elg._tcp":             "Elgato",
}

// ServiceInfo describes one advertised mDNS service instance.
type ServiceInfo struct {
	Name        string            `json:"name"`
	ServiceType string            `json:"service_type"`
	Domain      string            `json:"domain"`
	Host        string            `json:"host,omitempty"`
	Port        int               `json:"port,omitempty"`
	Addresses   []string          `json:"addresses,omitempty"`
	TXT         map[string]string `json:"txt_records,omitempty"`
}

// FriendlyName returns the display name for the service type, or the type itself.
func (s ServiceInfo) FriendlyName() string {
	return FriendlyServiceName(s.ServiceType)
}

// FriendlyServiceName looks a service type up in CommonServiceTypes.
func FriendlyServiceName(serviceType string) string {
	if name, ok := CommonServiceTypes[serviceType]; ok {
		return name
	}
	return serviceType
}

// NormalizeServiceType turns shorthand like "http" into "_http._tcp".
func NormalizeServiceType(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return s
	}
	if !strings.HasPrefix(s, "_") {
		s = "_" + s
	}
	if !strings.Contains(s, "._tcp") && !strings.Contains(s, "._udp") {
		s += "._tcp"
	}
	return s
}

// CommonTypes returns the keys of CommonServiceTypes in sorted order.
func CommonTypes() []string {
	types := make([]string, 0, len(CommonServiceTypes))
	for t := range CommonServiceTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BrowseServices browses one service type until the timeout expires.
func BrowseServices(ctx context.Context, serviceType string, timeout time.Duration) ([]ServiceInfo, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu       sync.Mutex
		services []ServiceInfo
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			info := parseServiceEntry(entry)
			mu.Lock()
			services = append(services, info)
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, NormalizeServiceType(serviceType), ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// zeroconf closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return dedupServices(services), nil
}

// BrowseAll browses several service types concurrently and merges the
// results. A failing type is skipped.
func BrowseAll(ctx context.Context, serviceTypes []string, timeout time.Duration) []ServiceInfo {
	results := make([][]ServiceInfo, len(serviceTypes))
	var g errgroup.Group
	for i, st := range serviceTypes {
		g.Go(func() error {
			found, err := BrowseServices(ctx, st, timeout)
			if err == nil {
				results[i] = found
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []ServiceInfo
	for _, r := range results {
		all = append(all, r...)
	}
	return dedupServices(all)
}

// GroupByType groups services by type. Each group is sorted by name.
func GroupByType(services []ServiceInfo) map[string][]ServiceInfo {
	groups := make(map[string][]ServiceInfo)
	for _, s := range services {
		groups[s.ServiceType] = append(groups[s.ServiceType], s)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Name < g[j].Name })
	}
	return groups
}

// parseServiceEntry converts a zeroconf entry to a ServiceInfo
func parseServiceEntry(entry *zeroconf.ServiceEntry) ServiceInfo {
	info := ServiceInfo{
		Name:        entry.Instance,
		ServiceType: strings.TrimSuffix(entry.Service, "."),
		Domain:      strings.TrimSuffix(entry.Domain, "."),
		Host:        strings.TrimSuffix(entry.HostName, "."),
		Port:        entry.Port,
	}

	for _, addr := range entry.AddrIPv4 {
		info.Addresses = append(info.Addresses, addr.String())
	}
	for _, addr := range entry.AddrIPv6 {
		info.Addresses = append(info.Addresses, addr.String())
	}

	if len(entry.Text) > 0 {
		info.TXT = make(map[string]string, len(entry.Text))
		for _, txt := range entry.Text {
			key, value, _ := strings.Cut(txt, "=")
			if key != "" {
				info.TXT[key] = value
			}
		}
	}
	return info
}

// dedupServices keeps the first instance of each (name, type) pair
func dedupServices(services []ServiceInfo) []ServiceInfo {
	type key struct{ name, typ string }
	seen := make(map[key]bool, len(services))
	out := make([]ServiceInfo, 0, len(services))
	for _, s := range services {
		k := key{s.Name, s.ServiceType}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
