// Package discovery finds controllable devices and advertised services on
// the local network.
//
// # Device Discovery
//
// Devices are found with SSDP. Each Probe sends one M-SEARCH and collects
// replies for the discovery window:
//   - UPnPProbe searches for "ssdp:all" and keeps one reply per IP,
//     preferring a reply with a LOCATION header.
//   - RokuProbe searches for "roku:ecp" and tags replies as Roku players.
//
// The Engine runs every probe concurrently, merges the results in probe
// registration order and drops later records for an IP it has already
// seen. Registered AdapterFactory functions turn records into
// control.Device adapters:
//
//	engine := discovery.NewEngine(5*time.Second,
//	    discovery.WithFactory(discovery.ProtocolRoku, roku.Factory))
//	for _, dev := range engine.DiscoverAndCreateDevices(ctx) {
//	    fmt.Println(dev.Name(), dev.IP())
//	}
//
// # Service Browsing
//
// BrowseServices and BrowseAll use mDNS (DNS-SD) to list advertised
// services such as printers, AirPlay receivers and SSH servers.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow SSDP (UDP 1900) and mDNS (UDP 5353)
package discovery
