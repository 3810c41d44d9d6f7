// Package config manages the lantern YAML configuration file: saved devices
// and application preferences.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/lantern/config.yaml or $HOME/.config/lantern/config.yaml
//   - macOS: $HOME/.config/lantern/config.yaml
//   - Windows: %LOCALAPPDATA%\lantern\config.yaml
//
// # Saved Devices
//
// Devices are keyed by a user-chosen name. The name resolves to an IP address
// for the control commands and to a MAC address for Wake-on-LAN. Devices found
// by discovery are remembered automatically so a later invocation can address
// them by name.
//
// # Usage Example
//
//	registry, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.AddDevice(&config.Device{
//	    Name:       "nas",
//	    MACAddress: "AA:BB:CC:DD:EE:FF",
//	    IPAddress:  "192.168.1.20",
//	})
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// A Registry guards its maps with a mutex. Saves write a temporary file and
// rename it over the target.
package config
