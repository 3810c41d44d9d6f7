package config

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/wol"
)

// CurrentVersion is the only schema version Load accepts.
const CurrentVersion = 1

// Defaults for fields left out of the file.
const (
	DefaultDeviceType      = "generic"
	DefaultSSHPort         = 22
	DefaultPingCount       = 5
	DefaultPingTimeout     = 2 * time.Second
	DefaultScanTimeout     = 2 * time.Second
	DefaultDiscoverTimeout = 5 * time.Second
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // keyed by user-chosen name
	Preferences *Preferences       `yaml:"preferences,omitempty"`

	path string
	lock sync.Mutex
}

// Device is a saved device. At least one of IPAddress, MACAddress or
// Hostname identifies it on the network.
type Device struct {
	Name       string    `yaml:"-" json:"name"`
	MACAddress string    `yaml:"mac_address,omitempty" json:"mac_address,omitempty"`
	IPAddress  string    `yaml:"ip_address,omitempty" json:"ip_address,omitempty"`
	Hostname   string    `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	DeviceType string    `yaml:"device_type,omitempty" json:"device_type"` // generic, server, printer, speaker, tv ...
	SSHUser    string    `yaml:"ssh_user,omitempty" json:"ssh_user,omitempty"`
	SSHPort    int       `yaml:"ssh_port,omitempty" json:"ssh_port,omitempty"`
	SSHKey     string    `yaml:"ssh_key,omitempty" json:"ssh_key,omitempty"`
	Notes      string    `yaml:"notes,omitempty" json:"notes,omitempty"`
	LastSeen   time.Time `yaml:"last_seen,omitempty" json:"last_seen,omitzero"` // set when discovery finds the device
}

// Address returns the best address to reach the device: IP, else hostname.
func (d *Device) Address() string {
	if d.IPAddress != "" {
		return d.IPAddress
	}
	return d.Hostname
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultInterface string        `yaml:"default_interface,omitempty"`
	JSONOutput       bool          `yaml:"json_output"`
	Color            bool          `yaml:"color"`
	Verbose          bool          `yaml:"verbose"`
	PingCount        int           `yaml:"ping_count"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	ScanTimeout      time.Duration `yaml:"scan_timeout"`
	DiscoverTimeout  time.Duration `yaml:"discover_timeout"`
	SSHDefaultUser   string        `yaml:"ssh_default_user,omitempty"`
	SSHDefaultKey    string        `yaml:"ssh_default_key,omitempty"`
}

// DefaultPreferences returns the preferences used when the file has none.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Color:           true,
		PingCount:       DefaultPingCount,
		PingTimeout:     DefaultPingTimeout,
		ScanTimeout:     DefaultScanTimeout,
		DiscoverTimeout: DefaultDiscoverTimeout,
	}
}

// fill replaces zero numeric preferences with their defaults.
func (p *Preferences) fill() {
	if p.PingCount <= 0 {
		p.PingCount = DefaultPingCount
	}
	if p.PingTimeout <= 0 {
		p.PingTimeout = DefaultPingTimeout
	}
	if p.ScanTimeout <= 0 {
		p.ScanTimeout = DefaultScanTimeout
	}
	if p.DiscoverTimeout <= 0 {
		p.DiscoverTimeout = DefaultDiscoverTimeout
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Devices:     make(map[string]*Device),
		Preferences: DefaultPreferences(),
	}
}

// Path returns the file the registry loads from and saves to.
func (r *Registry) Path() string {
	return r.path
}

// GetDevice retrieves a saved device by name. Returns nil if it doesn't exist.
func (r *Registry) GetDevice(name string) *Device {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.Devices[name]
}

// AddDevice adds or replaces a saved device, filling in defaults.
func (r *Registry) AddDevice(d *Device) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.ensureDevices()
	if d.DeviceType == "" {
		d.DeviceType = DefaultDeviceType
	}
	if d.SSHPort == 0 {
		d.SSHPort = DefaultSSHPort
	}
	r.Devices[d.Name] = d
}

// RemoveDevice deletes a saved device and reports whether it existed.
func (r *Registry) RemoveDevice(name string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	return true
}

// ListDevices returns saved devices sorted by name.
func (r *Registry) ListDevices() []*Device {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]*Device, 0, len(r.Devices))
	for _, d := range r.Devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindByIP returns the first saved device (by name) with this IP address.
func (r *Registry) FindByIP(ip string) *Device {
	for _, d := range r.ListDevices() {
		if d.IPAddress == ip {
			return d
		}
	}
	return nil
}

// FindByMAC returns the saved device with this MAC address, compared after
// normalization so separators and case do not matter.
func (r *Registry) FindByMAC(mac string) *Device {
	want := macKey(mac)
	for _, d := range r.ListDevices() {
		if d.MACAddress != "" && macKey(d.MACAddress) == want {
			return d
		}
	}
	return nil
}

// Lookup finds a saved device by exact name, then by normalised name
// ("Living Room" matches "living-room").
func (r *Registry) Lookup(name string) *Device {
	if d := r.GetDevice(name); d != nil {
		return d
	}
	key := control.NormalizeName(name)
	for _, d := range r.ListDevices() {
		if control.NormalizeName(d.Name) == key {
			return d
		}
	}
	return nil
}

// LookupIP resolves a saved device name to its IP address.
func (r *Registry) LookupIP(name string) (string, bool) {
	d := r.Lookup(name)
	if d == nil || d.IPAddress == "" {
		return "", false
	}
	return d.IPAddress, true
}

// RememberDiscovered records a device found by discovery. An existing entry
// keeps its user-set fields; only the address, the last-seen time and an
// unset type are updated.
func (r *Registry) RememberDiscovered(name, ip, deviceType string) *Device {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.ensureDevices()

	key := control.NormalizeName(name)
	d, ok := r.Devices[key]
	if !ok {
		d = &Device{Name: key, DeviceType: DefaultDeviceType, SSHPort: DefaultSSHPort}
		r.Devices[key] = d
	}
	d.IPAddress = ip
	d.LastSeen = time.Now().UTC()
	if deviceType != "" && deviceType != "unknown" && (d.DeviceType == "" || d.DeviceType == DefaultDeviceType) {
		d.DeviceType = deviceType
	}
	return d
}

func (r *Registry) ensureDevices() {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
}

func macKey(mac string) string {
	if norm, err := wol.NormalizeMAC(mac); err == nil {
		return norm
	}
	return strings.ReplaceAll(strings.ToLower(mac), "-", ":")
}
