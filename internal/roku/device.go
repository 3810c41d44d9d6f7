package roku

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/discovery"
)

// keyTable maps friendly key names to ECP key codes, in menu order.
var keyTable = []struct{ Name, Code string }{
	{"home", "Home"},
	{"back", "Back"},
	{"select", "Select"},
	{"left", "Left"},
	{"right", "Right"},
	{"up", "Up"},
	{"down", "Down"},
	{"play", "Play"},
	{"pause", "Pause"},
	{"rewind", "Rev"},
	{"forward", "Fwd"},
	{"info", "Info"},
	{"volume_up", "VolumeUp"},
	{"volume_down", "VolumeDown"},
	{"mute", "VolumeMute"},
	{"power", "Power"},
	{"power_on", "PowerOn"},
	{"power_off", "PowerOff"},
}

// Keys maps friendly key names to ECP key codes.
var Keys = func() map[string]string {
	m := make(map[string]string, len(keyTable))
	for _, k := range keyTable {
		m[k.Name] = k.Code
	}
	return m
}()

// KeyNames returns the friendly key names in menu order.
func KeyNames() []string {
	names := make([]string, len(keyTable))
	for i, k := range keyTable {
		names[i] = k.Name
	}
	return names
}

// maxAppHints caps how many app names are quoted in the launch parameter help.
const maxAppHints = 10

// Device controls a Roku player over ECP. Every action is a key press
// except app launch and the reachability-based power "get".
type Device struct {
	*control.Base

	ecp  *Client
	apps []App
}

// Option configures a Device.
type Option func(*deviceOptions)

type deviceOptions struct {
	httpClient *http.Client
	baseURL    string
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *deviceOptions) { o.httpClient = c }
}

// WithBaseURL overrides the http://{ip}:8060 endpoint.
func WithBaseURL(u string) Option {
	return func(o *deviceOptions) { o.baseURL = u }
}

func volumeCapability() control.Capability {
	return control.Capability{
		Name:        "volume",
		Description: "Volume control",
		Actions:     []string{"up", "down", "mute"},
		Category:    "audio",
	}
}

func navigateCapability() control.Capability {
	return control.Capability{
		Name:        "navigate",
		Description: "Navigation controls",
		Actions:     []string{"up", "down", "left", "right", "select", "back", "home"},
		Category:    "navigation",
	}
}

func appCapability(apps []App) control.Capability {
	desc := "App name to launch"
	if len(apps) > 0 {
		hints := make([]string, 0, maxAppHints)
		for _, a := range apps {
			if len(hints) == maxAppHints {
				break
			}
			hints = append(hints, a.Name)
		}
		desc += " (e.g. " + strings.Join(hints, ", ") + ")"
	}
	return control.Capability{
		Name:        "app",
		Description: "App launcher",
		Actions:     []string{"list", "launch"},
		Parameters: []control.Parameter{
			{Name: "name", Type: control.ParamString, Description: desc},
		},
		Category: "apps",
	}
}

func keyCapability() control.Capability {
	return control.Capability{
		Name:        "key",
		Description: "Send remote key press",
		Actions:     []string{"press"},
		Parameters: []control.Parameter{
			{Name: "key", Type: control.ParamEnum, Description: "Key to press", Choices: KeyNames()},
		},
		Category: "remote",
	}
}

// New creates an unconnected Roku adapter for the player at ip.
func New(id, name, ip string, opts ...Option) (*Device, error) {
	var o deviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{ecp: NewClient(ip, o.httpClient)}
	if o.baseURL != "" {
		d.ecp.BaseURL = strings.TrimSuffix(o.baseURL, "/")
	}

	press := func(code string) control.Handler {
		return func(ctx context.Context, _ control.Args) control.ActionResult {
			return d.keypress(ctx, code)
		}
	}

	handlers := control.Handlers{
		"power": {
			"get":    d.powerGet,
			"on":     press("PowerOn"),
			"off":    press("PowerOff"),
			"toggle": press("Power"),
		},
		"playback": {
			"play":     press("Play"),
			"pause":    press("Play"),
			"stop":     press("Back"),
			"next":     press("Fwd"),
			"previous": press("Rev"),
		},
		"volume": {
			"up":   press("VolumeUp"),
			"down": press("VolumeDown"),
			"mute": press("VolumeMute"),
		},
		"navigate": {
			"up":     press("Up"),
			"down":   press("Down"),
			"left":   press("Left"),
			"right":  press("Right"),
			"select": press("Select"),
			"back":   press("Back"),
			"home":   press("Home"),
		},
		"app": {
			"list":   d.appList,
			"launch": d.appLaunch,
		},
		"key": {
			"press": d.keyPress,
		},
	}

	catalog := []control.Capability{
		control.PowerCapability(),
		control.PlaybackCapability(),
		volumeCapability(),
		navigateCapability(),
		appCapability(nil),
		keyCapability(),
	}

	base, err := control.NewBase(control.Identity{
		ID:           id,
		Name:         name,
		IP:           ip,
		Type:         "streaming",
		Manufacturer: "Roku",
	}, catalog, handlers, control.Hooks{
		Connect: d.connect,
		Probe:   d.ecp.Ping,
		Refresh: d.refresh,
	})
	if err != nil {
		return nil, err
	}
	d.Base = base
	return d, nil
}

// Apps returns the installed apps found by the last Connect.
func (d *Device) Apps() []App {
	out := make([]App, len(d.apps))
	copy(out, d.apps)
	return out
}

// NewFactory returns an AdapterFactory for Roku records. Devices are
// returned unconnected; the first Execute connects them.
func NewFactory(opts ...Option) discovery.AdapterFactory {
	return func(_ context.Context, found discovery.DiscoveredDevice) (control.Device, error) {
		name := found.Name
		if name == "" {
			name = fmt.Sprintf("Roku (%s)", found.IP)
		}
		d, err := New("roku_"+found.IP, name, found.IP, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Factory builds Roku devices with the default HTTP client.
var Factory = NewFactory()

func (d *Device) connect(ctx context.Context) ([]control.Capability, error) {
	info, err := d.ecp.DeviceInfo(ctx)
	if err != nil {
		return nil, err
	}
	d.SetName(info.DisplayName())
	d.SetModel(strings.TrimSpace(info.ModelName))

	// The app list is optional; a player that refuses it is still usable.
	apps, err := d.ecp.Apps(ctx)
	if err != nil {
		apps = nil
	}
	d.apps = apps

	return []control.Capability{
		control.PowerCapability(),
		control.PlaybackCapability(),
		volumeCapability(),
		navigateCapability(),
		appCapability(apps),
		keyCapability(),
	}, nil
}

func (d *Device) refresh(ctx context.Context, state *control.DeviceState) {
	app, ok, err := d.ecp.ActiveApp(ctx)
	if err != nil || !ok {
		return
	}
	state.Set("current_app", app.Name)
	state.Set("current_app_id", app.ID)
}

func (d *Device) keypress(ctx context.Context, code string) control.ActionResult {
	if err := d.ecp.Keypress(ctx, code); err != nil {
		return control.Fail(err)
	}
	return control.OK(nil)
}

func (d *Device) powerGet(ctx context.Context, _ control.Args) control.ActionResult {
	if d.ecp.Ping(ctx) {
		return control.OK("on")
	}
	return control.OK("off")
}

func (d *Device) appList(context.Context, control.Args) control.ActionResult {
	apps := make(map[string]string, len(d.apps))
	for _, a := range d.apps {
		apps[a.ID] = a.Name
	}
	return control.OK(apps)
}

// appLaunch starts the first installed app whose name contains the
// requested name, ignoring case.
func (d *Device) appLaunch(ctx context.Context, args control.Args) control.ActionResult {
	name := strings.ToLower(args.String("name"))
	for _, a := range d.apps {
		if strings.Contains(strings.ToLower(a.Name), name) {
			if err := d.ecp.Launch(ctx, a.ID); err != nil {
				return control.Fail(err)
			}
			return control.OK(a.Name)
		}
	}
	return control.Failf("App not found: %s", name)
}

func (d *Device) keyPress(ctx context.Context, args control.Args) control.ActionResult {
	key := args.String("key")
	if key == "" {
		return control.Failf("Key name required")
	}
	code, ok := Keys[key]
	if !ok {
		return control.Failf("Unknown key: %s", key)
	}
	return d.keypress(ctx, code)
}
