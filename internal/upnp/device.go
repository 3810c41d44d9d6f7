package upnp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/discovery"
)

const (
	// DescribeTimeout bounds the device description fetch during Connect.
	DescribeTimeout = 5 * time.Second
	// ProbeTimeout bounds the reachability check.
	ProbeTimeout = 2 * time.Second

	defaultVolume = 50
)

// NowPlayingCapability reports the current track.
func NowPlayingCapability() control.Capability {
	return control.Capability{
		Name:        "now_playing",
		Description: "Current media information",
		Actions:     []string{"get"},
		Category:    "media",
	}
}

// Device controls a UPnP/DLNA renderer through its RenderingControl and
// AVTransport services.
type Device struct {
	*control.Base

	location string
	baseURL  string
	services map[string]string
	client   *http.Client
	soap     *SOAPClient
}

// Option configures a Device.
type Option func(*Device)

// WithHTTPClient sets the client used for description fetches and SOAP calls.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Device) { d.client = c }
}

// New creates an unconnected device for the description at location.
func New(id control.Identity, location string, opts ...Option) (*Device, error) {
	d := &Device{
		location: location,
		services: make(map[string]string),
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.soap = &SOAPClient{HTTPClient: d.client, DeviceIP: id.IP}

	catalog := []control.Capability{
		control.VolumeCapability(),
		control.PlaybackCapability(),
		NowPlayingCapability(),
		control.PowerCapability(),
	}
	handlers := control.Handlers{
		"volume": {
			"get":    d.volumeGet,
			"set":    d.volumeSet,
			"up":     d.volumeStep(1),
			"down":   d.volumeStep(-1),
			"mute":   d.setMute(true),
			"unmute": d.setMute(false),
		},
		"playback": {
			"play":     d.transport("Play"),
			"pause":    d.transport("Pause"),
			"stop":     d.transport("Stop"),
			"next":     d.transport("Next"),
			"previous": d.transport("Previous"),
		},
		"now_playing": {
			"get": d.nowPlaying,
		},
		"power": {
			"get":    d.powerGet,
			"on":     powerUnsupported,
			"off":    powerUnsupported,
			"toggle": powerUnsupported,
		},
	}

	base, err := control.NewBase(id, catalog, handlers, control.Hooks{
		Connect: d.connect,
		Probe:   d.probe,
		Refresh: d.refresh,
	})
	if err != nil {
		return nil, err
	}
	d.Base = base
	return d, nil
}

// Location returns the description URL.
func (d *Device) Location() string { return d.location }

// ControlURL returns the control URL for a service, or "" if the device
// does not offer it.
func (d *Device) ControlURL(service string) string { return d.services[service] }

// NewFactory returns an AdapterFactory that builds and connects UPnP devices.
func NewFactory(opts ...Option) discovery.AdapterFactory {
	return func(ctx context.Context, found discovery.DiscoveredDevice) (control.Device, error) {
		if found.Location == "" {
			return nil, nil
		}
		name := found.Name
		if name == "" {
			name = fmt.Sprintf("UPnP Device (%s)", found.IP)
		}
		d, err := New(control.Identity{
			ID:           "upnp_" + found.IP,
			Name:         name,
			IP:           found.IP,
			Type:         found.DeviceType,
			Manufacturer: found.Manufacturer,
			Model:        found.Model,
		}, found.Location, opts...)
		if err != nil {
			return nil, err
		}
		if err := d.Connect(ctx); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Factory builds UPnP devices with the default HTTP client.
var Factory = NewFactory()

func (d *Device) connect(ctx context.Context) ([]control.Capability, error) {
	u, err := url.Parse(d.location)
	if err != nil || u.Host == "" {
		return nil, control.NewParseError("invalid description URL "+d.location, err)
	}
	d.baseURL = u.Scheme + "://" + u.Host

	doc, err := d.fetch(ctx, d.location, DescribeTimeout)
	if err != nil {
		return nil, err
	}
	desc, err := ParseDescription(doc, d.baseURL)
	if err != nil {
		return nil, control.NewParseError("invalid device description", err)
	}

	d.SetName(desc.FriendlyName)
	d.SetManufacturer(desc.Manufacturer)
	d.SetModel(desc.ModelName)
	d.services = desc.ControlURLs

	var caps []control.Capability
	if d.services[RenderingControl] != "" {
		caps = append(caps, control.VolumeCapability())
	}
	if d.services[AVTransport] != "" {
		caps = append(caps, control.PlaybackCapability(), NowPlayingCapability())
	}
	return append(caps, control.PowerCapability()), nil
}

func (d *Device) probe(ctx context.Context) bool {
	_, err := d.fetch(ctx, d.location, ProbeTimeout)
	return err == nil
}

func (d *Device) refresh(ctx context.Context, _ *control.DeviceState) {
	if d.services[RenderingControl] != "" {
		d.volumeGet(ctx, nil)
	}
}

func (d *Device) fetch(ctx context.Context, target string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, control.NewParseError("invalid URL "+target, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, control.NewNetworkError(d.IP(), "description request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, control.NewHTTPError(d.IP(), resp.StatusCode, "description request returned "+resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, control.NewNetworkError(d.IP(), "failed to read description", err)
	}
	return body, nil
}

func (d *Device) call(ctx context.Context, service, action string, args ...Arg) (string, error) {
	controlURL := d.services[service]
	if controlURL == "" {
		return "", control.NewUnsupportedError(service + " service not available")
	}
	return d.soap.Call(ctx, controlURL, service, action, args)
}

var masterChannel = []Arg{{"InstanceID", "0"}, {"Channel", "Master"}}

func (d *Device) volumeGet(ctx context.Context, _ control.Args) control.ActionResult {
	body, err := d.call(ctx, RenderingControl, "GetVolume", masterChannel...)
	if err != nil {
		if control.IsUnsupportedError(err) {
			return control.Fail(err)
		}
		return control.ActionResult{Error: "Failed to get volume", Err: err}
	}
	raw, ok := ExtractValue(body, "CurrentVolume")
	level, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if !ok || convErr != nil {
		return control.ActionResult{Error: "Failed to get volume", Raw: body}
	}
	d.State().Set("volume", level)
	return control.ActionResult{Success: true, Value: level, Raw: body}
}

func (d *Device) volumeSet(ctx context.Context, args control.Args) control.ActionResult {
	if !args.Has("level") {
		return control.Failf("Volume level required")
	}
	return d.applyVolume(ctx, args.Int("level", 0))
}

func (d *Device) applyVolume(ctx context.Context, level int) control.ActionResult {
	level = max(0, min(100, level))
	args := append(append([]Arg{}, masterChannel...), Arg{"DesiredVolume", strconv.Itoa(level)})
	if _, err := d.call(ctx, RenderingControl, "SetVolume", args...); err != nil {
		return control.Fail(err)
	}
	d.State().Set("volume", level)
	return control.OK(level)
}

// volumeStep reads the cached level (fetching it once if needed) and sets
// an absolute level; RenderingControl has no relative adjustment.
func (d *Device) volumeStep(sign int) control.Handler {
	return func(ctx context.Context, args control.Args) control.ActionResult {
		if !d.State().Has("volume") {
			d.volumeGet(ctx, nil)
		}
		current, ok := d.State().Get("volume", defaultVolume).(int)
		if !ok {
			current = defaultVolume
		}
		return d.applyVolume(ctx, current+sign*args.Int("step", 5))
	}
}

func (d *Device) setMute(mute bool) control.Handler {
	desired := "0"
	if mute {
		desired = "1"
	}
	return func(ctx context.Context, _ control.Args) control.ActionResult {
		args := append(append([]Arg{}, masterChannel...), Arg{"DesiredMute", desired})
		if _, err := d.call(ctx, RenderingControl, "SetMute", args...); err != nil {
			return control.Fail(err)
		}
		d.State().Set("muted", mute)
		return control.OK(mute)
	}
}

func (d *Device) transport(action string) control.Handler {
	args := []Arg{{"InstanceID", "0"}}
	if action == "Play" {
		args = append(args, Arg{"Speed", "1"})
	}
	return func(ctx context.Context, _ control.Args) control.ActionResult {
		if _, err := d.call(ctx, AVTransport, action, args...); err != nil {
			return control.Fail(err)
		}
		return control.OK(nil)
	}
}

func (d *Device) nowPlaying(ctx context.Context, _ control.Args) control.ActionResult {
	body, err := d.call(ctx, AVTransport, "GetPositionInfo", Arg{"InstanceID", "0"})
	if err != nil {
		if control.IsUnsupportedError(err) {
			return control.Fail(err)
		}
		return control.ActionResult{Error: "Failed to get playback info", Err: err}
	}

	info := map[string]any{}
	for key, tag := range map[string]string{
		"track":    "Track",
		"duration": "TrackDuration",
		"position": "RelTime",
		"uri":      "TrackURI",
	} {
		if v, ok := ExtractValue(body, tag); ok {
			info[key] = v
		} else {
			info[key] = nil
		}
	}

	if meta, ok := ExtractValue(body, "TrackMetaData"); ok {
		if md, err := ParseDIDL(meta); err == nil {
			if md.Title != "" {
				info["title"] = md.Title
			}
			if md.Artist != "" {
				info["artist"] = md.Artist
			}
			if md.Album != "" {
				info["album"] = md.Album
			}
		}
	}
	return control.ActionResult{Success: true, Value: info, Raw: body}
}

func (d *Device) powerGet(ctx context.Context, _ control.Args) control.ActionResult {
	if d.probe(ctx) {
		return control.OK("on")
	}
	return control.OK("off")
}

func powerUnsupported(context.Context, control.Args) control.ActionResult {
	return control.Fail(control.NewUnsupportedError("Power control not supported via UPnP"))
}
