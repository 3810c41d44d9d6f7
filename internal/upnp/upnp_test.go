package upnp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/discovery"
)

const testDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0" xmlns:bose="http://www.bose.com/upnp">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>Kitchen Speaker</friendlyName>
    <manufacturer>Bose Corporation</manufacturer>
    <modelName>SoundTouch 10</modelName>
    <bose:extra>ignored</bose:extra>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
        <controlURL>ctl/rc</controlURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <controlURL>/ctl/avt</controlURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ConnectionManager:1</serviceType>
        <controlURL>http://elsewhere:49152/ctl/cm</controlURL>
      </service>
    </serviceList>
  </device>
</root>`

type soapCall struct {
	Path       string
	SOAPAction string
	Body       string
}

type fakeRenderer struct {
	mu          sync.Mutex
	calls       []soapCall
	description string
	responses   map[string]string // SOAP action -> response body
	status      int
}

func newFakeRenderer(t *testing.T) (*fakeRenderer, *httptest.Server) {
	t.Helper()
	f := &fakeRenderer{
		description: testDescription,
		responses:   map[string]string{},
		status:      http.StatusOK,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Path != "/desc.xml" {
				http.NotFound(w, r)
				return
			}
			_, _ = io.WriteString(w, f.description)
			return
		}
		body, _ := io.ReadAll(r.Body)
		action := r.Header.Get("SOAPAction")
		f.mu.Lock()
		f.calls = append(f.calls, soapCall{Path: r.URL.Path, SOAPAction: action, Body: string(body)})
		status := f.status
		f.mu.Unlock()

		w.WriteHeader(status)
		_, name, _ := strings.Cut(strings.Trim(action, `"`), "#")
		_, _ = io.WriteString(w, f.responses[name])
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRenderer) lastCall(t *testing.T) soapCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no SOAP calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func newConnected(t *testing.T, srv *httptest.Server) *Device {
	t.Helper()
	d, err := New(control.Identity{ID: "upnp_127.0.0.1", Name: "UPnP Device (127.0.0.1)", IP: "127.0.0.1", Type: "speaker"},
		srv.URL+"/desc.xml", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return d
}

func soapResponse(action, inner string) string {
	return `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		`<u:` + action + `Response xmlns:u="urn:schemas-upnp-org:service:RenderingControl:1">` + inner +
		`</u:` + action + `Response></s:Body></s:Envelope>`
}

func TestConnect(t *testing.T) {
	_, srv := newFakeRenderer(t)
	d := newConnected(t, srv)

	if d.Name() != "Kitchen Speaker" {
		t.Errorf("Name() = %q", d.Name())
	}
	if d.Manufacturer() != "Bose Corporation" || d.Model() != "SoundTouch 10" {
		t.Errorf("Manufacturer/Model = %q/%q", d.Manufacturer(), d.Model())
	}
	if got, want := d.ControlURL(RenderingControl), srv.URL+"/ctl/rc"; got != want {
		t.Errorf("RenderingControl URL = %q, want %q", got, want)
	}
	if got, want := d.ControlURL(AVTransport), srv.URL+"/ctl/avt"; got != want {
		t.Errorf("AVTransport URL = %q, want %q", got, want)
	}
	if got := d.ControlURL(ConnectionManager); got != "http://elsewhere:49152/ctl/cm" {
		t.Errorf("ConnectionManager URL = %q", got)
	}

	var names []string
	for _, c := range d.Capabilities() {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "volume,playback,now_playing,power" {
		t.Errorf("capabilities = %v", names)
	}
	if !d.State().IsOnline || d.State().LastSeen == nil {
		t.Error("state not marked online after connect")
	}

	// Reconnecting must not duplicate capabilities.
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if len(d.Capabilities()) != 4 {
		t.Errorf("capabilities after reconnect = %d, want 4", len(d.Capabilities()))
	}
}

func TestConnect_CapabilitiesFollowServices(t *testing.T) {
	f, srv := newFakeRenderer(t)
	f.description = `<root><device><friendlyName>Bare</friendlyName></device></root>`
	d := newConnected(t, srv)

	caps := d.Capabilities()
	if len(caps) != 1 || caps[0].Name != "power" {
		t.Errorf("capabilities = %v, want only power", caps)
	}
	res := d.Execute(context.Background(), "volume", "get", nil)
	if res.Success || res.Error != "Unknown capability: volume" {
		t.Errorf("volume.get on bare device = %+v", res)
	}
}

func TestVolumeGet(t *testing.T) {
	f, srv := newFakeRenderer(t)
	f.responses["GetVolume"] = soapResponse("GetVolume", "<CurrentVolume>42</CurrentVolume>")
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "volume", "get", nil)
	if !res.Success || res.Value != 42 {
		t.Fatalf("volume.get = %+v, want 42", res)
	}
	if got := d.State().Get("volume", nil); got != 42 {
		t.Errorf("state volume = %v, want 42", got)
	}

	call := f.lastCall(t)
	if call.Path != "/ctl/rc" {
		t.Errorf("path = %q", call.Path)
	}
	if call.SOAPAction != `"urn:schemas-upnp-org:service:RenderingControl:1#GetVolume"` {
		t.Errorf("SOAPAction = %q", call.SOAPAction)
	}
	if !strings.Contains(call.Body, "<InstanceID>0</InstanceID><Channel>Master</Channel>") {
		t.Errorf("body = %q", call.Body)
	}
}

func TestVolumeGet_Unparseable(t *testing.T) {
	f, srv := newFakeRenderer(t)
	f.responses["GetVolume"] = soapResponse("GetVolume", "<Other>1</Other>")
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "volume", "get", nil)
	if res.Success || res.Error != "Failed to get volume" {
		t.Errorf("volume.get = %+v, want failure", res)
	}
}

func TestVolumeSet(t *testing.T) {
	tests := []struct {
		name      string
		args      control.Args
		wantOK    bool
		wantLevel int
		wantErr   string
	}{
		{name: "in range", args: control.Args{"level": 30}, wantOK: true, wantLevel: 30},
		{name: "float level", args: control.Args{"level": 30.0}, wantOK: true, wantLevel: 30},
		{name: "missing level", args: control.Args{}, wantErr: "Volume level required"},
		{name: "out of range rejected", args: control.Args{"level": 150}, wantErr: "'level' must be between 0 and 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeRenderer(t)
			d := newConnected(t, srv)

			res := d.Execute(context.Background(), "volume", "set", tt.args)
			if res.Success != tt.wantOK {
				t.Fatalf("volume.set = %+v", res)
			}
			if !tt.wantOK {
				if res.Error != tt.wantErr {
					t.Errorf("Error = %q, want %q", res.Error, tt.wantErr)
				}
				return
			}
			if res.Value != tt.wantLevel {
				t.Errorf("Value = %v, want %d", res.Value, tt.wantLevel)
			}
			call := f.lastCall(t)
			if !strings.Contains(call.Body, "<DesiredVolume>30</DesiredVolume>") {
				t.Errorf("body = %q", call.Body)
			}
		})
	}
}

func TestVolumeUpDown(t *testing.T) {
	f, srv := newFakeRenderer(t)
	f.responses["GetVolume"] = soapResponse("GetVolume", "<CurrentVolume>98</CurrentVolume>")
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "volume", "up", nil)
	if !res.Success || res.Value != 100 {
		t.Fatalf("volume.up = %+v, want clamp to 100", res)
	}
	f.mu.Lock()
	n := len(f.calls)
	f.mu.Unlock()
	if n != 2 {
		t.Errorf("calls = %d, want GetVolume then SetVolume", n)
	}

	res = d.Execute(context.Background(), "volume", "down", control.Args{"step": 10})
	if !res.Success || res.Value != 90 {
		t.Errorf("volume.down = %+v, want 90 from cached 100", res)
	}
}

func TestVolumeUp_DefaultsWhenGetFails(t *testing.T) {
	_, srv := newFakeRenderer(t)
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "volume", "up", nil)
	if !res.Success || res.Value != 55 {
		t.Errorf("volume.up = %+v, want 55 from default 50", res)
	}
}

func TestMute(t *testing.T) {
	f, srv := newFakeRenderer(t)
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "volume", "mute", nil)
	if !res.Success || res.Value != true {
		t.Fatalf("volume.mute = %+v", res)
	}
	if !strings.Contains(f.lastCall(t).Body, "<DesiredMute>1</DesiredMute>") {
		t.Errorf("mute body = %q", f.lastCall(t).Body)
	}
	if d.State().Get("muted", nil) != true {
		t.Error("muted state not set")
	}

	res = d.Execute(context.Background(), "volume", "unmute", nil)
	if !res.Success || res.Value != false {
		t.Fatalf("volume.unmute = %+v", res)
	}
	if !strings.Contains(f.lastCall(t).Body, "<DesiredMute>0</DesiredMute>") {
		t.Errorf("unmute body = %q", f.lastCall(t).Body)
	}
}

func TestPlayback(t *testing.T) {
	tests := []struct {
		action   string
		soap     string
		wantBody string
	}{
		{"play", "Play", "<InstanceID>0</InstanceID><Speed>1</Speed>"},
		{"pause", "Pause", "<InstanceID>0</InstanceID></u:Pause>"},
		{"stop", "Stop", "<InstanceID>0</InstanceID></u:Stop>"},
		{"next", "Next", "<InstanceID>0</InstanceID></u:Next>"},
		{"previous", "Previous", "<InstanceID>0</InstanceID></u:Previous>"},
	}
	f, srv := newFakeRenderer(t)
	d := newConnected(t, srv)

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			res := d.Execute(context.Background(), "playback", tt.action, nil)
			if !res.Success {
				t.Fatalf("playback.%s = %+v", tt.action, res)
			}
			call := f.lastCall(t)
			if call.Path != "/ctl/avt" {
				t.Errorf("path = %q", call.Path)
			}
			if want := `"urn:schemas-upnp-org:service:AVTransport:1#` + tt.soap + `"`; call.SOAPAction != want {
				t.Errorf("SOAPAction = %q, want %q", call.SOAPAction, want)
			}
			if !strings.Contains(call.Body, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", call.Body, tt.wantBody)
			}
		})
	}
}

func TestPlayback_SOAPFault(t *testing.T) {
	f, srv := newFakeRenderer(t)
	d := newConnected(t, srv)
	f.status = http.StatusInternalServerError

	res := d.Execute(context.Background(), "playback", "play", nil)
	if res.Success {
		t.Fatal("playback.play should fail on a SOAP fault")
	}
	if !strings.Contains(res.Error, "HTTP") {
		t.Errorf("Error = %q, want an HTTP error", res.Error)
	}
}

func TestNowPlaying(t *testing.T) {
	didl := `&lt;DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/"&gt;` +
		`&lt;item&gt;&lt;dc:title&gt;Blue in Green&lt;/dc:title&gt;&lt;upnp:artist&gt;Miles Davis&lt;/upnp:artist&gt;` +
		`&lt;/item&gt;&lt;/DIDL-Lite&gt;`
	f, srv := newFakeRenderer(t)
	f.responses["GetPositionInfo"] = soapResponse("GetPositionInfo",
		"<Track>3</Track><TrackDuration>0:05:37</TrackDuration><TrackMetaData>"+didl+
			"</TrackMetaData><TrackURI>http://nas/blue.flac</TrackURI><RelTime>0:01:02</RelTime>")
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "now_playing", "get", nil)
	if !res.Success {
		t.Fatalf("now_playing.get = %+v", res)
	}
	info, ok := res.Value.(map[string]any)
	if !ok {
		t.Fatalf("Value = %T, want map", res.Value)
	}
	want := map[string]string{
		"track":    "3",
		"duration": "0:05:37",
		"position": "0:01:02",
		"uri":      "http://nas/blue.flac",
		"title":    "Blue in Green",
		"artist":   "Miles Davis",
	}
	for k, v := range want {
		if info[k] != v {
			t.Errorf("info[%s] = %v, want %q", k, info[k], v)
		}
	}
}

func TestNowPlaying_NotImplementedMetadata(t *testing.T) {
	f, srv := newFakeRenderer(t)
	f.responses["GetPositionInfo"] = soapResponse("GetPositionInfo",
		"<Track>0</Track><TrackMetaData>NOT_IMPLEMENTED</TrackMetaData>")
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "now_playing", "get", nil)
	info := res.Value.(map[string]any)
	if _, has := info["title"]; has {
		t.Error("title should be absent")
	}
	if info["duration"] != nil {
		t.Errorf("duration = %v, want nil", info["duration"])
	}
}

func TestPower(t *testing.T) {
	_, srv := newFakeRenderer(t)
	d := newConnected(t, srv)

	res := d.Execute(context.Background(), "power", "get", nil)
	if !res.Success || res.Value != "on" {
		t.Errorf("power.get = %+v, want on", res)
	}
	for _, action := range []string{"on", "off", "toggle"} {
		res := d.Execute(context.Background(), "power", action, nil)
		if res.Success || res.Error != "Power control not supported via UPnP" {
			t.Errorf("power.%s = %+v", action, res)
		}
	}
}

func TestUnreachableDeviceFailsSoft(t *testing.T) {
	d, err := New(control.Identity{ID: "upnp_192.0.2.1", IP: "192.0.2.1"}, "http://192.0.2.1:1/desc.xml",
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pairs := map[string][]string{
		"volume":      {"get", "set", "up", "down", "mute", "unmute"},
		"playback":    {"play", "pause", "stop", "next", "previous"},
		"now_playing": {"get"},
		"power":       {"get", "on", "off", "toggle"},
	}
	for capName, actions := range pairs {
		for _, action := range actions {
			res := d.Execute(context.Background(), capName, action, control.Args{})
			if res.Success {
				t.Errorf("%s.%s succeeded on an unreachable device", capName, action)
			}
		}
	}
	if d.State().IsOnline {
		t.Error("unreachable device reported online")
	}
}

func TestRefreshState(t *testing.T) {
	f, srv := newFakeRenderer(t)
	f.responses["GetVolume"] = soapResponse("GetVolume", "<CurrentVolume>17</CurrentVolume>")
	d := newConnected(t, srv)

	state := d.RefreshState(context.Background())
	if !state.IsOnline {
		t.Error("IsOnline = false")
	}
	if state.Get("volume", nil) != 17 {
		t.Errorf("volume = %v, want 17", state.Get("volume", nil))
	}
}

func TestFactory(t *testing.T) {
	_, srv := newFakeRenderer(t)
	factory := NewFactory(WithHTTPClient(srv.Client()))

	dev, err := factory(context.Background(), discovery.DiscoveredDevice{IP: "127.0.0.1", Protocol: discovery.ProtocolUPnP, Location: srv.URL + "/desc.xml"})
	if err != nil || dev == nil {
		t.Fatalf("factory() = %v, %v", dev, err)
	}
	if dev.ID() != "upnp_127.0.0.1" || dev.Name() != "Kitchen Speaker" {
		t.Errorf("device = %s %q", dev.ID(), dev.Name())
	}

	dev, err = factory(context.Background(), discovery.DiscoveredDevice{IP: "10.0.0.9"})
	if dev != nil || err != nil {
		t.Errorf("factory() without location = %v, %v, want nil, nil", dev, err)
	}

	if _, err := factory(context.Background(), discovery.DiscoveredDevice{IP: "127.0.0.1", Location: srv.URL + "/missing.xml"}); err == nil {
		t.Error("factory() should fail when the description cannot be fetched")
	}
}
