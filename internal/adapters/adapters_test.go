package adapters

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/discovery"
)

type staticProbe struct {
	name    string
	devices []discovery.DiscoveredDevice
}

func (p staticProbe) Name() string { return p.name }

func (p staticProbe) Discover(context.Context, time.Duration) ([]discovery.DiscoveredDevice, error) {
	return p.devices, nil
}

// lanTransport answers as a Roku at 10.0.0.5 and a renderer at 10.0.0.7.
type lanTransport struct {
	mu   sync.Mutex
	reqs []string
}

func (rt *lanTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.reqs = append(rt.reqs, r.Method+" "+r.URL.String())
	rt.mu.Unlock()

	status, body := http.StatusOK, ""
	switch r.URL.String() {
	case "http://10.0.0.5:8060/query/device-info":
		body = `<device-info><user-device-name>Den TV</user-device-name><model-name>Roku Express</model-name></device-info>`
	case "http://10.0.0.5:8060/query/apps":
		body = `<apps><app id="12">Netflix</app></apps>`
	case "http://10.0.0.7:1400/desc.xml":
		body = `<root xmlns="urn:schemas-upnp-org:device-1-0"><device><friendlyName>Office</friendlyName>
<serviceList><service><serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
<controlURL>/rc</controlURL></service></serviceList></device></root>`
	case "http://10.0.0.7:1400/rc":
		body = `<s:Envelope><s:Body><u:GetVolumeResponse><CurrentVolume>42</CurrentVolume></u:GetVolumeResponse></s:Body></s:Envelope>`
	case "http://10.0.0.5:8060/keypress/PowerOn":
	default:
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    r,
	}, nil
}

func TestDiscoverAndControl(t *testing.T) {
	rt := &lanTransport{}
	cfg := Config{HTTPClient: &http.Client{Transport: rt}}
	probes := discovery.WithProbes(
		staticProbe{name: "upnp", devices: []discovery.DiscoveredDevice{
			{IP: "10.0.0.7", Protocol: discovery.ProtocolUPnP, Location: "http://10.0.0.7:1400/desc.xml"},
			{IP: "10.0.0.9", Protocol: discovery.ProtocolUPnP}, // no location, skipped
		}},
		staticProbe{name: "roku", devices: []discovery.DiscoveredDevice{
			{IP: "10.0.0.5", Protocol: discovery.ProtocolRoku, Name: "Roku"},
			{IP: "10.0.0.7", Protocol: discovery.ProtocolRoku}, // duplicate IP, dropped
		}},
	)
	engine := discovery.NewEngine(time.Second, append(cfg.Options(), probes, discovery.WithLogger(zap.NewNop()))...)

	devices := engine.DiscoverAndCreateDevices(context.Background())
	if len(devices) != 2 {
		t.Fatalf("DiscoverAndCreateDevices() returned %d devices, want 2", len(devices))
	}

	session := control.NewSession(engine, nil)
	session.Replace(devices)

	office, ok := session.Get("office")
	if !ok {
		t.Fatal("renderer not indexed under its friendly name")
	}
	res := office.Execute(context.Background(), "volume", "get", nil)
	if !res.Success || res.Value != 42 {
		t.Errorf("volume.get = %+v, want 42", res)
	}

	roku, ok := session.Get("10.0.0.5")
	if !ok {
		t.Fatal("roku not indexed by IP")
	}
	res = roku.Execute(context.Background(), "power", "on", nil)
	if !res.Success {
		t.Fatalf("power.on = %+v", res)
	}
	if roku.Name() != "Den TV" {
		t.Errorf("roku name = %q, want Den TV after connect", roku.Name())
	}

	rt.mu.Lock()
	last := rt.reqs[len(rt.reqs)-1]
	rt.mu.Unlock()
	if last != "POST http://10.0.0.5:8060/keypress/PowerOn" {
		t.Errorf("last request = %q", last)
	}
}

func TestNewEngineRegistersFactories(t *testing.T) {
	e := NewEngine(time.Second, discovery.WithProbes(), discovery.WithLogger(zap.NewNop()))
	dev := e.Adapter(context.Background(), discovery.DiscoveredDevice{IP: "10.0.0.5", Protocol: discovery.ProtocolRoku})
	if dev == nil || dev.ID() != "roku_10.0.0.5" {
		t.Errorf("Adapter(roku) = %v", dev)
	}
}
