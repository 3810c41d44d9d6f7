// Package adapters registers the built-in protocol adapters with a
// discovery engine.
package adapters

import (
	"net/http"
	"time"

	"github.com/muurk/lantern/internal/discovery"
	"github.com/muurk/lantern/internal/roku"
	"github.com/muurk/lantern/internal/upnp"
)

// Config selects the HTTP client used by the adapters. Zero values select
// http.DefaultClient.
type Config struct {
	HTTPClient *http.Client
}

// Options returns the engine options that register every built-in factory.
func (c Config) Options() []discovery.Option {
	var upnpOpts []upnp.Option
	var rokuOpts []roku.Option
	if c.HTTPClient != nil {
		upnpOpts = append(upnpOpts, upnp.WithHTTPClient(c.HTTPClient))
		rokuOpts = append(rokuOpts, roku.WithHTTPClient(c.HTTPClient))
	}
	return []discovery.Option{
		discovery.WithFactory(discovery.ProtocolUPnP, upnp.NewFactory(upnpOpts...)),
		discovery.WithFactory(discovery.ProtocolRoku, roku.NewFactory(rokuOpts...)),
	}
}

// NewEngine returns a discovery engine with the UPnP and Roku adapters
// registered. Extra options are applied after the factories.
func NewEngine(timeout time.Duration, opts ...discovery.Option) *discovery.Engine {
	return discovery.NewEngine(timeout, append(Config{}.Options(), opts...)...)
}
