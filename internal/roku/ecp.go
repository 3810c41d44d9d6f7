package roku

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/logging"
)

const (
	// Port is the ECP HTTP port.
	Port = 8060

	// RequestTimeout bounds queries and key presses.
	RequestTimeout = 5 * time.Second
	// ProbeTimeout bounds the reachability check.
	ProbeTimeout = 2 * time.Second
)

// DeviceInfo is the subset of /query/device-info the adapter reads.
type DeviceInfo struct {
	UserDeviceName     string `xml:"user-device-name"`
	FriendlyDeviceName string `xml:"friendly-device-name"`
	ModelName          string `xml:"model-name"`
	SerialNumber       string `xml:"serial-number"`
	SoftwareVersion    string `xml:"software-version"`
	PowerMode          string `xml:"power-mode"`
}

// DisplayName returns the user-assigned name, falling back to the friendly name.
func (i DeviceInfo) DisplayName() string {
	if n := strings.TrimSpace(i.UserDeviceName); n != "" {
		return n
	}
	return strings.TrimSpace(i.FriendlyDeviceName)
}

// App is an installed channel.
type App struct {
	ID   string `xml:"id,attr"`
	Name string `xml:",chardata"`
}

// Client speaks the External Control Protocol.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// DeviceIP attributes transport errors.
	DeviceIP string
}

// NewClient returns a client for the player at ip.
func NewClient(ip string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:    fmt.Sprintf("http://%s:%d", ip, Port),
		HTTPClient: httpClient,
		DeviceIP:   ip,
	}
}

// DeviceInfo fetches /query/device-info.
func (c *Client) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo
	err := c.query(ctx, "/query/device-info", RequestTimeout, &info)
	return info, err
}

// Apps fetches /query/apps in document order, skipping entries without an
// id or a name.
func (c *Client) Apps(ctx context.Context) ([]App, error) {
	var doc struct {
		Apps []App `xml:"app"`
	}
	if err := c.query(ctx, "/query/apps", RequestTimeout, &doc); err != nil {
		return nil, err
	}
	apps := make([]App, 0, len(doc.Apps))
	for _, a := range doc.Apps {
		a.Name = strings.TrimSpace(a.Name)
		if a.ID != "" && a.Name != "" {
			apps = append(apps, a)
		}
	}
	return apps, nil
}

// ActiveApp fetches /query/active-app. ok is false when the reply names no app.
func (c *Client) ActiveApp(ctx context.Context) (app App, ok bool, err error) {
	var doc struct {
		App *App `xml:"app"`
	}
	if err := c.query(ctx, "/query/active-app", RequestTimeout, &doc); err != nil {
		return App{}, false, err
	}
	if doc.App == nil {
		return App{}, false, nil
	}
	doc.App.Name = strings.TrimSpace(doc.App.Name)
	return *doc.App, true, nil
}

// Ping reports whether device-info answers within ProbeTimeout.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.get(ctx, "/query/device-info", ProbeTimeout)
	return err == nil
}

// Keypress sends one remote key.
func (c *Client) Keypress(ctx context.Context, key string) error {
	return c.post(ctx, "/keypress/"+url.PathEscape(key))
}

// Launch starts an installed app.
func (c *Client) Launch(ctx context.Context, appID string) error {
	return c.post(ctx, "/launch/"+url.PathEscape(appID))
}

func (c *Client) query(ctx context.Context, path string, timeout time.Duration, v any) error {
	body, err := c.get(ctx, path, timeout)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return control.NewParseError("invalid response from "+path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, control.NewParseError("invalid ECP URL", err)
	}
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogECPCall(http.MethodGet, path, 0, time.Since(start))
		return nil, control.NewNetworkError(c.DeviceIP, "GET "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	logging.LogECPCall(http.MethodGet, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, control.NewHTTPError(c.DeviceIP, resp.StatusCode, "GET "+path+" returned "+resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, control.NewNetworkError(c.DeviceIP, "failed to read "+path, err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, http.NoBody)
	if err != nil {
		return control.NewParseError("invalid ECP URL", err)
	}
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogECPCall(http.MethodPost, path, 0, time.Since(start))
		return control.NewNetworkError(c.DeviceIP, "POST "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	logging.LogECPCall(http.MethodPost, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		return control.NewHTTPError(c.DeviceIP, resp.StatusCode, "POST "+path+" returned "+resp.Status)
	}
	return nil
}
