package upnp

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/logging"
)

// SOAPTimeout bounds a single action invocation.
const SOAPTimeout = 5 * time.Second

// Service names used as keys in the control URL table.
const (
	RenderingControl  = "RenderingControl"
	AVTransport       = "AVTransport"
	ConnectionManager = "ConnectionManager"
)

// Arg is one action argument. Order is preserved in the envelope.
type Arg struct {
	Name  string
	Value string
}

// ServiceURN returns the version 1 service type URN for a service name.
func ServiceURN(service string) string {
	return "urn:schemas-upnp-org:service:" + service + ":1"
}

// Envelope builds the SOAP 1.1 request body for an action.
func Envelope(service, action string, args []Arg) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	b.WriteString(`<s:Body>`)
	fmt.Fprintf(&b, `<u:%s xmlns:u="%s">`, action, ServiceURN(service))
	for _, a := range args {
		fmt.Fprintf(&b, "<%s>%s</%s>", a.Name, html.EscapeString(a.Value), a.Name)
	}
	fmt.Fprintf(&b, `</u:%s>`, action)
	b.WriteString(`</s:Body></s:Envelope>`)
	return b.String()
}

// SOAPClient invokes UPnP actions over HTTP.
type SOAPClient struct {
	HTTPClient *http.Client
	// DeviceIP is used to attribute transport errors.
	DeviceIP string
}

// Call POSTs an action to controlURL and returns the raw response body.
func (c *SOAPClient) Call(ctx context.Context, controlURL, service, action string, args []Arg) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, SOAPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, strings.NewReader(Envelope(service, action, args)))
	if err != nil {
		return "", control.NewParseError("invalid control URL "+controlURL, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", `"`+ServiceURN(service)+"#"+action+`"`)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logging.LogSOAPCall(controlURL, service, action, 0, time.Since(start))
		return "", control.NewNetworkError(c.DeviceIP, action+" request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	logging.LogSOAPCall(controlURL, service, action, resp.StatusCode, time.Since(start))
	if err != nil {
		return "", control.NewNetworkError(c.DeviceIP, "failed to read "+action+" response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", control.NewHTTPError(c.DeviceIP, resp.StatusCode, fmt.Sprintf("%s returned %s", action, resp.Status))
	}
	return string(body), nil
}

// ExtractValue returns the text of the first element with the given local
// name. Matching is by regular expression and ignores namespace prefixes
// on the surrounding envelope, which vendors do not apply consistently.
func ExtractValue(body, name string) (string, bool) {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?i)<` + q + `[^>]*>([^<]*)</` + q + `>`)
	m := re.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}
