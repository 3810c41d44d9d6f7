package upnp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	nsDeclPattern   = regexp.MustCompile(`\s+xmlns(?::\w+)?="[^"]*"`)
	nsPrefixPattern = regexp.MustCompile(`<(/?)(\w+):`)
)

// Description is the subset of a UPnP device description the adapter uses.
type Description struct {
	FriendlyName string
	Manufacturer string
	ModelName    string
	// ControlURLs maps RenderingControl, AVTransport and ConnectionManager
	// to absolute control URLs.
	ControlURLs map[string]string
}

// node is a generic element tree.
type node struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

func (n *node) childText(name string) string {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return strings.TrimSpace(n.Nodes[i].Text)
		}
	}
	return ""
}

// find returns the first descendant named name, in document order.
func (n *node) find(name string) *node {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == name {
			return c
		}
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) findAll(name string, out []*node) []*node {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == name {
			out = append(out, c)
		}
		out = c.findAll(name, out)
	}
	return out
}

// StripNamespaces removes namespace declarations and element prefixes so
// vendor documents with odd or broken namespaces parse the same way.
func StripNamespaces(doc []byte) []byte {
	doc = nsDeclPattern.ReplaceAll(doc, nil)
	return nsPrefixPattern.ReplaceAll(doc, []byte("<$1"))
}

// ParseDescription parses a device description document. baseURL is the
// scheme://host prefix used to absolutise relative control URLs.
func ParseDescription(doc []byte, baseURL string) (*Description, error) {
	dec := xml.NewDecoder(bytes.NewReader(StripNamespaces(doc)))
	dec.Strict = false
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var root node
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse device description: %w", err)
	}

	desc := &Description{ControlURLs: make(map[string]string)}
	if dev := root.find("device"); dev != nil {
		desc.FriendlyName = dev.childText("friendlyName")
		desc.Manufacturer = dev.childText("manufacturer")
		desc.ModelName = dev.childText("modelName")
	}

	for _, svc := range root.findAll("service", nil) {
		serviceType := svc.childText("serviceType")
		controlURL := resolveControlURL(baseURL, svc.childText("controlURL"))

		for _, name := range []string{RenderingControl, AVTransport, ConnectionManager} {
			if strings.Contains(serviceType, name) {
				desc.ControlURLs[name] = controlURL
				break
			}
		}
	}
	return desc, nil
}

func resolveControlURL(baseURL, controlURL string) string {
	if controlURL == "" || strings.HasPrefix(controlURL, "http") {
		return controlURL
	}
	if !strings.HasPrefix(controlURL, "/") {
		controlURL = "/" + controlURL
	}
	return baseURL + controlURL
}
