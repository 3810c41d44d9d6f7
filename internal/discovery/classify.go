package discovery

import "strings"

// Rule matches a substring in any of the listed SSDP headers.
type Rule struct {
	Headers   []string // upper-case header names
	Substring string
	Value     string
}

func (r Rule) matches(headers map[string]string) bool {
	for _, h := range r.Headers {
		if strings.Contains(headers[h], r.Substring) {
			return true
		}
	}
	return false
}

// Classifier guesses device type and vendor from SSDP headers. It is a
// best-effort heuristic: the first matching rule in each table wins.
type Classifier struct {
	TypeRules   []Rule
	VendorRules []Rule
}

// DefaultClassifier holds the built-in rule tables.
var DefaultClassifier = Classifier{
	TypeRules: []Rule{
		{Headers: []string{"ST", "USN"}, Substring: "MediaRenderer", Value: "speaker"},
		{Headers: []string{"ST", "USN"}, Substring: "MediaServer", Value: "media_server"},
		{Headers: []string{"ST"}, Substring: "RenderingControl", Value: "speaker"},
	},
	VendorRules: []Rule{
		{Headers: []string{"SERVER"}, Substring: "Bose", Value: "Bose"},
		{Headers: []string{"SERVER"}, Substring: "Sonos", Value: "Sonos"},
		{Headers: []string{"SERVER"}, Substring: "Samsung", Value: "Samsung"},
		{Headers: []string{"SERVER"}, Substring: "LG", Value: "LG"},
		{Headers: []string{"SERVER"}, Substring: "Roku", Value: "Roku"},
	},
}

// Classify returns the inferred device type ("unknown" when nothing
// matches) and manufacturer ("" when nothing matches).
func (c Classifier) Classify(headers map[string]string) (deviceType, manufacturer string) {
	deviceType = "unknown"
	for _, r := range c.TypeRules {
		if r.matches(headers) {
			deviceType = r.Value
			break
		}
	}
	for _, r := range c.VendorRules {
		if r.matches(headers) {
			manufacturer = r.Value
			break
		}
	}
	return deviceType, manufacturer
}
