package discovery

import "testing"

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantType   string
		wantVendor string
	}{
		{
			name:       "media renderer in ST",
			headers:    map[string]string{"ST": "urn:schemas-upnp-org:device:MediaRenderer:1", "SERVER": "Linux UPnP/1.0 Sonos/70.3"},
			wantType:   "speaker",
			wantVendor: "Sonos",
		},
		{
			name:     "media renderer in USN only",
			headers:  map[string]string{"USN": "uuid:abc::urn:schemas-upnp-org:device:MediaRenderer:1"},
			wantType: "speaker",
		},
		{
			name:       "media server",
			headers:    map[string]string{"ST": "urn:schemas-upnp-org:device:MediaServer:1", "SERVER": "Samsung AllShare"},
			wantType:   "media_server",
			wantVendor: "Samsung",
		},
		{
			name:     "rendering control service",
			headers:  map[string]string{"ST": "urn:schemas-upnp-org:service:RenderingControl:1"},
			wantType: "speaker",
		},
		{
			name:       "roku",
			headers:    map[string]string{"ST": "roku:ecp", "SERVER": "Roku/9.4.0 UPnP/1.0"},
			wantType:   "unknown",
			wantVendor: "Roku",
		},
		{
			name:     "nothing matches",
			headers:  map[string]string{"ST": "upnp:rootdevice"},
			wantType: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotVendor := DefaultClassifier.Classify(tt.headers)
			if gotType != tt.wantType {
				t.Errorf("type = %q, want %q", gotType, tt.wantType)
			}
			if gotVendor != tt.wantVendor {
				t.Errorf("vendor = %q, want %q", gotVendor, tt.wantVendor)
			}
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := Classifier{
		TypeRules: []Rule{{Headers: []string{"SERVER"}, Substring: "HEOS", Value: "speaker"}},
	}
	typ, vendor := c.Classify(map[string]string{"SERVER": "HEOS/1.0"})
	if typ != "speaker" || vendor != "" {
		t.Errorf("Classify() = (%q, %q), want (speaker, \"\")", typ, vendor)
	}
}
