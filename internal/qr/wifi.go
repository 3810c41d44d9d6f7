package qr

import (
	"fmt"
	"strings"
)

// Security types understood by phone cameras.
const (
	SecurityWPA    = "WPA"
	SecurityWEP    = "WEP"
	SecurityNoPass = "nopass"
)

// WiFiConfig is a decoded Wi-Fi join payload.
type WiFiConfig struct {
	SSID     string `json:"ssid"`
	Password string `json:"password,omitempty"`
	Security string `json:"security"`
	Hidden   bool   `json:"hidden"`
}

var wifiEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `"`, `\"`)

// NormalizeSecurity maps a free-form security name to WPA, WEP or nopass.
// Anything mentioning WPA is WPA; an unknown type with a password is WPA.
func NormalizeSecurity(security, password string) string {
	sec := strings.ToUpper(strings.TrimSpace(security))
	switch {
	case strings.Contains(sec, "WPA"):
		return SecurityWPA
	case strings.Contains(sec, "WEP"):
		return SecurityWEP
	case password == "" || sec == "NONE" || sec == "OPEN" || sec == "NOPASS":
		return SecurityNoPass
	default:
		return SecurityWPA
	}
}

// WiFiPayload builds a WIFI:T:..;S:..;P:..;H:true;; string.
func WiFiPayload(ssid, password, security string, hidden bool) string {
	sec := NormalizeSecurity(security, password)
	parts := []string{"T:" + sec, "S:" + wifiEscaper.Replace(ssid)}
	if password != "" && sec != SecurityNoPass {
		parts = append(parts, "P:"+wifiEscaper.Replace(password))
	}
	if hidden {
		parts = append(parts, "H:true")
	}
	return "WIFI:" + strings.Join(parts, ";") + ";;"
}

// ParseWiFiPayload decodes a payload produced by WiFiPayload or a phone.
func ParseWiFiPayload(payload string) (WiFiConfig, error) {
	body, ok := strings.CutPrefix(payload, "WIFI:")
	if !ok {
		return WiFiConfig{}, fmt.Errorf("not a Wi-Fi payload: missing WIFI: prefix")
	}

	var cfg WiFiConfig
	for _, field := range splitEscaped(body) {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		value = unescape(value)
		switch key {
		case "T":
			cfg.Security = value
		case "S":
			cfg.SSID = value
		case "P":
			cfg.Password = value
		case "H":
			cfg.Hidden = strings.EqualFold(value, "true")
		}
	}
	if cfg.SSID == "" {
		return WiFiConfig{}, fmt.Errorf("Wi-Fi payload has no SSID")
	}
	if cfg.Security == "" {
		cfg.Security = SecurityNoPass
	}
	return cfg, nil
}

// splitEscaped splits on ';' that is not preceded by a backslash escape.
// Escapes are kept so unescape can process each field.
func splitEscaped(s string) []string {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		if c == ';' {
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
			}
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
