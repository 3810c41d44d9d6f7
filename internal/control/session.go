package control

import (
	"context"
	"net"
	"strings"
)

// Locator finds a single device by IP, usually through a short targeted
// discovery run.
type Locator interface {
	Locate(ctx context.Context, ip string) (Device, error)
}

// AddressBook resolves a saved device name to an IP address.
type AddressBook interface {
	LookupIP(name string) (string, bool)
}

// Session owns the devices found during one CLI invocation. Devices are
// indexed under their normalised name and their IP address.
type Session struct {
	Locator     Locator
	AddressBook AddressBook

	index map[string]Device
	order []Device
}

// NewSession returns an empty session.
func NewSession(locator Locator, book AddressBook) *Session {
	return &Session{
		Locator:     locator,
		AddressBook: book,
		index:       make(map[string]Device),
	}
}

// NormalizeName lower-cases a device name, turns spaces into dashes and
// drops parentheses: "Living Room (TV)" becomes "living-room-tv".
func NormalizeName(name string) string {
	key := strings.ToLower(name)
	key = strings.ReplaceAll(key, " ", "-")
	key = strings.ReplaceAll(key, "(", "")
	key = strings.ReplaceAll(key, ")", "")
	return key
}

// LooksLikeIP reports whether s is a dotted IPv4 address.
func LooksLikeIP(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && !strings.Contains(s, ":")
}

// Add indexes a device. A later device with the same key replaces the earlier one.
func (s *Session) Add(d Device) {
	if s.index == nil {
		s.index = make(map[string]Device)
	}
	if _, seen := s.byID(d.ID()); !seen {
		s.order = append(s.order, d)
	} else {
		for i, existing := range s.order {
			if existing.ID() == d.ID() {
				s.order[i] = d
			}
		}
	}
	s.index[NormalizeName(d.Name())] = d
	s.index[d.IP()] = d
}

// Replace clears the session and indexes devices, as after a fresh discovery.
func (s *Session) Replace(devices []Device) {
	s.Reset()
	for _, d := range devices {
		s.Add(d)
	}
}

// Get looks a device up by normalised name, then by the raw key.
func (s *Session) Get(nameOrIP string) (Device, bool) {
	if d, ok := s.index[NormalizeName(nameOrIP)]; ok {
		return d, true
	}
	d, ok := s.index[nameOrIP]
	return d, ok
}

// Devices returns each cached device once, in the order first added.
func (s *Session) Devices() []Device {
	out := make([]Device, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of distinct devices.
func (s *Session) Len() int {
	return len(s.order)
}

// Reset empties the cache.
func (s *Session) Reset() {
	s.index = make(map[string]Device)
	s.order = nil
}

// Resolve finds a device by cache, then by saved name, then by treating the
// argument as an IP address. Anything found through the Locator is cached.
func (s *Session) Resolve(ctx context.Context, nameOrIP string) (Device, bool) {
	if d, ok := s.Get(nameOrIP); ok {
		return d, true
	}

	target := ""
	if s.AddressBook != nil {
		if ip, ok := s.AddressBook.LookupIP(nameOrIP); ok {
			target = ip
		}
	}
	if target == "" && LooksLikeIP(nameOrIP) {
		target = nameOrIP
	}
	if target == "" || s.Locator == nil {
		return nil, false
	}
	if d, ok := s.Get(target); ok {
		return d, true
	}

	d, err := s.Locator.Locate(ctx, target)
	if err != nil || d == nil {
		return nil, false
	}
	s.Add(d)
	return d, true
}

func (s *Session) byID(id string) (Device, bool) {
	for _, d := range s.order {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}
