package control

import (
	"context"
	"errors"
	"testing"
)

type stubLocator struct {
	devices map[string]Device
	asked   []string
}

func (s *stubLocator) Locate(_ context.Context, ip string) (Device, error) {
	s.asked = append(s.asked, ip)
	if d, ok := s.devices[ip]; ok {
		return d, nil
	}
	return nil, errors.New("not found")
}

type stubBook map[string]string

func (b stubBook) LookupIP(name string) (string, bool) {
	ip, ok := b[name]
	return ip, ok
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Living Room", "living-room"},
		{"Roku (10.0.0.5)", "roku-10.0.0.5"},
		{"already-normal", "already-normal"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLooksLikeIP(t *testing.T) {
	tests := map[string]bool{
		"10.0.0.5":        true,
		"192.168.1.255":   true,
		"10.0.0":          false,
		"living-room":     false,
		"fe80::1":         false,
		"999.1.1.1":       false,
		"::ffff:10.0.0.5": false,
	}
	for in, want := range tests {
		if got := LooksLikeIP(in); got != want {
			t.Errorf("LooksLikeIP(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSessionIndexesByNameAndIP(t *testing.T) {
	s := NewSession(nil, nil)
	d := newFakeDevice(t, true)
	s.Add(d)

	for _, key := range []string{"Fake Speaker", "fake-speaker", "10.0.0.9"} {
		got, ok := s.Get(key)
		if !ok || got.ID() != d.ID() {
			t.Errorf("Get(%q) = %v, %v; want the fake device", key, got, ok)
		}
	}

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (one device, two keys)", s.Len())
	}

	s.Add(d)
	if len(s.Devices()) != 1 {
		t.Errorf("re-adding the same device produced %d entries", len(s.Devices()))
	}

	s.Reset()
	if _, ok := s.Get("10.0.0.9"); ok {
		t.Error("Get() found a device after Reset()")
	}
}

func TestSessionIsolation(t *testing.T) {
	a := NewSession(nil, nil)
	b := NewSession(nil, nil)
	a.Add(newFakeDevice(t, true))

	if b.Len() != 0 {
		t.Error("sessions share state")
	}
}

func TestSessionResolve(t *testing.T) {
	ctx := context.Background()
	remote := newFakeDevice(t, true)

	t.Run("cache hit skips locator", func(t *testing.T) {
		loc := &stubLocator{}
		s := NewSession(loc, nil)
		s.Add(remote)
		if _, ok := s.Resolve(ctx, "fake speaker"); !ok {
			t.Fatal("Resolve() missed a cached device")
		}
		if len(loc.asked) != 0 {
			t.Errorf("locator was asked %v", loc.asked)
		}
	})

	t.Run("saved name resolves through address book", func(t *testing.T) {
		loc := &stubLocator{devices: map[string]Device{"10.0.0.9": remote}}
		s := NewSession(loc, stubBook{"den": "10.0.0.9"})
		d, ok := s.Resolve(ctx, "den")
		if !ok || d.ID() != remote.ID() {
			t.Fatalf("Resolve(den) = %v, %v", d, ok)
		}
		if _, cached := s.Get("10.0.0.9"); !cached {
			t.Error("located device was not cached")
		}
	})

	t.Run("ip triggers targeted discovery", func(t *testing.T) {
		loc := &stubLocator{devices: map[string]Device{"10.0.0.9": remote}}
		s := NewSession(loc, nil)
		if _, ok := s.Resolve(ctx, "10.0.0.9"); !ok {
			t.Fatal("Resolve(ip) failed")
		}
		if len(loc.asked) != 1 || loc.asked[0] != "10.0.0.9" {
			t.Errorf("locator asked %v, want [10.0.0.9]", loc.asked)
		}
	})

	t.Run("unknown name is not found", func(t *testing.T) {
		loc := &stubLocator{}
		s := NewSession(loc, stubBook{})
		if _, ok := s.Resolve(ctx, "kitchen"); ok {
			t.Error("Resolve(kitchen) found something")
		}
		if len(loc.asked) != 0 {
			t.Errorf("locator asked %v for a non-IP name", loc.asked)
		}
	})

	t.Run("locator miss", func(t *testing.T) {
		s := NewSession(&stubLocator{}, nil)
		if _, ok := s.Resolve(ctx, "10.9.9.9"); ok {
			t.Error("Resolve() found a device the locator did not")
		}
	})
}
