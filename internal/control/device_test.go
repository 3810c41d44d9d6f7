package control

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeDevice is a minimal adapter used to exercise Base.
type fakeDevice struct {
	*Base
	reachable    bool
	connectCalls int
	calls        []string
	lastArgs     Args
}

func newFakeDevice(t *testing.T, reachable bool) *fakeDevice {
	t.Helper()
	d := &fakeDevice{reachable: reachable}

	record := func(name string) Handler {
		return func(_ context.Context, args Args) ActionResult {
			d.calls = append(d.calls, name)
			d.lastArgs = args
			return OK(name)
		}
	}

	catalog := []Capability{VolumeCapability(), PowerCapability()}
	handlers := Handlers{
		"volume": {
			"get":    record("volume.get"),
			"set":    record("volume.set"),
			"up":     record("volume.up"),
			"down":   record("volume.down"),
			"mute":   record("volume.mute"),
			"unmute": record("volume.unmute"),
		},
		"power": {
			"get":    record("power.get"),
			"on":     record("power.on"),
			"off":    record("power.off"),
			"toggle": record("power.toggle"),
		},
	}

	base, err := NewBase(
		Identity{ID: "fake_10.0.0.9", Name: "Fake Speaker", IP: "10.0.0.9", Type: "speaker"},
		catalog,
		handlers,
		Hooks{
			Connect: func(context.Context) ([]Capability, error) {
				d.connectCalls++
				if !d.reachable {
					return nil, NewNetworkError("10.0.0.9", "connect failed", errors.New("no route"))
				}
				return []Capability{VolumeCapability(), PowerCapability()}, nil
			},
			Probe: func(context.Context) bool { return d.reachable },
			Refresh: func(_ context.Context, s *DeviceState) {
				s.Set("volume", 30)
			},
		},
	)
	if err != nil {
		t.Fatalf("NewBase() error = %v", err)
	}
	d.Base = base
	return d
}

func TestNewBaseRejectsMismatchedHandlers(t *testing.T) {
	noop := func(context.Context, Args) ActionResult { return OK(nil) }
	hooks := Hooks{
		Connect: func(context.Context) ([]Capability, error) { return nil, nil },
		Probe:   func(context.Context) bool { return true },
	}

	tests := []struct {
		name     string
		catalog  []Capability
		handlers Handlers
		hooks    Hooks
		wantErr  string
	}{
		{
			name:     "missing handler",
			catalog:  []Capability{PowerCapability()},
			handlers: Handlers{"power": {"get": noop, "on": noop, "off": noop}},
			hooks:    hooks,
			wantErr:  "no handler for power.toggle",
		},
		{
			name:     "handler for undeclared action",
			catalog:  []Capability{{Name: "power", Actions: []string{"get"}}},
			handlers: Handlers{"power": {"get": noop, "reboot": noop}},
			hooks:    hooks,
			wantErr:  "undeclared action power.reboot",
		},
		{
			name:     "handler for undeclared capability",
			catalog:  []Capability{{Name: "power", Actions: []string{"get"}}},
			handlers: Handlers{"power": {"get": noop}, "lights": {"on": noop}},
			hooks:    hooks,
			wantErr:  `undeclared capability "lights"`,
		},
		{
			name:     "duplicate capability",
			catalog:  []Capability{{Name: "power"}, {Name: "power"}},
			handlers: Handlers{},
			hooks:    hooks,
			wantErr:  "declared twice",
		},
		{
			name:     "missing hooks",
			catalog:  nil,
			handlers: Handlers{},
			hooks:    Hooks{},
			wantErr:  "hooks are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBase(Identity{ID: "x"}, tt.catalog, tt.handlers, tt.hooks)
			if err == nil {
				t.Fatalf("NewBase() = nil error, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewBase() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	d := newFakeDevice(t, true)
	ctx := context.Background()

	if err := d.Connect(ctx); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	first := d.Capabilities()

	if err := d.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	second := d.Capabilities()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("capabilities changed between connects:\n first = %v\nsecond = %v", first, second)
	}
	if len(second) != 2 {
		t.Errorf("len(Capabilities()) = %d, want 2", len(second))
	}
	if !d.State().IsOnline || d.State().LastSeen == nil {
		t.Error("Connect() should mark the device online with a last-seen time")
	}
}

func TestConnectFailureMarksOffline(t *testing.T) {
	d := newFakeDevice(t, false)

	err := d.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() = nil, want error")
	}
	if !IsNetworkError(err) {
		t.Errorf("Connect() error = %v, want network error", err)
	}
	if d.Connected() || d.State().IsOnline {
		t.Error("failed Connect() should leave the device disconnected and offline")
	}
}

func TestExecuteFailsSoftWhenUnreachable(t *testing.T) {
	d := newFakeDevice(t, false)
	ctx := context.Background()

	for _, c := range []Capability{VolumeCapability(), PowerCapability()} {
		for _, action := range c.Actions {
			res := d.Execute(ctx, c.Name, action, nil)
			if res.Success {
				t.Errorf("Execute(%s.%s) succeeded on an unreachable device", c.Name, action)
			}
			if res.Error != "Device not connected" {
				t.Errorf("Execute(%s.%s) error = %q, want \"Device not connected\"", c.Name, action, res.Error)
			}
		}
	}
	if len(d.calls) != 0 {
		t.Errorf("handlers ran on an unreachable device: %v", d.calls)
	}
}

func TestExecuteReconnectsOnce(t *testing.T) {
	d := newFakeDevice(t, true)
	ctx := context.Background()

	res := d.Execute(ctx, "power", "on", nil)
	if !res.Success || res.Value != "power.on" {
		t.Fatalf("Execute(power.on) = %+v, want success", res)
	}
	if d.connectCalls != 1 {
		t.Errorf("connectCalls = %d, want 1", d.connectCalls)
	}

	d.Execute(ctx, "power", "off", nil)
	if d.connectCalls != 1 {
		t.Errorf("connectCalls after second Execute = %d, want 1", d.connectCalls)
	}

	d.Disconnect(ctx)
	d.Execute(ctx, "power", "get", nil)
	if d.connectCalls != 2 {
		t.Errorf("connectCalls after Disconnect = %d, want 2", d.connectCalls)
	}
}

func TestExecuteRejectsInvalidInvocations(t *testing.T) {
	d := newFakeDevice(t, true)
	ctx := context.Background()

	tests := []struct {
		name       string
		capability string
		action     string
		args       Args
		wantErr    string
	}{
		{"unknown capability", "lights", "on", nil, "Unknown capability: lights"},
		{"unknown action", "power", "reboot", nil, "Unknown power action: reboot"},
		{"out of range", "volume", "set", Args{"level": 101}, "'level' must be between 0 and 100"},
		{"wrong type", "volume", "up", Args{"step": "big"}, "Expected integer for 'step'"},
		{"unknown argument", "power", "on", Args{"delay": 3}, "unknown parameter for power: delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Execute(ctx, tt.capability, tt.action, tt.args)
			if res.Success {
				t.Fatalf("Execute() succeeded, want %q", tt.wantErr)
			}
			if res.Error != tt.wantErr {
				t.Errorf("Execute() error = %q, want %q", res.Error, tt.wantErr)
			}
		})
	}
	if len(d.calls) != 0 {
		t.Errorf("handlers ran for invalid invocations: %v", d.calls)
	}
}

func TestExecuteAppliesDefaults(t *testing.T) {
	d := newFakeDevice(t, true)

	res := d.Execute(context.Background(), "volume", "up", nil)
	if !res.Success {
		t.Fatalf("Execute(volume.up) = %+v", res)
	}
	if d.lastArgs["step"] != 5 {
		t.Errorf("handler saw step = %v, want default 5", d.lastArgs["step"])
	}
}

func TestRefreshState(t *testing.T) {
	d := newFakeDevice(t, true)
	state := d.RefreshState(context.Background())
	if !state.IsOnline {
		t.Error("IsOnline = false, want true")
	}
	if got := state.Get("volume", nil); got != 30 {
		t.Errorf("volume = %v, want 30", got)
	}

	d.reachable = false
	state = d.RefreshState(context.Background())
	if state.IsOnline {
		t.Error("IsOnline = true after device went away")
	}
}

func TestCommands(t *testing.T) {
	d := newFakeDevice(t, true)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	cmds := d.Commands()
	if len(cmds) != 10 {
		t.Fatalf("len(Commands()) = %d, want 10", len(cmds))
	}

	byName := make(map[string]Command)
	for _, c := range cmds {
		byName[c.Command] = c
	}

	set := byName["volume.set"]
	if set.Description != "Set audio volume control" {
		t.Errorf("volume.set description = %q", set.Description)
	}
	if len(set.Parameters) != 2 {
		t.Errorf("volume.set parameters = %d, want all 2", len(set.Parameters))
	}
	if up := byName["volume.up"]; len(up.Parameters) != 0 {
		t.Errorf("volume.up parameters = %d, want 0 (none required)", len(up.Parameters))
	}
	if on := byName["power.on"]; on.Category != "power" || on.Capability != "power" || on.Action != "on" {
		t.Errorf("power.on = %+v", on)
	}
}

func TestTitleWords(t *testing.T) {
	tests := map[string]string{
		"get":         "Get",
		"now_playing": "Now_Playing",
		"UP":          "Up",
		"":            "",
	}
	for in, want := range tests {
		if got := titleWords(in); got != want {
			t.Errorf("titleWords(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInfoSnapshot(t *testing.T) {
	d := newFakeDevice(t, true)
	_ = d.Connect(context.Background())

	info := d.Info()
	if info.DeviceID != "fake_10.0.0.9" || info.IPAddress != "10.0.0.9" || info.DeviceType != "speaker" {
		t.Errorf("Info() = %+v", info)
	}
	if len(info.Capabilities) != 2 {
		t.Errorf("Info().Capabilities = %d, want 2", len(info.Capabilities))
	}
}
