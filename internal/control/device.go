package control

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Device is the protocol-agnostic view of a controllable LAN endpoint.
//
// Methods never return transport errors to the caller as panics or raw
// errors: Execute reports failure through ActionResult, Connect through its
// error (nil means connected), IsAvailable through its bool.
//
// Devices are not safe for concurrent use.
type Device interface {
	ID() string
	Name() string
	IP() string
	Type() string
	Manufacturer() string
	Model() string

	Capabilities() []Capability
	Capability(name string) (Capability, bool)
	State() *DeviceState

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context)
	Connected() bool
	IsAvailable(ctx context.Context) bool
	Execute(ctx context.Context, capability, action string, args Args) ActionResult
	RefreshState(ctx context.Context) *DeviceState
	Commands() []Command
	Info() Info
}

// Handler performs one capability action.
type Handler func(ctx context.Context, args Args) ActionResult

// Handlers maps capability name to action name to handler.
type Handlers map[string]map[string]Handler

// Identity is the descriptive part of a device.
type Identity struct {
	ID           string
	Name         string
	IP           string
	Type         string
	Manufacturer string
	Model        string
}

// Hooks are the protocol-specific operations an adapter supplies to Base.
type Hooks struct {
	// Connect performs the handshake and returns the capabilities the device
	// exposes right now. Each returned capability must be in the catalog.
	Connect func(ctx context.Context) ([]Capability, error)
	// Probe is the lightweight reachability check.
	Probe func(ctx context.Context) bool
	// Refresh pulls cheap status values into state after Probe succeeded.
	Refresh func(ctx context.Context, state *DeviceState)
}

// Base implements Device on top of a handler table. Adapters embed *Base and
// supply Hooks.
type Base struct {
	id           string
	name         string
	ip           string
	deviceType   string
	manufacturer string
	model        string

	catalog      map[string]Capability
	handlers     Handlers
	hooks        Hooks
	capabilities []Capability
	state        *DeviceState
	connected    bool
}

// NewBase checks the handler table against the catalog of capabilities the
// adapter may ever expose. Every catalog action needs a handler and every
// handler must belong to a catalog action.
func NewBase(id Identity, catalog []Capability, handlers Handlers, hooks Hooks) (*Base, error) {
	if hooks.Connect == nil || hooks.Probe == nil {
		return nil, fmt.Errorf("device %s: Connect and Probe hooks are required", id.ID)
	}
	if id.Type == "" {
		id.Type = "unknown"
	}

	byName := make(map[string]Capability, len(catalog))
	for _, c := range catalog {
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("device %s: capability %q declared twice", id.ID, c.Name)
		}
		byName[c.Name] = c
		for _, action := range c.Actions {
			if handlers[c.Name][action] == nil {
				return nil, fmt.Errorf("device %s: no handler for %s.%s", id.ID, c.Name, action)
			}
		}
	}
	for capName, actions := range handlers {
		c, ok := byName[capName]
		if !ok {
			return nil, fmt.Errorf("device %s: handlers registered for undeclared capability %q", id.ID, capName)
		}
		for action := range actions {
			if !c.HasAction(action) {
				return nil, fmt.Errorf("device %s: handler registered for undeclared action %s.%s", id.ID, capName, action)
			}
		}
	}

	return &Base{
		id:           id.ID,
		name:         id.Name,
		ip:           id.IP,
		deviceType:   id.Type,
		manufacturer: id.Manufacturer,
		model:        id.Model,
		catalog:      byName,
		handlers:     handlers,
		hooks:        hooks,
		state:        NewDeviceState(),
	}, nil
}

func (b *Base) ID() string           { return b.id }
func (b *Base) Name() string         { return b.name }
func (b *Base) IP() string           { return b.ip }
func (b *Base) Type() string         { return b.deviceType }
func (b *Base) Manufacturer() string { return b.manufacturer }
func (b *Base) Model() string        { return b.model }
func (b *Base) State() *DeviceState  { return b.state }
func (b *Base) Connected() bool      { return b.connected }

// SetName updates the display name, typically from a device description.
func (b *Base) SetName(name string) {
	if name != "" {
		b.name = name
	}
}

// SetManufacturer updates the manufacturer if non-empty.
func (b *Base) SetManufacturer(m string) {
	if m != "" {
		b.manufacturer = m
	}
}

// SetModel updates the model if non-empty.
func (b *Base) SetModel(m string) {
	if m != "" {
		b.model = m
	}
}

// Capabilities returns the capabilities found by the last successful Connect.
func (b *Base) Capabilities() []Capability {
	out := make([]Capability, len(b.capabilities))
	copy(out, b.capabilities)
	return out
}

// Capability looks up a connected capability by name.
func (b *Base) Capability(name string) (Capability, bool) {
	for _, c := range b.capabilities {
		if c.Name == name {
			return c, true
		}
	}
	return Capability{}, false
}

// Connect runs the adapter handshake. The capability list is rebuilt from
// scratch each time, so repeated calls never accumulate duplicates.
func (b *Base) Connect(ctx context.Context) error {
	caps, err := b.hooks.Connect(ctx)
	if err != nil {
		b.connected = false
		b.state.markSeen(false)
		return err
	}
	for _, c := range caps {
		if err := b.checkDeclared(c); err != nil {
			b.connected = false
			b.state.markSeen(false)
			return err
		}
	}
	b.capabilities = caps
	b.connected = true
	b.state.markSeen(true)
	return nil
}

func (b *Base) checkDeclared(c Capability) error {
	declared, ok := b.catalog[c.Name]
	if !ok {
		return fmt.Errorf("device %s: connect produced undeclared capability %q", b.id, c.Name)
	}
	for _, action := range c.Actions {
		if !declared.HasAction(action) {
			return fmt.Errorf("device %s: connect produced undeclared action %s.%s", b.id, c.Name, action)
		}
	}
	return nil
}

// Disconnect drops the local connected flag. Neither protocol keeps a session.
func (b *Base) Disconnect(context.Context) {
	b.connected = false
}

// IsAvailable probes reachability independent of the connected flag.
func (b *Base) IsAvailable(ctx context.Context) bool {
	return b.hooks.Probe(ctx)
}

// Execute validates args and dispatches to the registered handler. A
// disconnected device gets exactly one reconnect attempt first.
func (b *Base) Execute(ctx context.Context, capability, action string, args Args) ActionResult {
	if !b.connected {
		if err := b.Connect(ctx); err != nil {
			return ActionResult{Success: false, Error: "Device not connected", Err: err}
		}
	}

	c, ok := b.Capability(capability)
	if !ok {
		return Failf("Unknown capability: %s", capability)
	}
	if !c.HasAction(action) {
		return Failf("Unknown %s action: %s", capability, action)
	}
	handler := b.handlers[capability][action]
	if handler == nil {
		return Failf("No handler registered for %s.%s", capability, action)
	}

	if err := c.ValidateArgs(args); err != nil {
		return Fail(err)
	}

	result := handler(ctx, c.withDefaults(args))
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("%s.%s failed", capability, action)
	}
	return result
}

// RefreshState re-probes availability and, when online, lets the adapter
// pull cheap status values.
func (b *Base) RefreshState(ctx context.Context) *DeviceState {
	online := b.hooks.Probe(ctx)
	b.state.markSeen(online)
	if online && b.hooks.Refresh != nil {
		b.hooks.Refresh(ctx, b.state)
	}
	return b.state
}

// Command describes one invocable capability action.
type Command struct {
	Capability  string      `json:"capability"`
	Action      string      `json:"action"`
	Command     string      `json:"command"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Parameters  []Parameter `json:"parameters"`
}

// Commands lists every capability × action pair. Parameters are limited to
// the required ones, except for "set" actions which list all of them.
func (b *Base) Commands() []Command {
	var cmds []Command
	for _, c := range b.capabilities {
		for _, action := range c.Actions {
			params := make([]Parameter, 0, len(c.Parameters))
			for _, p := range c.Parameters {
				if p.Required || action == "set" {
					params = append(params, p)
				}
			}
			cmds = append(cmds, Command{
				Capability:  c.Name,
				Action:      action,
				Command:     c.Name + "." + action,
				Description: titleWords(action) + " " + strings.ToLower(c.Description),
				Category:    c.Category,
				Parameters:  params,
			})
		}
	}
	return cmds
}

// Info is a serialisable snapshot of a device.
type Info struct {
	DeviceID     string       `json:"device_id"`
	Name         string       `json:"name"`
	IPAddress    string       `json:"ip_address"`
	DeviceType   string       `json:"device_type"`
	Manufacturer string       `json:"manufacturer"`
	Model        string       `json:"model"`
	Capabilities []Capability `json:"capabilities"`
	State        *DeviceState `json:"state"`
}

// Info returns a snapshot of identity, capabilities and state.
func (b *Base) Info() Info {
	return Info{
		DeviceID:     b.id,
		Name:         b.name,
		IPAddress:    b.ip,
		DeviceType:   b.deviceType,
		Manufacturer: b.manufacturer,
		Model:        b.model,
		Capabilities: b.Capabilities(),
		State:        b.state,
	}
}

// titleWords upper-cases the first letter of every letter run, so
// "now_playing" becomes "Now_Playing".
func titleWords(s string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		sb.WriteRune(r)
	}
	return sb.String()
}
