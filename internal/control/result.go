package control

import (
	"fmt"
	"time"
)

// ActionResult is the outcome of one Execute call. Value is meaningful only
// when Success is true, Error only when it is false.
type ActionResult struct {
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`

	// Raw keeps the protocol response for diagnostics.
	Raw any `json:"-"`
	// Err is the typed cause behind Error.
	Err error `json:"-"`
}

// OK builds a successful result.
func OK(value any) ActionResult {
	return ActionResult{Success: true, Value: value}
}

// Fail builds a failed result from err.
func Fail(err error) ActionResult {
	if err == nil {
		err = NewValidationError("action failed")
	}
	return ActionResult{Success: false, Error: err.Error(), Err: err}
}

// Failf builds a failed validation result from a format string.
func Failf(format string, a ...any) ActionResult {
	return Fail(NewValidationError(fmt.Sprintf(format, a...)))
}

// DeviceState is the last observed runtime view of a device. It lives only
// as long as the process.
type DeviceState struct {
	IsOnline bool           `json:"is_online"`
	LastSeen *time.Time     `json:"last_seen"`
	Values   map[string]any `json:"values"`
	Metadata map[string]any `json:"metadata"`
}

// NewDeviceState returns an empty offline state.
func NewDeviceState() *DeviceState {
	return &DeviceState{
		Values:   make(map[string]any),
		Metadata: make(map[string]any),
	}
}

// Get returns the last known value for key, or def.
func (s *DeviceState) Get(key string, def any) any {
	if v, ok := s.Values[key]; ok {
		return v
	}
	return def
}

// Set records the current value for key.
func (s *DeviceState) Set(key string, value any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
}

// Has reports whether a value is cached for key.
func (s *DeviceState) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

func (s *DeviceState) markSeen(online bool) {
	s.IsOnline = online
	if online {
		now := time.Now().UTC()
		s.LastSeen = &now
	}
}
