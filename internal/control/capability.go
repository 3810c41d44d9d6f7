package control

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParameterType is the closed set of value kinds a capability parameter accepts.
type ParameterType string

const (
	ParamInteger    ParameterType = "integer"
	ParamFloat      ParameterType = "float"
	ParamString     ParameterType = "string"
	ParamBoolean    ParameterType = "boolean"
	ParamEnum       ParameterType = "enum"       // one of Choices
	ParamPercentage ParameterType = "percentage" // 0-100
	ParamVolume     ParameterType = "volume"     // 0-100, mute handled by the capability
)

// Parameter describes one named input to a capability action.
type Parameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description"`
	Required    bool          `json:"required"`
	Default     any           `json:"default"`
	Min         *float64      `json:"min"`
	Max         *float64      `json:"max"`
	Choices     []string      `json:"choices"`
	Step        *float64      `json:"step"`
}

// Num returns a pointer to v, for the optional numeric Parameter fields.
func Num(v float64) *float64 {
	return &v
}

// Validate checks value against the parameter's constraints. The type check
// runs first, then Min/Max. Only the first failing rule is reported.
// A nil value is valid unless the parameter is required.
func (p Parameter) Validate(value any) error {
	if value == nil {
		if p.Required {
			return NewValidationError(fmt.Sprintf("Parameter '%s' is required", p.Name))
		}
		return nil
	}

	switch p.Type {
	case ParamInteger:
		if !isInteger(value) {
			return NewValidationError(fmt.Sprintf("Expected integer for '%s'", p.Name))
		}
	case ParamFloat:
		if _, ok := toFloat(value); !ok {
			return NewValidationError(fmt.Sprintf("Expected number for '%s'", p.Name))
		}
	case ParamBoolean:
		if _, ok := value.(bool); !ok {
			return NewValidationError(fmt.Sprintf("Expected boolean for '%s'", p.Name))
		}
	case ParamString:
		if _, ok := value.(string); !ok {
			return NewValidationError(fmt.Sprintf("Expected string for '%s'", p.Name))
		}
	case ParamPercentage, ParamVolume:
		f, ok := toFloat(value)
		if !ok {
			return NewValidationError(fmt.Sprintf("Expected number for '%s'", p.Name))
		}
		if f < 0 || f > 100 {
			return NewValidationError(fmt.Sprintf("'%s' must be between 0 and 100", p.Name))
		}
	case ParamEnum:
		if len(p.Choices) > 0 && !p.hasChoice(value) {
			return NewValidationError(fmt.Sprintf("'%s' must be one of: %s", p.Name, strings.Join(p.Choices, ", ")))
		}
	}

	if p.Min == nil && p.Max == nil {
		return nil
	}
	f, ok := toFloat(value)
	if !ok {
		return NewValidationError(fmt.Sprintf("Expected number for '%s'", p.Name))
	}
	if p.Min != nil && f < *p.Min {
		return NewValidationError(fmt.Sprintf("'%s' must be >= %s", p.Name, formatNum(*p.Min)))
	}
	if p.Max != nil && f > *p.Max {
		return NewValidationError(fmt.Sprintf("'%s' must be <= %s", p.Name, formatNum(*p.Max)))
	}
	return nil
}

func (p Parameter) hasChoice(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, c := range p.Choices {
		if c == s {
			return true
		}
	}
	return false
}

// Capability is a named feature group such as "volume" or "power".
// Actions is the full contract: an action not listed is rejected.
type Capability struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Actions     []string    `json:"actions"`
	Parameters  []Parameter `json:"parameters"`
	Category    string      `json:"category"`
}

// Parameter returns the named parameter.
func (c Capability) Parameter(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// HasAction reports whether action is part of this capability's contract.
func (c Capability) HasAction(action string) bool {
	for _, a := range c.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ValidateArgs checks every declared parameter against args and rejects
// arguments that name no declared parameter.
func (c Capability) ValidateArgs(args Args) error {
	unknown := make([]string, 0)
	for name := range args {
		if _, ok := c.Parameter(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return NewValidationError(fmt.Sprintf("unknown parameter for %s: %s", c.Name, strings.Join(unknown, ", ")))
	}

	for _, p := range c.Parameters {
		if err := p.Validate(args[p.Name]); err != nil {
			return err
		}
	}
	return nil
}

// withDefaults returns a copy of args with parameter defaults filled in.
func (c Capability) withDefaults(args Args) Args {
	out := make(Args, len(args)+len(c.Parameters))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range c.Parameters {
		if _, ok := out[p.Name]; !ok && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}

// Args carries the keyword arguments of one Execute call.
type Args map[string]any

// Int returns the named argument as an int, or def if it is absent or not numeric.
func (a Args) Int(name string, def int) int {
	f, ok := toFloat(a[name])
	if !ok {
		return def
	}
	return int(f)
}

// String returns the named argument as a string, or "" if absent.
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Has reports whether the argument was supplied.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// ParseArg converts a CLI "key=value" right-hand side into the narrowest
// type it parses as: int, then float, then bool, then string.
func ParseArg(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// ParseArgs splits "key=value" tokens into Args. Tokens without "=" are ignored.
func ParseArgs(tokens []string) Args {
	args := Args{}
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		args[key] = ParseArg(value)
	}
	return args
}

// ParseValue converts a CLI value by the parameter's declared type. A value
// that does not parse stays a string so validation can name the problem.
func (p Parameter) ParseValue(s string) any {
	switch p.Type {
	case ParamString, ParamEnum:
		return s
	case ParamInteger:
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
	case ParamFloat, ParamPercentage, ParamVolume:
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case ParamBoolean:
		switch strings.ToLower(s) {
		case "true":
			return true
		case "false":
			return false
		}
	default:
		return ParseArg(s)
	}
	return s
}

// ParseArgs splits "key=value" tokens into Args, converting each value by
// the type of the parameter it names. Names the capability does not declare
// fall back to ParseArg.
func (c Capability) ParseArgs(tokens []string) Args {
	args := Args{}
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		if p, found := c.Parameter(key); found {
			args[key] = p.ParseValue(value)
		} else {
			args[key] = ParseArg(value)
		}
	}
	return args
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Shared capability definitions. Each call returns a fresh value so adapters
// can adjust their copy.

// VolumeCapability is the absolute-volume contract used by renderers.
func VolumeCapability() Capability {
	return Capability{
		Name:        "volume",
		Description: "Audio volume control",
		Actions:     []string{"get", "set", "up", "down", "mute", "unmute"},
		Parameters: []Parameter{
			{
				Name:        "level",
				Type:        ParamVolume,
				Description: "Volume level (0-100)",
				Min:         Num(0),
				Max:         Num(100),
			},
			{
				Name:        "step",
				Type:        ParamInteger,
				Description: "Volume step for up/down",
				Default:     5,
				Min:         Num(1),
				Max:         Num(20),
			},
		},
		Category: "audio",
	}
}

// PowerCapability covers power state and switching.
func PowerCapability() Capability {
	return Capability{
		Name:        "power",
		Description: "Power control",
		Actions:     []string{"get", "on", "off", "toggle"},
		Category:    "power",
	}
}

// PlaybackCapability covers transport control.
func PlaybackCapability() Capability {
	return Capability{
		Name:        "playback",
		Description: "Media playback control",
		Actions:     []string{"play", "pause", "stop", "next", "previous"},
		Category:    "media",
	}
}
