// Package snapshot extracts typed climate fields from a loosely typed
// Home Assistant entity state. Nothing here returns an error: absent or
// malformed attributes come back as "not present".
package snapshot

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"thermostatui/internal/ha"
)

// Entity state sentinels
const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// LowBatteryThreshold is the level (percent) below which a battery alerts
const LowBatteryThreshold = 10.0

// Battery is one entry of the batteries attribute
type Battery struct {
	Name  string
	Level float64
	// Valid is false when the entry had no numeric battery level
	Valid bool
}

// Reading is everything recognized on one snapshot. Pointer and slice
// fields are nil when the attribute was absent or unusable.
type Reading struct {
	EntityID string
	State    string

	Modes   []string
	Target  *float64
	Step    *float64
	Min     *float64
	Max     *float64
	Current *float64

	// Humidity is set whenever the attribute is present; an unparsable
	// value reads as 0
	Humidity *float64

	WindowOpen  *bool
	CallForHeat *bool

	BatteriesPresent bool
	Batteries        []Battery

	ErrorsPresent bool
	Errors        []interface{}

	SavedTemperature interface{}
	SavedPresent     bool

	HVACAction   string
	FriendlyName string
}

// Read extracts a Reading from s. A nil state yields a zero Reading.
func Read(s *ha.State) Reading {
	var r Reading
	if s == nil {
		return r
	}

	r.EntityID = s.EntityID
	r.State = s.State
	r.Modes = Modes(s)
	r.Target = floatPtr(s, "temperature")
	r.Step = floatPtr(s, "target_temp_step")
	r.Min = floatPtr(s, "min_temp")
	r.Max = floatPtr(s, "max_temp")
	r.Current = floatPtr(s, "current_temperature")

	if v, ok := s.Attr("humidity"); ok {
		h, _ := ToFloat(v)
		r.Humidity = &h
	}
	if v, ok := s.Attr("window_open"); ok {
		open := Truthy(v)
		r.WindowOpen = &open
	}
	if v, ok := s.Attr("call_for_heat"); ok {
		cfh := Truthy(v)
		r.CallForHeat = &cfh
	}
	if v, ok := s.Attr("batteries"); ok {
		r.BatteriesPresent = true
		r.Batteries = DecodeBatteries(v)
	}
	if v, ok := s.Attr("errors"); ok {
		r.ErrorsPresent = true
		r.Errors = DecodeErrors(v)
	}

	r.SavedTemperature, _ = s.Attr("saved_temperature")
	r.SavedPresent = Truthy(r.SavedTemperature)
	r.HVACAction, _ = stringAttr(s, "hvac_action")
	r.FriendlyName, _ = stringAttr(s, "friendly_name")
	return r
}

// Unavailable reports whether the entity is in the unavailable or unknown state
func (r Reading) Unavailable() bool {
	return r.State == StateUnavailable || r.State == StateUnknown
}

// SavedActive reports whether an eco override is in effect: a truthy
// saved_temperature that is not the literal "none"
func (r Reading) SavedActive() bool {
	if !r.SavedPresent {
		return false
	}
	if s, ok := r.SavedTemperature.(string); ok && s == "none" {
		return false
	}
	return true
}

// FirstLowBattery returns the first battery, in document order, whose
// level is below LowBatteryThreshold
func FirstLowBattery(batteries []Battery) (Battery, bool) {
	for _, b := range batteries {
		if b.Valid && b.Level < LowBatteryThreshold {
			return b, true
		}
	}
	return Battery{}, false
}

// Modes returns the declared hvac_modes, or nil when absent
func Modes(s *ha.State) []string {
	v, ok := s.Attr("hvac_modes")
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...)
	case []interface{}:
		modes := make([]string, 0, len(list))
		for _, m := range list {
			if str, ok := m.(string); ok {
				modes = append(modes, str)
			}
		}
		return modes
	}
	return nil
}

// ToFloat coerces a loosely typed attribute value to float64. Booleans,
// nil and non-numeric strings are rejected, as are NaN and infinities.
func ToFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Truthy reports whether v is set in the loose sense attributes use:
// not nil, not false, not zero, not an empty string
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := ToFloat(v); ok {
		return f != 0
	}
	return true
}

// DecodeBatteries decodes the batteries attribute, a JSON object (or its
// string encoding) mapping device name to {"battery": level}. Entries keep
// document order; an already decoded map is ordered by name. Malformed
// input yields nil.
func DecodeBatteries(v interface{}) []Battery {
	switch raw := v.(type) {
	case string:
		return decodeBatteryJSON([]byte(raw))
	case []byte:
		return decodeBatteryJSON(raw)
	case json.RawMessage:
		return decodeBatteryJSON(raw)
	case map[string]interface{}:
		names := make([]string, 0, len(raw))
		for name := range raw {
			names = append(names, name)
		}
		sort.Strings(names)
		batteries := make([]Battery, 0, len(names))
		for _, name := range names {
			batteries = append(batteries, batteryEntry(name, raw[name]))
		}
		return batteries
	}
	return nil
}

func decodeBatteryJSON(data []byte) []Battery {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var batteries []Battery
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		name, ok := tok.(string)
		if !ok {
			return nil
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		batteries = append(batteries, batteryEntry(name, value))
	}
	if _, err := dec.Token(); err != nil {
		return nil
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil
	}
	return batteries
}

func batteryEntry(name string, value interface{}) Battery {
	b := Battery{Name: name}
	if obj, ok := value.(map[string]interface{}); ok {
		b.Level, b.Valid = ToFloat(obj["battery"])
	}
	return b
}

// DecodeErrors decodes the errors attribute, a JSON list (or its string
// encoding). Malformed input yields nil.
func DecodeErrors(v interface{}) []interface{} {
	var data []byte
	switch raw := v.(type) {
	case []interface{}:
		return raw
	case string:
		data = []byte(raw)
	case []byte:
		data = raw
	case json.RawMessage:
		data = raw
	default:
		return nil
	}

	var list []interface{}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}

func floatPtr(s *ha.State, key string) *float64 {
	v, ok := s.Attr(key)
	if !ok {
		return nil
	}
	f, ok := ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func stringAttr(s *ha.State, key string) (string, bool) {
	v, ok := s.Attr(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}
