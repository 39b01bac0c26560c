// Package widget holds the climate card's display state and the reducer
// that refreshes it from entity snapshots.
package widget

import (
	"encoding/json"
	"fmt"
)

// Defaults for a freshly configured card
const (
	DefaultMin    = 0.0
	DefaultMax    = 35.0
	DefaultStep   = 1.0
	DefaultMode   = "off"
	StatusLoading = "loading"
)

// BatteryAlert is the first battery reporting a level below the threshold
type BatteryAlert struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// ErrorAlert is the first entry of the entity's error list. The value is
// whatever the integration reported.
type ErrorAlert struct {
	Value interface{} `json:"value"`
}

// Text renders the error value for display
func (e ErrorAlert) Text() string {
	switch v := e.Value.(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	}
	if data, err := json.Marshal(e.Value); err == nil {
		return string(data)
	}
	return fmt.Sprint(e.Value)
}

// State is the card's reconciled view of the climate entity
type State struct {
	Target   float64 `json:"target"`
	Current  float64 `json:"current"`
	Humidity float64 `json:"humidity"` // 0 doubles as "not reported"
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Step     float64 `json:"step"`

	WindowOpen bool `json:"window_open"`
	SummerMode bool `json:"summer_mode"`

	Mode           string   `json:"mode"`
	AvailableModes []string `json:"available_modes"`

	DisplayTop    float64 `json:"display_top"`
	DisplayBottom float64 `json:"display_bottom"`

	LowBattery *BatteryAlert `json:"low_battery,omitempty"`
	Error      *ErrorAlert   `json:"error,omitempty"`

	// Sticky until reconfiguration
	HasWindow bool `json:"has_window"`
	HasSummer bool `json:"has_summer"`

	Status           string      `json:"status"`
	EntityState      string      `json:"entity_state"`
	HVACAction       string      `json:"hvac_action,omitempty"`
	SavedTemperature interface{} `json:"saved_temperature,omitempty"`
	SavedPresent     bool        `json:"saved_present"`
	SavedActive      bool        `json:"saved_active"`
	FriendlyName     string      `json:"friendly_name,omitempty"`
}

// NewState returns the state of a card that has not seen a snapshot yet
func NewState() State {
	return State{
		Min:    DefaultMin,
		Max:    DefaultMax,
		Step:   DefaultStep,
		Mode:   DefaultMode,
		Status: StatusLoading,
	}
}

// Clone returns a copy that shares nothing mutable with s
func (s State) Clone() State {
	if s.AvailableModes != nil {
		s.AvailableModes = append([]string{}, s.AvailableModes...)
	}
	if s.LowBattery != nil {
		b := *s.LowBattery
		s.LowBattery = &b
	}
	if s.Error != nil {
		e := *s.Error
		s.Error = &e
	}
	return s
}

// UpdateDisplay assigns DisplayTop and DisplayBottom from Target and
// Current. With currentAsMain the current temperature is the main readout.
func (s *State) UpdateDisplay(currentAsMain bool) {
	if currentAsMain {
		s.DisplayTop = s.Current
		s.DisplayBottom = s.Target
		return
	}
	s.DisplayTop = s.Target
	s.DisplayBottom = s.Current
}
