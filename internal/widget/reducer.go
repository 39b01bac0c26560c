package widget

import (
	"thermostatui/internal/config"
	"thermostatui/internal/ha"
	"thermostatui/internal/snapshot"
)

// Reducer is the only writer of State. It refreshes from a snapshot only
// when the snapshot pointer differs from the last one it saw.
type Reducer struct {
	state State
	last  *ha.State
}

// NewReducer creates a reducer holding NewState
func NewReducer() *Reducer {
	return &Reducer{state: NewState()}
}

// State returns a copy of the current state
func (r *Reducer) State() State {
	return r.state.Clone()
}

// Snapshot returns the last snapshot that passed the identity check
func (r *Reducer) Snapshot() *ha.State {
	return r.last
}

// Reconcile refreshes the state from snap. It is a no-op, returning false,
// when snap or cfg is nil or snap is the snapshot already applied.
func (r *Reducer) Reconcile(snap *ha.State, cfg *config.Card) bool {
	if snap == nil || cfg == nil || snap == r.last {
		return false
	}
	r.last = snap
	r.apply(snapshot.Read(snap), cfg)
	return true
}

// ReconcileStates looks up the configured entity in a full state set and
// reconciles against it
func (r *Reducer) ReconcileStates(states map[string]*ha.State, cfg *config.Card) bool {
	if cfg == nil {
		return false
	}
	return r.Reconcile(states[cfg.Entity], cfg)
}

// Reconfigure starts a new configuration lifetime: capability flags and
// humidity are cleared and the next snapshot is applied even if unchanged.
func (r *Reducer) Reconfigure(cfg *config.Card) {
	r.state.HasWindow = false
	r.state.HasSummer = false
	r.state.Humidity = 0
	r.last = nil
	if cfg != nil {
		r.state.UpdateDisplay(cfg.SetCurrentAsMain)
	}
}

// SetTarget is the optimistic local update used by interaction handlers;
// the next snapshot overwrites it
func (r *Reducer) SetTarget(v float64, cfg *config.Card) {
	r.state.Target = v
	r.state.UpdateDisplay(cfg != nil && cfg.SetCurrentAsMain)
}

func (r *Reducer) apply(rd snapshot.Reading, cfg *config.Card) {
	s := &r.state

	s.Status = rd.State
	s.EntityState = rd.State
	s.Mode = rd.State
	if s.Mode == "" {
		s.Mode = DefaultMode
	}

	if rd.Modes != nil {
		s.AvailableModes = rd.Modes
	}
	if rd.Target != nil {
		s.Target = *rd.Target
	}
	if rd.Step != nil && *rd.Step > 0 {
		s.Step = *rd.Step
	}
	if rd.Min != nil {
		s.Min = *rd.Min
	}
	if rd.Max != nil {
		s.Max = *rd.Max
	}
	if rd.Current != nil {
		s.Current = *rd.Current
	}
	if rd.Humidity != nil {
		s.Humidity = *rd.Humidity
	}
	if rd.WindowOpen != nil {
		s.HasWindow = true
		s.WindowOpen = *rd.WindowOpen
	}
	if rd.CallForHeat != nil {
		s.HasSummer = true
		s.SummerMode = !*rd.CallForHeat
	}

	s.LowBattery = nil
	if rd.BatteriesPresent && !cfg.DisableBatteryWarning {
		if b, ok := snapshot.FirstLowBattery(rd.Batteries); ok {
			s.LowBattery = &BatteryAlert{Name: b.Name, Level: b.Level}
		}
	}

	s.Error = nil
	if rd.ErrorsPresent && len(rd.Errors) > 0 {
		s.Error = &ErrorAlert{Value: rd.Errors[0]}
	}

	s.HVACAction = rd.HVACAction
	s.SavedTemperature = rd.SavedTemperature
	s.SavedPresent = rd.SavedPresent
	s.SavedActive = rd.SavedActive()
	s.FriendlyName = rd.FriendlyName

	s.UpdateDisplay(cfg.SetCurrentAsMain)
}
