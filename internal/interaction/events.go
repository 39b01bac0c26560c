package interaction

import "time"

// Event is a user gesture delivered to the Controller
type Event interface {
	eventMarker()
}

// ValueChanging is emitted by the slider while a drag is in progress
type ValueChanging struct {
	Value interface{}
}

func (ValueChanging) eventMarker() {}

// ValueChanged is emitted by the slider when a drag is released
type ValueChanged struct {
	Value interface{}
}

func (ValueChanged) eventMarker() {}

// Increment is a press on the plus button
type Increment struct{}

func (Increment) eventMarker() {}

// Decrement is a press on the minus button
type Decrement struct{}

func (Decrement) eventMarker() {}

// CommitStep sends the target changed by the stepper buttons. The card
// runtime emits it when the step commit timer fires; front ends may emit it
// directly.
type CommitStep struct{}

func (CommitStep) eventMarker() {}

// SelectMode is a press on a mode icon
type SelectMode struct {
	Mode string
}

func (SelectMode) eventMarker() {}

// MoreInfo is a press on the menu affordance
type MoreInfo struct{}

func (MoreInfo) eventMarker() {}

// DismissAlert is a press on the low battery banner
type DismissAlert struct{}

func (DismissAlert) eventMarker() {}

// Command is an effect requested by the Controller. Service commands are
// fire-and-forget; their result shows up in a later snapshot.
type Command interface {
	commandMarker()
}

// SetTargetTemperature maps to climate.set_temperature
type SetTargetTemperature struct {
	EntityID    string
	Temperature float64
}

func (SetTargetTemperature) commandMarker() {}

// SetHVACMode maps to climate.set_hvac_mode
type SetHVACMode struct {
	EntityID string
	Mode     string
}

func (SetHVACMode) commandMarker() {}

// SetEcoTarget maps to better_thermostat.set_temp_target_temperature
type SetEcoTarget struct {
	EntityID    string
	Temperature float64
}

func (SetEcoTarget) commandMarker() {}

// RestoreSavedTarget maps to better_thermostat.restore_saved_target_temperature
type RestoreSavedTarget struct {
	EntityID string
}

func (RestoreSavedTarget) commandMarker() {}

// RequestMoreInfo asks the host to open its detail view for the entity
type RequestMoreInfo struct {
	EntityID string
}

func (RequestMoreInfo) commandMarker() {}

// ScheduleStepCommit asks the runtime to deliver CommitStep after Delay,
// replacing any commit already scheduled
type ScheduleStepCommit struct {
	Delay time.Duration
}

func (ScheduleStepCommit) commandMarker() {}
