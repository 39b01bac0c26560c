// Package interaction turns slider, button and mode gestures into optimistic
// display updates and outbound commands.
package interaction

import (
	"time"

	"thermostatui/internal/config"
	"thermostatui/internal/haptic"
	"thermostatui/internal/snapshot"
	"thermostatui/internal/widget"

	"go.uber.org/zap"
)

// Pulse lengths for haptic feedback
const (
	DragPulse    = 20 * time.Millisecond
	StepPulse    = 40 * time.Millisecond
	DismissPulse = 2 * time.Millisecond
)

// State is transient gesture state. It never comes from a snapshot.
type State struct {
	Dragging     bool     `json:"dragging"`
	PendingValue *float64 `json:"pending_value,omitempty"`
	// StepPending is set when the stepper changed the target and no
	// command has carried it yet
	StepPending bool `json:"step_pending"`
	// DismissedBattery names the low battery banner the user closed
	DismissedBattery string `json:"dismissed_battery,omitempty"`
}

// Controller handles one Event at a time, updating the widget target
// optimistically and returning the commands to dispatch
type Controller struct {
	widget *widget.Reducer
	haptic haptic.Feedback
	logger *zap.Logger
	state  State
}

// NewController creates a controller driving w
func NewController(w *widget.Reducer, fb haptic.Feedback, logger *zap.Logger) *Controller {
	if fb == nil {
		fb = haptic.Nop{}
	}
	return &Controller{
		widget: w,
		haptic: fb,
		logger: logger.Named("interaction"),
	}
}

// State returns a copy of the interaction state
func (c *Controller) State() State {
	s := c.state
	if s.PendingValue != nil {
		v := *s.PendingValue
		s.PendingValue = &v
	}
	return s
}

// Handle applies ev. Malformed events and events arriving without a
// configuration are ignored, as are target and mode gestures before the
// first snapshot.
func (c *Controller) Handle(ev Event, cfg *config.Card) []Command {
	if cfg == nil {
		return nil
	}
	if c.widget.State().Status == widget.StatusLoading && changesEntity(ev) {
		c.logger.Debug("Ignoring event before the first snapshot", zap.Any("event", ev))
		return nil
	}

	switch e := ev.(type) {
	case ValueChanging:
		return c.valueChanging(e, cfg)
	case ValueChanged:
		return c.valueChanged(e, cfg)
	case Increment:
		return c.step(1, cfg)
	case Decrement:
		return c.step(-1, cfg)
	case CommitStep:
		return c.commitStep(cfg)
	case SelectMode:
		return c.selectMode(e, cfg)
	case MoreInfo:
		return []Command{RequestMoreInfo{EntityID: cfg.Entity}}
	case DismissAlert:
		return c.dismissAlert()
	}

	c.logger.Debug("Ignoring unknown event", zap.Any("event", ev))
	return nil
}

// changesEntity reports whether ev acts on the target or the mode
func changesEntity(ev Event) bool {
	switch ev.(type) {
	case ValueChanging, ValueChanged, Increment, Decrement, CommitStep, SelectMode:
		return true
	}
	return false
}

func (c *Controller) valueChanging(e ValueChanging, cfg *config.Card) []Command {
	v, ok := sliderValue(e.Value)
	if !ok {
		return nil
	}

	c.state.Dragging = true
	c.state.PendingValue = &v
	c.widget.SetTarget(v, cfg)
	c.vibrate(DragPulse)
	return nil
}

func (c *Controller) valueChanged(e ValueChanged, cfg *config.Card) []Command {
	v, ok := sliderValue(e.Value)
	if !ok {
		return nil
	}

	c.state.Dragging = false
	c.state.PendingValue = nil
	c.state.StepPending = false
	c.widget.SetTarget(v, cfg)
	return []Command{SetTargetTemperature{EntityID: cfg.Entity, Temperature: v}}
}

func (c *Controller) step(direction float64, cfg *config.Card) []Command {
	ws := c.widget.State()
	c.widget.SetTarget(ws.Target+direction*ws.Step, cfg)
	c.vibrate(StepPulse)
	c.state.StepPending = true

	if delay := cfg.CommitDelay(); delay > 0 {
		return []Command{ScheduleStepCommit{Delay: delay}}
	}
	return nil
}

func (c *Controller) commitStep(cfg *config.Card) []Command {
	if !c.state.StepPending {
		return nil
	}
	c.state.StepPending = false
	return []Command{SetTargetTemperature{EntityID: cfg.Entity, Temperature: c.widget.State().Target}}
}

func (c *Controller) selectMode(e SelectMode, cfg *config.Card) []Command {
	if e.Mode == "" {
		return nil
	}
	saved := c.widget.State().SavedPresent

	if e.Mode == "eco" {
		if saved {
			return []Command{RestoreSavedTarget{EntityID: cfg.Entity}}
		}
		return []Command{SetEcoTarget{EntityID: cfg.Entity, Temperature: cfg.EcoTarget()}}
	}

	var cmds []Command
	if saved {
		cmds = append(cmds, RestoreSavedTarget{EntityID: cfg.Entity})
	}
	return append(cmds, SetHVACMode{EntityID: cfg.Entity, Mode: e.Mode})
}

func (c *Controller) dismissAlert() []Command {
	alert := c.widget.State().LowBattery
	if alert == nil {
		return nil
	}
	c.state.DismissedBattery = alert.Name
	c.vibrate(DismissPulse)
	return nil
}

func (c *Controller) vibrate(d time.Duration) {
	if err := c.haptic.Vibrate(d); err != nil {
		c.logger.Debug("Haptic feedback failed", zap.Duration("pulse", d), zap.Error(err))
	}
}

// sliderValue accepts numbers only; strings are rejected even when they
// would parse
func sliderValue(v interface{}) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return snapshot.ToFloat(v)
}
