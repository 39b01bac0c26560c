// Package overlay decides which mode buttons, overlays, indicators and
// banners the card shows. Everything here is a pure function of its inputs.
package overlay

import (
	"thermostatui/internal/config"
	"thermostatui/internal/interaction"
	"thermostatui/internal/snapshot"
	"thermostatui/internal/widget"
)

// Overlay class names applied to the slider and its content
const (
	ClassEco        = "eco"
	ClassBattery    = "battery"
	ClassWindowOpen = "window_open"
	ClassSummer     = "summer"
)

// ModeButton is one entry of the mode row
type ModeButton struct {
	Mode     string `json:"mode"`
	Icon     Icon   `json:"icon"`
	Selected bool   `json:"selected"`
}

// Indicator is a capability badge shown above the readout
type Indicator struct {
	Visible bool `json:"visible"`
	Active  bool `json:"active"`
}

// Resolution is everything the render step needs to know about visibility
type Resolution struct {
	Modes          []ModeButton `json:"modes"`
	ContainerClass string       `json:"container_class"`
	SliderClasses  []string     `json:"slider_classes"`
	SliderInactive bool         `json:"slider_inactive"`

	// BatteryOverlay dims and blurs the slider content. It follows the
	// banners, while the slider keeps ClassBattery for any alert.
	BatteryOverlay bool `json:"battery_overlay"`
	ShowLowBattery bool `json:"show_low_battery"`
	ShowError      bool `json:"show_error"`

	Window  Indicator `json:"window"`
	Summer  Indicator `json:"summer"`
	Heating bool      `json:"heating"`

	HideReadouts bool `json:"hide_readouts"`
	ShowHumidity bool `json:"show_humidity"`
	ShowMenu     bool `json:"show_menu"`
	ShowButtons  bool `json:"show_buttons"`
}

// Resolve computes the Resolution for the given state. A nil cfg is
// treated as the default card.
func Resolve(ws widget.State, is interaction.State, cfg *config.Card) Resolution {
	if cfg == nil {
		def := config.DefaultCard()
		cfg = &def
	}

	res := Resolution{
		Modes:          resolveModes(ws, cfg),
		ContainerClass: ws.Mode,
		SliderInactive: ws.WindowOpen,
		ShowLowBattery: ws.LowBattery != nil && ws.LowBattery.Name != is.DismissedBattery,
		ShowError:      ws.Error != nil,
		Window: Indicator{
			Visible: ws.HasWindow && !cfg.DisableWindow,
			Active:  ws.WindowOpen,
		},
		Summer: Indicator{
			Visible: ws.HasSummer && !cfg.DisableSummer,
			Active:  ws.SummerMode,
		},
		Heating:      ws.HVACAction == "heating" && ws.Mode != "off",
		HideReadouts: ws.EntityState == snapshot.StateUnavailable || ws.EntityState == snapshot.StateUnknown,
		ShowHumidity: ws.Humidity != 0,
		ShowMenu:     !cfg.DisableMenu,
		ShowButtons:  !cfg.DisableButtons,
	}
	res.BatteryOverlay = res.ShowLowBattery || res.ShowError
	// Dismissing the banner clears the content overlay only
	res.SliderClasses = sliderClasses(ws, ws.LowBattery != nil || ws.Error != nil)
	return res
}

func sliderClasses(ws widget.State, battery bool) []string {
	classes := []string{}
	if ws.SavedPresent {
		classes = append(classes, ClassEco)
	}
	if battery {
		classes = append(classes, ClassBattery)
	}
	if ws.WindowOpen {
		classes = append(classes, ClassWindowOpen)
	}
	if ws.SummerMode {
		classes = append(classes, ClassSummer)
	}
	return classes
}

func resolveModes(ws widget.State, cfg *config.Card) []ModeButton {
	buttons := []ModeButton{}

	if ws.HasSummer {
		if !cfg.DisableHeat {
			buttons = appendMode(buttons, "heat", ws.Mode == "heat")
		}
		if !cfg.DisableEco {
			ecoActive := ws.SavedActive && ws.EntityState != snapshot.StateUnavailable
			buttons = appendMode(buttons, "eco", ecoActive)
		}
		if !cfg.DisableOff {
			buttons = appendMode(buttons, "off", ws.Mode == "off")
		}
		return buttons
	}

	for _, mode := range ws.AvailableModes {
		if disabled(mode, cfg) {
			continue
		}
		buttons = appendMode(buttons, mode, ws.Mode == mode)
	}
	return buttons
}

func appendMode(buttons []ModeButton, mode string, selected bool) []ModeButton {
	icon, ok := IconFor(mode)
	if !ok {
		return buttons
	}
	return append(buttons, ModeButton{Mode: mode, Icon: icon, Selected: selected})
}

func disabled(mode string, cfg *config.Card) bool {
	switch mode {
	case "heat":
		return cfg.DisableHeat
	case "eco":
		return cfg.DisableEco
	case "off":
		return cfg.DisableOff
	}
	return false
}
