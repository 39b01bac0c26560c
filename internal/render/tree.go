// Package render projects the card state into a front-end neutral visual
// tree. Projection is pure: it never changes the state it reads.
package render

import (
	"strconv"

	"thermostatui/internal/config"
	"thermostatui/internal/interaction"
	"thermostatui/internal/locale"
	"thermostatui/internal/overlay"
	"thermostatui/internal/snapshot"
	"thermostatui/internal/widget"
)

// Button actions
const (
	ActionDecrement = "decrement"
	ActionIncrement = "increment"
	ActionMoreInfo  = "more_info"
)

// Indicator kinds
const (
	IndicatorWindow = "window_open"
	IndicatorSummer = "summer"
)

// Readout is a formatted number with its unit
type Readout struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Button is a clickable icon
type Button struct {
	Action string       `json:"action"`
	Icon   overlay.Icon `json:"icon"`
	Label  string       `json:"label,omitempty"`
}

// Banner is an alert line above the slider
type Banner struct {
	Icon   overlay.Icon `json:"icon"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Detail string       `json:"detail,omitempty"`
}

// Slider carries what the slider primitive needs to draw itself
type Slider struct {
	Value    float64  `json:"value"`
	Current  float64  `json:"current"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Step     float64  `json:"step"`
	Classes  []string `json:"classes"`
	Inactive bool     `json:"inactive"`
	Dragging bool     `json:"dragging"`
}

// IndicatorNode is a capability badge
type IndicatorNode struct {
	Kind   string       `json:"kind"`
	Icon   overlay.Icon `json:"icon"`
	Title  string       `json:"title"`
	Active bool         `json:"active"`
}

// ModeNode is one mode affordance
type ModeNode struct {
	Mode     string       `json:"mode"`
	Icon     overlay.Icon `json:"icon"`
	Label    string       `json:"label"`
	Title    string       `json:"title,omitempty"`
	Selected bool         `json:"selected"`
}

// Status is the heating activity icon next to the secondary readout
type Status struct {
	Icon   overlay.Icon `json:"icon"`
	Title  string       `json:"title"`
	Active bool         `json:"active"`
}

// Tree is the complete visual description of the card
type Tree struct {
	EntityID       string `json:"entity_id"`
	Name           string `json:"name"`
	ContainerClass string `json:"container_class"`
	Loading        bool   `json:"loading"`

	MoreInfo   *Button `json:"more_info,omitempty"`
	LowBattery *Banner `json:"low_battery,omitempty"`
	Error      *Banner `json:"error,omitempty"`

	Slider     Slider          `json:"slider"`
	Indicators []IndicatorNode `json:"indicators"`

	// Primary, Secondary and Humidity are nil while the entity is
	// loading or unavailable; Placeholder is set instead. A loading tree
	// has no modes or buttons.
	Primary     *Readout `json:"primary,omitempty"`
	Secondary   *Readout `json:"secondary,omitempty"`
	Humidity    *Readout `json:"humidity,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Status      Status   `json:"status"`

	Modes   []ModeNode `json:"modes"`
	Buttons []Button   `json:"buttons"`
}

// Project builds the Tree for the given state. A nil cfg is treated as the
// default card.
func Project(ws widget.State, is interaction.State, res overlay.Resolution, cfg *config.Card, f locale.Formatter) Tree {
	if cfg == nil {
		def := config.DefaultCard()
		cfg = &def
	}

	t := Tree{
		EntityID:       cfg.Entity,
		Name:           name(ws, cfg),
		ContainerClass: res.ContainerClass,
		Loading:        ws.Status == widget.StatusLoading,
		Slider: Slider{
			Value:    ws.Target,
			Current:  ws.Current,
			Min:      ws.Min,
			Max:      ws.Max,
			Step:     ws.Step,
			Classes:  res.SliderClasses,
			Inactive: res.SliderInactive,
			Dragging: is.Dragging,
		},
		Indicators: indicators(res, f),
		Status:     status(res, f),
		Modes:      modes(res, f),
		Buttons:    []Button{},
	}

	if res.ShowMenu {
		t.MoreInfo = &Button{Action: ActionMoreInfo, Icon: overlay.IconMoreInfo, Label: f.Localize(locale.KeyShowMoreInfo)}
	}
	if res.ShowLowBattery && ws.LowBattery != nil {
		t.LowBattery = &Banner{
			Icon:   overlay.IconLowBattery,
			Title:  f.Localize(locale.KeyLowBattery),
			Text:   ws.LowBattery.Name,
			Detail: strconv.FormatFloat(ws.LowBattery.Level, 'f', -1, 64) + "%",
		}
	}
	if res.ShowError && ws.Error != nil {
		t.Error = &Banner{
			Icon:  overlay.IconError,
			Title: f.Localize(locale.KeyError),
			Text:  ws.Error.Text(),
		}
	}

	// Nothing can be changed before the first snapshot
	if t.Loading {
		t.Placeholder = f.Localize(locale.KeyLoading)
		if t.Placeholder == "" {
			t.Placeholder = widget.StatusLoading
		}
		t.Modes = []ModeNode{}
		return t
	}

	unit := cfg.TemperatureUnit
	if res.HideReadouts {
		t.Placeholder = f.Localize(locale.KeyUnavailable)
		if t.Placeholder == "" {
			t.Placeholder = snapshot.StateUnavailable
		}
	} else {
		t.Primary = &Readout{Value: f.FormatNumber(ws.DisplayTop), Unit: unit}
		t.Secondary = &Readout{Value: f.FormatNumber(ws.DisplayBottom), Unit: unit}
		if res.ShowHumidity {
			t.Humidity = &Readout{Value: f.FormatNumber(ws.Humidity), Unit: "%"}
		}
	}

	if res.ShowButtons {
		t.Buttons = append(t.Buttons,
			Button{Action: ActionDecrement, Icon: overlay.IconMinus},
			Button{Action: ActionIncrement, Icon: overlay.IconPlus},
		)
	}
	return t
}

func name(ws widget.State, cfg *config.Card) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if ws.FriendlyName != "" {
		return ws.FriendlyName
	}
	return cfg.Entity
}

func indicators(res overlay.Resolution, f locale.Formatter) []IndicatorNode {
	nodes := []IndicatorNode{}
	if res.Window.Visible {
		icon, _ := overlay.IconFor(IndicatorWindow)
		nodes = append(nodes, IndicatorNode{
			Kind:   IndicatorWindow,
			Icon:   icon,
			Title:  locale.ModeLabel(f, IndicatorWindow),
			Active: res.Window.Active,
		})
	}
	if res.Summer.Visible {
		icon, _ := overlay.IconFor(IndicatorSummer)
		nodes = append(nodes, IndicatorNode{
			Kind:   IndicatorSummer,
			Icon:   icon,
			Title:  locale.ModeLabel(f, IndicatorSummer),
			Active: res.Summer.Active,
		})
	}
	return nodes
}

func status(res overlay.Resolution, f locale.Formatter) Status {
	if res.Heating {
		return Status{Icon: overlay.IconHeating, Title: f.Localize(locale.KeyHeating), Active: true}
	}
	return Status{Icon: overlay.IconHeating, Title: f.Localize(locale.KeyIdle)}
}

func modes(res overlay.Resolution, f locale.Formatter) []ModeNode {
	nodes := make([]ModeNode, 0, len(res.Modes))
	for _, m := range res.Modes {
		node := ModeNode{
			Mode:     m.Mode,
			Icon:     m.Icon,
			Label:    locale.ModeLabel(f, m.Mode),
			Selected: m.Selected,
		}
		if m.Selected {
			node.Title = m.Mode
		}
		nodes = append(nodes, node)
	}
	return nodes
}
