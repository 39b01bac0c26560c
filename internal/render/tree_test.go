package render

import (
	"testing"

	"thermostatui/internal/config"
	"thermostatui/internal/ha"
	"thermostatui/internal/interaction"
	"thermostatui/internal/locale"
	"thermostatui/internal/overlay"
	"thermostatui/internal/widget"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newCard() *config.Card {
	c := config.DefaultCard()
	c.Entity = "climate.office"
	return &c
}

func project(t *testing.T, cfg *config.Card, is interaction.State, f locale.Formatter, state string, attrs map[string]interface{}) Tree {
	r := widget.NewReducer()
	require.True(t, r.Reconcile(&ha.State{EntityID: cfg.Entity, State: state, Attributes: attrs}, cfg))
	ws := r.State()
	return Project(ws, is, overlay.Resolve(ws, is, cfg), cfg, f)
}

func TestProject_Readouts(t *testing.T) {
	cfg := newCard()
	en := locale.New(language.English)

	tree := project(t, cfg, interaction.State{}, en, "heat", map[string]interface{}{
		"temperature":         21.5,
		"current_temperature": 19.26,
		"friendly_name":       "Office",
	})

	require.NotNil(t, tree.Primary)
	require.NotNil(t, tree.Secondary)
	assert.Equal(t, Readout{Value: "21.5", Unit: "°C"}, *tree.Primary)
	assert.Equal(t, "19.3", tree.Secondary.Value)
	assert.Nil(t, tree.Humidity)
	assert.Empty(t, tree.Placeholder)
	assert.Equal(t, "Office", tree.Name)
	assert.Equal(t, "heat", tree.ContainerClass)
	assert.False(t, tree.Loading)
}

func TestProject_CurrentAsMain(t *testing.T) {
	cfg := newCard()
	cfg.SetCurrentAsMain = true
	cfg.Name = "Study"

	tree := project(t, cfg, interaction.State{}, locale.New(language.English), "heat", map[string]interface{}{
		"temperature":         22.0,
		"current_temperature": 20.0,
		"humidity":            45.0,
	})

	assert.Equal(t, "20.0", tree.Primary.Value)
	assert.Equal(t, "22.0", tree.Secondary.Value)
	require.NotNil(t, tree.Humidity)
	assert.Equal(t, Readout{Value: "45.0", Unit: "%"}, *tree.Humidity)
	assert.Equal(t, "Study", tree.Name)
}

func TestProject_GermanNumbers(t *testing.T) {
	cfg := newCard()
	cfg.Language = "de"

	tree := project(t, cfg, interaction.State{}, locale.New(cfg.Tag()), "heat", map[string]interface{}{
		"temperature":         21.5,
		"current_temperature": 19.0,
		"call_for_heat":       true,
	})

	assert.Equal(t, "21,5", tree.Primary.Value)
	assert.Equal(t, "19,0", tree.Secondary.Value)
	assert.Equal(t, []string{"Heizen", "Eco", "Aus"}, []string{tree.Modes[0].Label, tree.Modes[1].Label, tree.Modes[2].Label})
	assert.Equal(t, "Weitere Informationen anzeigen", tree.MoreInfo.Label)
}

func TestProject_Unavailable(t *testing.T) {
	cfg := newCard()

	tree := project(t, cfg, interaction.State{}, locale.New(language.English), "unavailable", map[string]interface{}{
		"temperature":         21.0,
		"current_temperature": 19.0,
		"humidity":            40.0,
		"call_for_heat":       true,
	})

	assert.Nil(t, tree.Primary)
	assert.Nil(t, tree.Secondary)
	assert.Nil(t, tree.Humidity)
	assert.Equal(t, "Unavailable", tree.Placeholder)
	require.Len(t, tree.Modes, 3, "mode affordances still render")
	for _, m := range tree.Modes {
		assert.False(t, m.Selected, m.Mode)
	}
}

func TestProject_Banners(t *testing.T) {
	cfg := newCard()
	en := locale.New(language.English)
	attrs := map[string]interface{}{
		"batteries": `{"Valve kitchen": {"battery": 7}, "Valve hall": {"battery": 4}}`,
		"errors":    `["Valve hall unreachable", "second"]`,
	}

	tree := project(t, cfg, interaction.State{}, en, "heat", attrs)
	require.NotNil(t, tree.LowBattery)
	assert.Equal(t, Banner{Icon: overlay.IconLowBattery, Title: "Low battery", Text: "Valve kitchen", Detail: "7%"}, *tree.LowBattery)
	require.NotNil(t, tree.Error)
	assert.Equal(t, "Valve hall unreachable", tree.Error.Text)
	assert.Contains(t, tree.Slider.Classes, overlay.ClassBattery)

	tree = project(t, cfg, interaction.State{DismissedBattery: "Valve kitchen"}, en, "heat", attrs)
	assert.Nil(t, tree.LowBattery)
	assert.NotNil(t, tree.Error)
}

func TestProject_IndicatorsAndStatus(t *testing.T) {
	cfg := newCard()

	tree := project(t, cfg, interaction.State{}, locale.New(language.English), "heat", map[string]interface{}{
		"window_open":   true,
		"call_for_heat": true,
		"hvac_action":   "heating",
	})

	require.Len(t, tree.Indicators, 2)
	assert.Equal(t, IndicatorNode{Kind: IndicatorWindow, Icon: "mdi:window-open-variant", Title: "Window open", Active: true}, tree.Indicators[0])
	assert.Equal(t, IndicatorNode{Kind: IndicatorSummer, Icon: "mdi:sun-thermometer", Title: "Summer", Active: false}, tree.Indicators[1])
	assert.True(t, tree.Slider.Inactive)
	assert.Equal(t, Status{Icon: overlay.IconHeating, Title: "Heating", Active: true}, tree.Status)
}

func TestProject_MenuAndButtons(t *testing.T) {
	cfg := newCard()
	en := locale.New(language.English)

	tree := project(t, cfg, interaction.State{Dragging: true}, en, "heat", nil)
	require.NotNil(t, tree.MoreInfo)
	assert.Equal(t, ActionMoreInfo, tree.MoreInfo.Action)
	assert.Equal(t, []string{ActionDecrement, ActionIncrement}, []string{tree.Buttons[0].Action, tree.Buttons[1].Action})
	assert.True(t, tree.Slider.Dragging)

	cfg.DisableMenu = true
	cfg.DisableButtons = true
	tree = project(t, cfg, interaction.State{}, en, "heat", nil)
	assert.Nil(t, tree.MoreInfo)
	assert.Empty(t, tree.Buttons)
}

func TestProject_DoesNotMutate(t *testing.T) {
	cfg := newCard()
	ws := widget.NewState()
	ws.Target = 20
	ws.AvailableModes = []string{"heat", "off"}
	before := ws.Clone()

	tree := Project(ws, interaction.State{}, overlay.Resolve(ws, interaction.State{}, cfg), cfg, locale.New(language.English))
	assert.Equal(t, before, ws)
	assert.True(t, tree.Loading)
	assert.Equal(t, "climate.office", tree.Name, "falls back to the entity id")
}

func TestProject_Loading(t *testing.T) {
	cfg := newCard()
	ws := widget.NewState()
	ws.AvailableModes = []string{"heat", "off"}
	res := overlay.Resolve(ws, interaction.State{}, cfg)

	tree := Project(ws, interaction.State{}, res, cfg, locale.New(language.German))
	assert.True(t, tree.Loading)
	assert.Equal(t, "Lädt", tree.Placeholder)
	assert.Nil(t, tree.Primary)
	assert.Nil(t, tree.Secondary)
	assert.Empty(t, tree.Modes)
	assert.Empty(t, tree.Buttons)
	assert.NotNil(t, tree.MoreInfo)
}

func TestProject_SelectedModeTitle(t *testing.T) {
	cfg := newCard()
	tree := project(t, cfg, interaction.State{}, locale.New(language.English), "cool", map[string]interface{}{
		"hvac_modes": []interface{}{"heat", "cool"},
	})

	require.Len(t, tree.Modes, 2)
	assert.Equal(t, ModeNode{Mode: "heat", Icon: "mdi:fire", Label: "Heat"}, tree.Modes[0])
	assert.Equal(t, ModeNode{Mode: "cool", Icon: "mdi:snowflake", Label: "Cool", Title: "cool", Selected: true}, tree.Modes[1])
}

func TestProject_ZeroHumidityIsHidden(t *testing.T) {
	// 0 % cannot be told apart from "not reported"
	tree := project(t, newCard(), interaction.State{}, locale.New(language.English), "heat", map[string]interface{}{
		"temperature": 21.0,
		"humidity":    0.0,
	})
	assert.Nil(t, tree.Humidity)
	require.NotNil(t, tree.Primary)
}
