package overlay

import (
	"testing"

	"thermostatui/internal/config"
	"thermostatui/internal/ha"
	"thermostatui/internal/interaction"
	"thermostatui/internal/widget"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard() *config.Card {
	c := config.DefaultCard()
	c.Entity = "climate.living_room"
	return &c
}

func reconcile(t *testing.T, cfg *config.Card, state string, attrs map[string]interface{}) widget.State {
	r := widget.NewReducer()
	require.True(t, r.Reconcile(&ha.State{EntityID: cfg.Entity, State: state, Attributes: attrs}, cfg))
	return r.State()
}

func modeNames(buttons []ModeButton) []string {
	names := []string{}
	for _, b := range buttons {
		names = append(names, b.Mode)
	}
	return names
}

func selected(buttons []ModeButton) []string {
	names := []string{}
	for _, b := range buttons {
		if b.Selected {
			names = append(names, b.Mode)
		}
	}
	return names
}

func TestResolve_SummerCapabilityModes(t *testing.T) {
	allModes := []interface{}{"auto", "heat", "cool", "heat_cool", "off", "fan_only"}

	tests := []struct {
		name    string
		disable func(c *config.Card)
		want    []string
	}{
		{"all three", func(c *config.Card) {}, []string{"heat", "eco", "off"}},
		{"heat disabled", func(c *config.Card) { c.DisableHeat = true }, []string{"eco", "off"}},
		{"eco disabled", func(c *config.Card) { c.DisableEco = true }, []string{"heat", "off"}},
		{"off disabled", func(c *config.Card) { c.DisableOff = true }, []string{"heat", "eco"}},
		{"all disabled", func(c *config.Card) {
			c.DisableHeat, c.DisableEco, c.DisableOff = true, true, true
		}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newCard()
			tt.disable(cfg)
			ws := reconcile(t, cfg, "heat", map[string]interface{}{
				"call_for_heat": true,
				"hvac_modes":    allModes,
			})

			res := Resolve(ws, interaction.State{}, cfg)
			assert.Equal(t, tt.want, modeNames(res.Modes))
		})
	}
}

func TestResolve_EcoHighlight(t *testing.T) {
	tests := []struct {
		name  string
		state string
		saved interface{}
		want  []string
	}{
		{"no saved temperature", "heat", nil, []string{"heat"}},
		{"saved temperature active", "heat", 21.0, []string{"heat", "eco"}},
		{"literal none", "heat", "none", []string{"heat"}},
		{"unavailable entity", "unavailable", 21.0, []string{}},
		{"mode eco without saved", "eco", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newCard()
			ws := reconcile(t, cfg, tt.state, map[string]interface{}{
				"call_for_heat":     true,
				"saved_temperature": tt.saved,
			})

			res := Resolve(ws, interaction.State{}, cfg)
			assert.Equal(t, tt.want, selected(res.Modes))
		})
	}
}

func TestResolve_DeclaredModes(t *testing.T) {
	cfg := newCard()
	cfg.DisableOff = true
	ws := reconcile(t, cfg, "cool", map[string]interface{}{
		"hvac_modes": []interface{}{"heat", "cool", "off", "boost", "auto"},
	})

	res := Resolve(ws, interaction.State{}, cfg)
	assert.Equal(t, []string{"heat", "cool", "auto"}, modeNames(res.Modes), "disabled and icon-less modes are skipped")
	assert.Equal(t, []string{"cool"}, selected(res.Modes))
	assert.Equal(t, Icon("mdi:snowflake"), res.Modes[1].Icon)
	assert.Equal(t, "cool", res.ContainerClass)
}

func TestResolve_BatteryOverlay(t *testing.T) {
	cfg := newCard()

	t.Run("low battery", func(t *testing.T) {
		ws := reconcile(t, cfg, "heat", map[string]interface{}{"batteries": `{"trv": {"battery": 3}}`})
		res := Resolve(ws, interaction.State{}, cfg)
		assert.True(t, res.ShowLowBattery)
		assert.True(t, res.BatteryOverlay)
		assert.Contains(t, res.SliderClasses, ClassBattery)
	})

	t.Run("error", func(t *testing.T) {
		ws := reconcile(t, cfg, "heat", map[string]interface{}{"errors": `["lost"]`})
		res := Resolve(ws, interaction.State{}, cfg)
		assert.True(t, res.ShowError)
		assert.False(t, res.ShowLowBattery)
		assert.True(t, res.BatteryOverlay)
	})

	t.Run("dismissed battery", func(t *testing.T) {
		ws := reconcile(t, cfg, "heat", map[string]interface{}{"batteries": `{"trv": {"battery": 3}}`})
		res := Resolve(ws, interaction.State{DismissedBattery: "trv"}, cfg)
		assert.False(t, res.ShowLowBattery)
		assert.False(t, res.BatteryOverlay)
		assert.Contains(t, res.SliderClasses, ClassBattery, "the slider keeps the alert class")

		// A different device alerting shows the banner again
		ws = reconcile(t, cfg, "heat", map[string]interface{}{"batteries": `{"other": {"battery": 3}}`})
		res = Resolve(ws, interaction.State{DismissedBattery: "trv"}, cfg)
		assert.True(t, res.ShowLowBattery)
	})

	t.Run("nothing", func(t *testing.T) {
		ws := reconcile(t, cfg, "heat", nil)
		res := Resolve(ws, interaction.State{}, cfg)
		assert.False(t, res.BatteryOverlay)
		assert.Empty(t, res.SliderClasses)
	})
}

func TestResolve_Indicators(t *testing.T) {
	r := widget.NewReducer()
	cfg := newCard()
	require.True(t, r.Reconcile(&ha.State{EntityID: cfg.Entity, State: "heat", Attributes: map[string]interface{}{
		"window_open":   true,
		"call_for_heat": false,
	}}, cfg))

	res := Resolve(r.State(), interaction.State{}, cfg)
	assert.Equal(t, Indicator{Visible: true, Active: true}, res.Window)
	assert.Equal(t, Indicator{Visible: true, Active: true}, res.Summer)
	assert.True(t, res.SliderInactive)
	assert.Equal(t, []string{ClassWindowOpen, ClassSummer}, res.SliderClasses)

	// Capabilities survive a snapshot without the attributes
	require.True(t, r.Reconcile(&ha.State{EntityID: cfg.Entity, State: "heat"}, cfg))
	res = Resolve(r.State(), interaction.State{}, cfg)
	assert.True(t, res.Window.Visible)
	assert.True(t, res.Summer.Visible)

	cfg.DisableWindow = true
	cfg.DisableSummer = true
	res = Resolve(r.State(), interaction.State{}, cfg)
	assert.False(t, res.Window.Visible)
	assert.False(t, res.Summer.Visible)

	// Never observed
	res = Resolve(widget.NewState(), interaction.State{}, newCard())
	assert.False(t, res.Window.Visible)
	assert.False(t, res.Summer.Visible)
}

func TestResolve_Readouts(t *testing.T) {
	cfg := newCard()

	for _, state := range []string{"unavailable", "unknown"} {
		ws := reconcile(t, cfg, state, map[string]interface{}{
			"call_for_heat": true,
			"humidity":      40.0,
		})
		res := Resolve(ws, interaction.State{}, cfg)
		assert.True(t, res.HideReadouts, state)
		assert.Len(t, res.Modes, 3, "mode row still renders when %s", state)
	}

	ws := reconcile(t, cfg, "heat", map[string]interface{}{"humidity": 40.0, "hvac_action": "heating"})
	res := Resolve(ws, interaction.State{}, cfg)
	assert.False(t, res.HideReadouts)
	assert.True(t, res.ShowHumidity)
	assert.True(t, res.Heating)

	ws = reconcile(t, cfg, "off", map[string]interface{}{"hvac_action": "heating"})
	assert.False(t, Resolve(ws, interaction.State{}, cfg).Heating)
	assert.False(t, Resolve(widget.NewState(), interaction.State{}, cfg).HideReadouts, "loading is not unavailable")
}

func TestResolve_MenuAndButtons(t *testing.T) {
	cfg := newCard()
	res := Resolve(widget.NewState(), interaction.State{}, cfg)
	assert.True(t, res.ShowMenu)
	assert.True(t, res.ShowButtons)

	cfg.DisableMenu = true
	cfg.DisableButtons = true
	res = Resolve(widget.NewState(), interaction.State{}, cfg)
	assert.False(t, res.ShowMenu)
	assert.False(t, res.ShowButtons)

	res = Resolve(widget.NewState(), interaction.State{}, nil)
	assert.True(t, res.ShowMenu)
	assert.Equal(t, "off", res.ContainerClass)
}

func TestIconFor(t *testing.T) {
	for _, mode := range []string{"auto", "heat_cool", "heat", "cool", "off", "fan_only", "dry", "window_open", "eco", "summer", "temperature", "humidity"} {
		icon, ok := IconFor(mode)
		assert.True(t, ok, mode)
		assert.NotEmpty(t, icon)
	}
	_, ok := IconFor("boost")
	assert.False(t, ok)
}
