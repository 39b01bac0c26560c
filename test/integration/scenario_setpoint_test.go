package integration

import (
	"testing"
	"time"

	"thermostatui/internal/ha"
	"thermostatui/internal/interaction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_DragReleaseSendsOneSetpoint drags the slider through several
// values; only the released value reaches Home Assistant
func TestScenario_DragReleaseSendsOneSetpoint(t *testing.T) {
	env := setupTest(t, officeCard(), false)

	t.Log("WHEN: The slider is dragged and released")
	for _, v := range []float64{21.5, 22.0, 22.5} {
		require.NoError(t, env.Card.Dispatch(interaction.ValueChanging{Value: v}))
	}
	require.NoError(t, env.Card.Dispatch(interaction.ValueChanged{Value: 23.0}))

	t.Log("THEN: Exactly one set_temperature call carries the released value")
	calls := waitCalls(t, env, 1)
	require.Len(t, calls, 1)
	call := FindServiceCallWithEntityID(calls, ha.DomainClimate, ha.ServiceSetTemperature, office)
	require.NotNil(t, call)
	temp, ok := call.Temperature()
	require.True(t, ok)
	assert.Equal(t, 23.0, temp)

	t.Log("AND: The echoed state_changed event settles the card")
	require.Eventually(t, func() bool {
		v := env.Card.View()
		return v.Snapshot.Attributes["temperature"] == 23.0 && !v.Interaction.Dragging
	}, waitFor, tick)
	assert.Equal(t, "23.0", env.Card.Tree().Primary.Value)
}

// TestScenario_StepperDebounce presses the stepper repeatedly; one commit is
// sent after the delay elapses on the card's clock
func TestScenario_StepperDebounce(t *testing.T) {
	env := setupTest(t, officeCard(), false)

	t.Log("WHEN: The stepper is pressed three times")
	for i := 0; i < 3; i++ {
		require.NoError(t, env.Card.Dispatch(interaction.Increment{}))
	}
	require.Eventually(t, func() bool {
		return env.Card.View().Widget.Target == 22.5
	}, waitFor, tick)
	assert.True(t, env.Card.View().Interaction.StepPending)
	assert.Equal(t, 1, env.Clock.Pending())

	t.Log("THEN: Nothing is sent before the delay")
	env.Clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, env.Server.GetServiceCalls())

	t.Log("AND: One call is sent once the delay elapses")
	env.Clock.Advance(time.Second)
	calls := waitCalls(t, env, 1)
	require.Len(t, calls, 1)
	temp, _ := calls[0].Temperature()
	assert.Equal(t, 22.5, temp)

	require.Eventually(t, func() bool {
		return !env.Card.View().Interaction.StepPending
	}, waitFor, tick)
}

// TestScenario_ExternalChange reflects a setpoint changed elsewhere, for
// example from the Home Assistant UI
func TestScenario_ExternalChange(t *testing.T) {
	env := setupTest(t, officeCard(), false)

	current := env.Server.GetState(office)
	attrs := make(map[string]interface{}, len(current.Attributes))
	for k, v := range current.Attributes {
		attrs[k] = v
	}
	attrs["temperature"] = 18.5
	attrs["hvac_action"] = "idle"
	env.Server.SetState(office, "heat", attrs)

	require.Eventually(t, func() bool {
		return env.Card.View().Widget.Target == 18.5
	}, waitFor, tick)
	tree := env.Card.Tree()
	assert.Equal(t, "18.5", tree.Primary.Value)
	assert.False(t, tree.Status.Active)
	assert.Empty(t, env.Server.GetServiceCalls(), "observing a change sends nothing")
}

// TestScenario_ReadOnly keeps every gesture local
func TestScenario_ReadOnly(t *testing.T) {
	env := setupTest(t, officeCard(), true)

	require.NoError(t, env.Card.Dispatch(interaction.ValueChanged{Value: 25.0}))
	require.NoError(t, env.Card.Dispatch(interaction.SelectMode{Mode: "off"}))

	require.Eventually(t, func() bool {
		return env.Card.View().Widget.Target == 25.0
	}, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, env.Server.GetServiceCalls())
	assert.Equal(t, 21.0, env.Server.GetState(office).Attributes["temperature"])
}

// TestScenario_ServiceError leaves the card usable after Home Assistant
// rejects a call
func TestScenario_ServiceError(t *testing.T) {
	env := setupTest(t, officeCard(), false)
	env.Server.FailService(ha.DomainClimate, ha.ServiceSetHVACMode, "mode not supported")

	require.NoError(t, env.Card.Dispatch(interaction.SelectMode{Mode: "off"}))
	require.NoError(t, env.Card.Dispatch(interaction.ValueChanged{Value: 20.0}))

	calls := waitCalls(t, env, 2)
	assert.Equal(t, []string{"climate.set_hvac_mode", "climate.set_temperature"}, Services(calls))
	require.Eventually(t, func() bool {
		return env.Card.View().Snapshot.Attributes["temperature"] == 20.0
	}, waitFor, tick)
	assert.Equal(t, "heat", env.Server.GetState(office).State)
}
