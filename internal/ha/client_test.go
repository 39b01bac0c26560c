package ha

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// mockHAServer creates a mock Home Assistant WebSocket server
func mockHAServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("Failed to upgrade connection: %v", err)
		}
		defer conn.Close()

		handler(conn)
	}))
}

// standardAuthFlow handles the standard authentication flow
func standardAuthFlow(t *testing.T, conn *websocket.Conn, token string) {
	// Send auth_required
	err := conn.WriteJSON(Message{Type: "auth_required"})
	require.NoError(t, err)

	// Receive auth message
	var authMsg AuthMessage
	err = conn.ReadJSON(&authMsg)
	require.NoError(t, err)
	assert.Equal(t, "auth", authMsg.Type)
	assert.Equal(t, token, authMsg.AccessToken)

	// Send auth_ok
	err = conn.WriteJSON(Message{Type: "auth_ok"})
	require.NoError(t, err)
}

// acceptSubscribe answers the subscribe_events request sent by Connect
func acceptSubscribe(conn *websocket.Conn) {
	var subMsg SubscribeEventsRequest
	conn.ReadJSON(&subMsg)
	success := true
	conn.WriteJSON(Message{
		ID:      subMsg.ID,
		Type:    "result",
		Success: &success,
	})
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_Connect(t *testing.T) {
	logger := zap.NewNop()
	token := "test_token"

	t.Run("successful connection", func(t *testing.T) {
		server := mockHAServer(t, func(conn *websocket.Conn) {
			standardAuthFlow(t, conn, token)
			acceptSubscribe(conn)

			// Keep connection open
			time.Sleep(100 * time.Millisecond)
		})
		defer server.Close()

		client := NewClient(wsURL(server), token, logger)

		err := client.Connect()
		assert.NoError(t, err)
		assert.True(t, client.IsConnected())

		client.Disconnect()
		assert.False(t, client.IsConnected())
	})

	t.Run("invalid token", func(t *testing.T) {
		server := mockHAServer(t, func(conn *websocket.Conn) {
			conn.WriteJSON(Message{Type: "auth_required"})

			var authMsg AuthMessage
			conn.ReadJSON(&authMsg)

			conn.WriteJSON(Message{Type: "auth_invalid"})
		})
		defer server.Close()

		client := NewClient(wsURL(server), "wrong_token", logger)

		err := client.Connect()
		assert.ErrorIs(t, err, ErrAuthInvalid)
		assert.Contains(t, err.Error(), "authentication failed")
		assert.False(t, client.IsConnected())
	})

	t.Run("unexpected greeting", func(t *testing.T) {
		server := mockHAServer(t, func(conn *websocket.Conn) {
			conn.WriteJSON(Message{Type: "result"})
		})
		defer server.Close()

		client := NewClient(wsURL(server), token, logger)

		err := client.Connect()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expected auth_required")
	})

	t.Run("already connected", func(t *testing.T) {
		server := mockHAServer(t, func(conn *websocket.Conn) {
			standardAuthFlow(t, conn, token)
			acceptSubscribe(conn)

			time.Sleep(100 * time.Millisecond)
		})
		defer server.Close()

		client := NewClient(wsURL(server), token, logger)

		err := client.Connect()
		require.NoError(t, err)

		err = client.Connect()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already connected")

		client.Disconnect()
	})
}

func TestClient_NotConnected(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1", "token", zap.NewNop())

	_, err := client.GetAllStates()
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.SetTemperature("climate.living_room", 21)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_GetAllStates(t *testing.T) {
	token := "test_token"

	server := mockHAServer(t, func(conn *websocket.Conn) {
		standardAuthFlow(t, conn, token)
		acceptSubscribe(conn)

		var statesReq GetStatesRequest
		conn.ReadJSON(&statesReq)
		assert.Equal(t, "get_states", statesReq.Type)

		states := []*State{
			{
				EntityID: "climate.living_room",
				State:    "heat",
				Attributes: map[string]interface{}{
					"current_temperature": 20.5,
					"temperature":         21.0,
					"hvac_modes":          []string{"heat", "off"},
				},
			},
			{
				EntityID: "sensor.outdoor",
				State:    "7.5",
			},
		}

		statesJSON, _ := json.Marshal(states)
		success := true
		conn.WriteJSON(Message{
			ID:      statesReq.ID,
			Type:    "result",
			Success: &success,
			Result:  statesJSON,
		})

		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(wsURL(server), token, zap.NewNop())

	err := client.Connect()
	require.NoError(t, err)
	defer client.Disconnect()

	states, err := client.GetAllStates()
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "climate.living_room", states[0].EntityID)
	assert.Equal(t, "heat", states[0].State)

	v, ok := states[0].Attr("current_temperature")
	assert.True(t, ok)
	assert.Equal(t, 20.5, v)
}

func TestClient_GetState(t *testing.T) {
	token := "test_token"

	server := mockHAServer(t, func(conn *websocket.Conn) {
		standardAuthFlow(t, conn, token)
		acceptSubscribe(conn)

		// GetState is served by get_states; answer both lookups
		for i := 0; i < 2; i++ {
			var statesReq GetStatesRequest
			if err := conn.ReadJSON(&statesReq); err != nil {
				return
			}

			statesJSON, _ := json.Marshal([]*State{{EntityID: "climate.office", State: "off"}})
			success := true
			conn.WriteJSON(Message{
				ID:      statesReq.ID,
				Type:    "result",
				Success: &success,
				Result:  statesJSON,
			})
		}

		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(wsURL(server), token, zap.NewNop())

	err := client.Connect()
	require.NoError(t, err)
	defer client.Disconnect()

	state, err := client.GetState("climate.office")
	assert.NoError(t, err)
	assert.Equal(t, "climate.office", state.EntityID)
	assert.Equal(t, "off", state.State)

	_, err = client.GetState("climate.nonexistent")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestClient_ClimateServices(t *testing.T) {
	token := "test_token"

	testCases := []struct {
		name        string
		call        func(c *Client) error
		domain      string
		service     string
		temperature interface{}
		hvacMode    interface{}
	}{
		{
			name:        "set temperature",
			call:        func(c *Client) error { return c.SetTemperature("climate.living_room", 21.5) },
			domain:      "climate",
			service:     "set_temperature",
			temperature: 21.5,
		},
		{
			name:     "set hvac mode",
			call:     func(c *Client) error { return c.SetHVACMode("climate.living_room", "heat") },
			domain:   "climate",
			service:  "set_hvac_mode",
			hvacMode: "heat",
		},
		{
			name:        "eco override",
			call:        func(c *Client) error { return c.SetTempTargetTemperature("climate.living_room", 18) },
			domain:      "better_thermostat",
			service:     "set_temp_target_temperature",
			temperature: 18.0,
		},
		{
			name:    "restore saved target",
			call:    func(c *Client) error { return c.RestoreSavedTargetTemperature("climate.living_room") },
			domain:  "better_thermostat",
			service: "restore_saved_target_temperature",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := mockHAServer(t, func(conn *websocket.Conn) {
				standardAuthFlow(t, conn, token)
				acceptSubscribe(conn)

				var serviceReq CallServiceRequest
				conn.ReadJSON(&serviceReq)

				assert.Equal(t, "call_service", serviceReq.Type)
				assert.Equal(t, tc.domain, serviceReq.Domain)
				assert.Equal(t, tc.service, serviceReq.Service)
				assert.Equal(t, "climate.living_room", serviceReq.ServiceData["entity_id"])
				assert.Equal(t, tc.temperature, serviceReq.ServiceData["temperature"])
				assert.Equal(t, tc.hvacMode, serviceReq.ServiceData["hvac_mode"])

				success := true
				conn.WriteJSON(Message{
					ID:      serviceReq.ID,
					Type:    "result",
					Success: &success,
				})

				time.Sleep(50 * time.Millisecond)
			})
			defer server.Close()

			client := NewClient(wsURL(server), token, zap.NewNop())

			err := client.Connect()
			require.NoError(t, err)
			defer client.Disconnect()

			assert.NoError(t, tc.call(client))
		})
	}
}

func TestClient_CallServiceError(t *testing.T) {
	token := "test_token"

	server := mockHAServer(t, func(conn *websocket.Conn) {
		standardAuthFlow(t, conn, token)
		acceptSubscribe(conn)

		var serviceReq CallServiceRequest
		conn.ReadJSON(&serviceReq)

		success := false
		conn.WriteJSON(Message{
			ID:      serviceReq.ID,
			Type:    "result",
			Success: &success,
			Error:   &Error{Code: "service_validation_error", Message: "temperature out of range"},
		})

		time.Sleep(50 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(wsURL(server), token, zap.NewNop())

	err := client.Connect()
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.SetTemperature("climate.living_room", 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_validation_error")
	assert.Contains(t, err.Error(), "temperature out of range")
}

func TestClient_RequestTimeout(t *testing.T) {
	token := "test_token"

	server := mockHAServer(t, func(conn *websocket.Conn) {
		standardAuthFlow(t, conn, token)
		acceptSubscribe(conn)

		// Never answer the service call
		var serviceReq CallServiceRequest
		conn.ReadJSON(&serviceReq)
		time.Sleep(200 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(wsURL(server), token, zap.NewNop())
	client.SetRequestTimeout(20 * time.Millisecond)

	err := client.Connect()
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.SetHVACMode("climate.living_room", "off")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestClient_StateChangedEvents(t *testing.T) {
	token := "test_token"
	release := make(chan struct{})

	server := mockHAServer(t, func(conn *websocket.Conn) {
		standardAuthFlow(t, conn, token)
		acceptSubscribe(conn)

		<-release

		send := func(entityID, state string) {
			data, _ := json.Marshal(StateChangedEvent{
				EntityID: entityID,
				NewState: &State{
					EntityID:   entityID,
					State:      state,
					Attributes: map[string]interface{}{"temperature": 19.0},
				},
			})
			conn.WriteJSON(Message{
				Type: "event",
				Event: &Event{
					EventType: "state_changed",
					Data:      data,
				},
			})
		}

		send("climate.other", "off")
		send("climate.living_room", "heat")
		send("climate.living_room", "off")

		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(wsURL(server), token, zap.NewNop())

	err := client.Connect()
	require.NoError(t, err)
	defer client.Disconnect()

	received := make(chan *State, 4)
	sub, err := client.SubscribeStateChanges("climate.living_room", func(entityID string, oldState, newState *State) {
		assert.Equal(t, "climate.living_room", entityID)
		received <- newState
	})
	require.NoError(t, err)
	close(release)

	var first, second *State
	select {
	case first = <-received:
	case <-time.After(time.Second):
		t.Fatal("no state_changed delivered")
	}
	select {
	case second = <-received:
	case <-time.After(time.Second):
		t.Fatal("second state_changed not delivered")
	}

	assert.Equal(t, "heat", first.State)
	assert.Equal(t, "off", second.State)
	assert.NotSame(t, first, second, "every event must carry a fresh snapshot")

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe(), "unsubscribing twice is a no-op")
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()

	t.Run("connection", func(t *testing.T) {
		assert.False(t, mock.IsConnected())

		err := mock.Connect()
		assert.NoError(t, err)
		assert.True(t, mock.IsConnected())

		err = mock.Connect()
		assert.Error(t, err)

		err = mock.Disconnect()
		assert.NoError(t, err)
		assert.False(t, mock.IsConnected())
	})

	t.Run("state management", func(t *testing.T) {
		mock.SetState("climate.living_room", "heat", map[string]interface{}{
			"temperature": 21.0,
		})

		state, err := mock.GetState("climate.living_room")
		assert.NoError(t, err)
		assert.Equal(t, "heat", state.State)

		_, err = mock.GetState("climate.nonexistent")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("service calls update state", func(t *testing.T) {
		mock.ClearServiceCalls()
		before, _ := mock.GetState("climate.living_room")

		require.NoError(t, mock.SetTemperature("climate.living_room", 22.5))
		require.NoError(t, mock.SetHVACMode("climate.living_room", "off"))

		calls := mock.GetServiceCalls()
		require.Len(t, calls, 2)
		assert.Equal(t, "climate", calls[0].Domain)
		assert.Equal(t, "set_temperature", calls[0].Service)
		assert.Equal(t, "set_hvac_mode", calls[1].Service)

		after, _ := mock.GetState("climate.living_room")
		assert.NotSame(t, before, after)
		assert.Equal(t, "off", after.State)
		assert.Equal(t, 22.5, after.Attributes["temperature"])
		assert.Equal(t, 21.0, before.Attributes["temperature"], "old snapshot must not be mutated")
	})

	t.Run("failing service calls", func(t *testing.T) {
		mock.ClearServiceCalls()
		mock.FailServiceCalls(assert.AnError)
		defer mock.FailServiceCalls(nil)

		err := mock.SetTemperature("climate.living_room", 18)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Len(t, mock.GetServiceCalls(), 1)
	})

	t.Run("subscriptions", func(t *testing.T) {
		callCount := 0
		handler := func(entityID string, oldState, newState *State) {
			callCount++
			assert.Equal(t, "climate.living_room", entityID)
			assert.Equal(t, "heat", newState.State)
		}

		sub, err := mock.SubscribeStateChanges("climate.living_room", handler)
		require.NoError(t, err)
		assert.Equal(t, 1, mock.SubscriberCount("climate.living_room"))

		require.NoError(t, mock.SetHVACMode("climate.living_room", "heat"))
		assert.Equal(t, 1, callCount)

		require.NoError(t, sub.Unsubscribe())
		assert.Equal(t, 0, mock.SubscriberCount("climate.living_room"))

		mock.SetState("climate.living_room", "heat", nil)
		assert.Equal(t, 1, callCount)
	})
}
