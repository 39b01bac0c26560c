// Package testutil provides a mock Home Assistant websocket server that
// speaks enough of the protocol to drive the climate card end to end.
package testutil

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"thermostatui/internal/ha"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EntityState is the entity representation exchanged with clients
type EntityState = ha.State

// connWrapper wraps a WebSocket connection with its write mutex
type connWrapper struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (w *connWrapper) write(msg ha.Message) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteJSON(msg); err != nil {
		log.Printf("Mock HA server write failed: %v", err)
	}
}

// MockHAServer simulates the Home Assistant websocket API. Climate and
// Better Thermostat service calls update the stored entity and broadcast
// state_changed like the real integration.
type MockHAServer struct {
	server *httptest.Server
	token  string

	states   map[string]*EntityState
	statesMu sync.RWMutex

	connections []*connWrapper
	connsMu     sync.Mutex

	eventDelay time.Duration

	serviceCalls []ServiceCall
	failing      map[string]string
	callsMu      sync.Mutex
}

// NewMockHAServer creates a server that accepts token. Call Start before
// connecting.
func NewMockHAServer(token string) *MockHAServer {
	return &MockHAServer{
		token:   token,
		states:  make(map[string]*EntityState),
		failing: make(map[string]string),
	}
}

// SetEventDelay delays state_changed broadcasts to simulate latency
func (s *MockHAServer) SetEventDelay(delay time.Duration) {
	s.eventDelay = delay
}

// Start starts listening on a random local port
func (s *MockHAServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/websocket", s.handleWebSocket)
	s.server = httptest.NewServer(mux)
}

// URL returns the websocket URL clients should dial
func (s *MockHAServer) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/websocket"
}

// Stop closes every connection and the listener
func (s *MockHAServer) Stop() {
	s.DropConnections()
	if s.server != nil {
		s.server.Close()
	}
}

// DropConnections closes every client connection, leaving the listener up
// so clients can reconnect
func (s *MockHAServer) DropConnections() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for _, wrapper := range s.connections {
		wrapper.conn.Close()
	}
	s.connections = nil
}

// ConnectionCount returns the number of authenticated connections
func (s *MockHAServer) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.connections)
}

// SetState stores a new entity state and broadcasts state_changed
func (s *MockHAServer) SetState(entityID, state string, attributes map[string]interface{}) {
	now := time.Now()
	s.replaceState(&EntityState{
		EntityID:    entityID,
		State:       state,
		Attributes:  attributes,
		LastChanged: now,
		LastUpdated: now,
	})
}

// SetStateQuietly stores a new entity state without broadcasting it, as if
// the event was lost
func (s *MockHAServer) SetStateQuietly(entityID, state string, attributes map[string]interface{}) {
	now := time.Now()
	s.statesMu.Lock()
	s.states[entityID] = &EntityState{
		EntityID:    entityID,
		State:       state,
		Attributes:  attributes,
		LastChanged: now,
		LastUpdated: now,
	}
	s.statesMu.Unlock()
}

func (s *MockHAServer) replaceState(next *EntityState) {
	s.statesMu.Lock()
	old := s.states[next.EntityID]
	s.states[next.EntityID] = next
	s.statesMu.Unlock()

	if s.eventDelay > 0 {
		time.Sleep(s.eventDelay)
	}
	s.broadcastStateChange(next.EntityID, old, next)
}

// GetState retrieves a state
func (s *MockHAServer) GetState(entityID string) *EntityState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	return s.states[entityID]
}

// FailService makes calls to domain.service answer with an error result
func (s *MockHAServer) FailService(domain, service, message string) {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	s.failing[domain+"."+service] = message
}

// InitializeClimate creates a Better Thermostat entity with typical
// attributes
func (s *MockHAServer) InitializeClimate(entityID string) {
	s.SetState(entityID, "heat", map[string]interface{}{
		"friendly_name":       "Living room",
		"hvac_modes":          []interface{}{"heat", "off"},
		"temperature":         21.0,
		"current_temperature": 19.5,
		"humidity":            45.0,
		"target_temp_step":    0.5,
		"min_temp":            5.0,
		"max_temp":            30.0,
		"hvac_action":         "heating",
		"window_open":         false,
		"call_for_heat":       true,
		"batteries":           `{"Valve living room": {"battery": 80}}`,
		"errors":              `[]`,
	})
}

func (s *MockHAServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	wrapper := &connWrapper{conn: conn}
	wrapper.write(ha.Message{Type: "auth_required"})

	var auth ha.AuthMessage
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth.AccessToken != s.token {
		wrapper.write(ha.Message{Type: "auth_invalid"})
		return
	}
	wrapper.write(ha.Message{Type: "auth_ok"})

	s.connsMu.Lock()
	s.connections = append(s.connections, wrapper)
	s.connsMu.Unlock()

	defer func() {
		s.connsMu.Lock()
		for i, c := range s.connections {
			if c == wrapper {
				s.connections = append(s.connections[:i], s.connections[i+1:]...)
				break
			}
		}
		s.connsMu.Unlock()
	}()

	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			return
		}

		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			continue
		}

		switch base.Type {
		case "subscribe_events":
			var req ha.SubscribeEventsRequest
			if json.Unmarshal(raw, &req) == nil {
				wrapper.write(result(req.ID, nil, nil))
			}
		case "get_states":
			var req ha.GetStatesRequest
			if json.Unmarshal(raw, &req) == nil {
				s.handleGetStates(wrapper, req)
			}
		case "call_service":
			var req ha.CallServiceRequest
			if json.Unmarshal(raw, &req) == nil {
				s.handleCallService(wrapper, req)
			}
		}
	}
}

func result(id int, payload json.RawMessage, failure *ha.Error) ha.Message {
	success := failure == nil
	return ha.Message{
		ID:      id,
		Type:    "result",
		Success: &success,
		Result:  payload,
		Error:   failure,
	}
}

func (s *MockHAServer) handleGetStates(wrapper *connWrapper, req ha.GetStatesRequest) {
	s.statesMu.RLock()
	states := make([]*EntityState, 0, len(s.states))
	for _, state := range s.states {
		states = append(states, state)
	}
	s.statesMu.RUnlock()

	payload, err := json.Marshal(states)
	if err != nil {
		wrapper.write(result(req.ID, nil, &ha.Error{Code: "unknown_error", Message: err.Error()}))
		return
	}
	wrapper.write(result(req.ID, payload, nil))
}

func (s *MockHAServer) handleCallService(wrapper *connWrapper, req ha.CallServiceRequest) {
	s.callsMu.Lock()
	s.serviceCalls = append(s.serviceCalls, ServiceCall{
		Timestamp:   time.Now(),
		Domain:      req.Domain,
		Service:     req.Service,
		ServiceData: req.ServiceData,
	})
	failure, failing := s.failing[req.Domain+"."+req.Service]
	s.callsMu.Unlock()

	if failing {
		wrapper.write(result(req.ID, nil, &ha.Error{Code: "service_validation_error", Message: failure}))
		return
	}

	entityID, _ := req.ServiceData["entity_id"].(string)
	s.statesMu.RLock()
	old := s.states[entityID]
	s.statesMu.RUnlock()

	if old == nil && (req.Domain == ha.DomainClimate || req.Domain == ha.DomainBetterThermostat) {
		wrapper.write(result(req.ID, nil, &ha.Error{Code: "not_found", Message: "entity " + entityID + " not found"}))
		return
	}

	// Answer before broadcasting, as Home Assistant does
	wrapper.write(result(req.ID, nil, nil))

	if next, ok := ha.ApplyClimateService(old, req.Domain, req.Service, req.ServiceData); ok {
		s.replaceState(next)
	}
}

func (s *MockHAServer) broadcastStateChange(entityID string, oldState, newState *EntityState) {
	data, err := json.Marshal(ha.StateChangedEvent{
		EntityID: entityID,
		NewState: newState,
		OldState: oldState,
	})
	if err != nil {
		log.Printf("Failed to encode state_changed for %s: %v", entityID, err)
		return
	}

	msg := ha.Message{
		Type: "event",
		Event: &ha.Event{
			EventType: "state_changed",
			Data:      data,
			Origin:    "LOCAL",
			TimeFired: time.Now(),
		},
	}

	s.connsMu.Lock()
	wrappers := make([]*connWrapper, len(s.connections))
	copy(wrappers, s.connections)
	s.connsMu.Unlock()

	for _, wrapper := range wrappers {
		wrapper.write(msg)
	}
}

// GetServiceCalls returns all service calls since last clear
func (s *MockHAServer) GetServiceCalls() []ServiceCall {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	calls := make([]ServiceCall, len(s.serviceCalls))
	copy(calls, s.serviceCalls)
	return calls
}

// ClearServiceCalls resets the service call log
func (s *MockHAServer) ClearServiceCalls() {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	s.serviceCalls = nil
}

// FindServiceCall returns the most recent call to domain.service for
// entityID, or any entity when entityID is empty
func (s *MockHAServer) FindServiceCall(domain, service, entityID string) *ServiceCall {
	calls := s.GetServiceCalls()
	if entityID == "" {
		filtered := FilterServiceCalls(calls, domain, service)
		if len(filtered) == 0 {
			return nil
		}
		return &filtered[len(filtered)-1]
	}
	return FindServiceCallWithEntityID(calls, domain, service, entityID)
}

// CountServiceCalls counts service calls matching criteria
func (s *MockHAServer) CountServiceCalls(domain, service string) int {
	return len(FilterServiceCalls(s.GetServiceCalls(), domain, service))
}
