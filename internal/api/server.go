package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"thermostatui/internal/card"
	"thermostatui/internal/ha"
	"thermostatui/internal/interaction"
	"thermostatui/internal/render"

	"go.uber.org/zap"
)

// Card is the part of the card runtime the API drives
type Card interface {
	View() card.View
	Dispatch(ev interaction.Event) error
}

// Server exposes the rendered card and accepts user actions over HTTP
type Server struct {
	card   Card
	logger *zap.Logger
	server *http.Server

	moreInfoMu sync.RWMutex
	moreInfo   *MoreInfoResponse
}

// NewServer creates a new API server
func NewServer(c Card, logger *zap.Logger, port int) *Server {
	s := &Server{
		card:   c,
		logger: logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/card", s.handleGetCard)
	mux.HandleFunc("/api/card/state", s.handleGetState)
	mux.HandleFunc("/api/card/actions", s.handleAction)
	mux.HandleFunc("/api/card/more-info", s.handleMoreInfo)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's request router
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ActionRequest is the body of POST /api/card/actions
type ActionRequest struct {
	Action string      `json:"action"`
	Mode   string      `json:"mode,omitempty"`
	Value  interface{} `json:"value,omitempty"`
}

// MoreInfoResponse describes the last more-info request
type MoreInfoResponse struct {
	EntityID    string                 `json:"entity_id"`
	RequestedAt time.Time              `json:"requested_at"`
	State       string                 `json:"state,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

// Supported actions
const (
	ActionDrag           = "drag"
	ActionSetTemperature = "set_temperature"
	ActionIncrement      = "increment"
	ActionDecrement      = "decrement"
	ActionCommit         = "commit"
	ActionMode           = "mode"
	ActionMoreInfo       = "more_info"
	ActionDismissAlert   = "dismiss_alert"
)

// ErrUnknownAction is returned by ParseAction for an unsupported action
var ErrUnknownAction = errors.New("unknown action")

// ParseAction converts a request into a card event
func ParseAction(req ActionRequest) (interaction.Event, error) {
	switch req.Action {
	case ActionDrag:
		return interaction.ValueChanging{Value: req.Value}, nil
	case ActionSetTemperature:
		return interaction.ValueChanged{Value: req.Value}, nil
	case ActionIncrement:
		return interaction.Increment{}, nil
	case ActionDecrement:
		return interaction.Decrement{}, nil
	case ActionCommit:
		return interaction.CommitStep{}, nil
	case ActionMode:
		if req.Mode == "" {
			return nil, fmt.Errorf("action %q requires a mode", req.Action)
		}
		return interaction.SelectMode{Mode: req.Mode}, nil
	case ActionMoreInfo:
		return interaction.MoreInfo{}, nil
	case ActionDismissAlert:
		return interaction.DismissAlert{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
}

// offered reports whether the card currently shows the control behind
// action
func offered(t render.Tree, action string) bool {
	switch action {
	case ActionIncrement, ActionDecrement, ActionCommit:
		return len(t.Buttons) > 0
	case ActionMoreInfo:
		return t.MoreInfo != nil
	}
	return true
}

// RecordMoreInfo stores a more-info request so clients can poll for it.
// It matches card.MoreInfoHandler.
func (s *Server) RecordMoreInfo(entityID string, snap *ha.State) {
	resp := &MoreInfoResponse{
		EntityID:    entityID,
		RequestedAt: time.Now(),
	}
	if snap != nil {
		resp.State = snap.State
		resp.Attributes = snap.Attributes
	}

	s.moreInfoMu.Lock()
	s.moreInfo = resp
	s.moreInfoMu.Unlock()
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.card.View().Tree)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.card.View())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ActionRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	ev, err := ParseAction(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !offered(s.card.View().Tree, req.Action) {
		http.Error(w, fmt.Sprintf("Action %q is disabled for this card", req.Action), http.StatusConflict)
		return
	}

	if err := s.card.Dispatch(ev); err != nil {
		s.logger.Warn("Failed to dispatch action", zap.String("action", req.Action), zap.Error(err))
		http.Error(w, "Card not running", http.StatusServiceUnavailable)
		return
	}

	s.logger.Debug("Action accepted",
		zap.String("action", req.Action),
		zap.String("remote_addr", r.RemoteAddr))
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleMoreInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.moreInfoMu.RLock()
	resp := s.moreInfo
	s.moreInfoMu.RUnlock()

	if resp == nil {
		http.Error(w, "No more-info request yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{"/", "GET", "This sitemap"},
	{"/health", "GET", "Health check, returns {\"status\": \"ok\"}"},
	{"/api/card", "GET", "Rendered card tree"},
	{"/api/card/state", "GET", "Card tree with widget and interaction state"},
	{"/api/card/actions", "POST", "Send a user action, e.g. {\"action\": \"increment\"}"},
	{"/api/card/more-info", "GET", "Last more-info request with entity attributes"},
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	preferHTML := strings.Contains(r.Header.Get("Accept"), "text/html")

	if preferHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
    <title>Thermostat Card API</title>
    <style>
        body { font-family: monospace; margin: 40px; background: #1e1e1e; color: #d4d4d4; }
        h1 { color: #4ec9b0; }
        .endpoint { background: #2d2d2d; padding: 15px; margin: 10px 0; border-left: 3px solid #007acc; }
        .method { color: #4ec9b0; font-weight: bold; }
        .path { color: #ce9178; }
        .description { color: #9cdcfe; margin-top: 5px; }
    </style>
</head>
<body>
    <h1>Thermostat Card API</h1>
`)
		for _, ep := range endpoints {
			fmt.Fprintf(w, `    <div class="endpoint">
        <div><span class="method">%s</span> <span class="path">%s</span></div>
        <div class="description">%s</div>
    </div>
`, ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprint(w, "</body>\n</html>\n")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Thermostat Card API\n")
		fmt.Fprintf(w, "===================\n\n")
		for _, ep := range endpoints {
			fmt.Fprintf(w, "  %-6s %-22s %s\n", ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprintf(w, "\nExample:\n\n")
		fmt.Fprintf(w, "  curl -X POST -d '{\"action\":\"mode\",\"mode\":\"heat\"}' http://localhost%s/api/card/actions\n", s.server.Addr)
	}

	s.logger.Debug("Sitemap request served",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("html_format", preferHTML))
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
