package testutil

import (
	"fmt"
	"time"

	"thermostatui/internal/card"
	"thermostatui/internal/clock"
	"thermostatui/internal/config"
	"thermostatui/internal/ha"

	"go.uber.org/zap"
)

// TestEnv wires a mock Home Assistant server to a real websocket client and
// a climate card, so tests exercise the whole path from a gesture to a
// service call and back.
type TestEnv struct {
	Server *MockHAServer
	Client *ha.Client
	Card   *card.Card
	Clock  *clock.Mock
	Logger *zap.Logger
}

// NewTestEnv starts a mock server and connects a client to it. Seed entities
// on env.Server, then call StartCard.
//
// Example usage:
//
//	env, err := testutil.NewTestEnv("test_token")
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer env.Cleanup()
//
//	env.Server.InitializeClimate("climate.office")
//	err = env.StartCard(cfg, false)
func NewTestEnv(token string) (*TestEnv, error) {
	logger, _ := zap.NewDevelopment()

	server := NewMockHAServer(token)
	server.Start()

	client := ha.NewClient(server.URL(), token, logger)
	client.SetRequestTimeout(2 * time.Second)
	if err := client.Connect(); err != nil {
		server.Stop()
		return nil, fmt.Errorf("failed to connect client: %w", err)
	}

	return &TestEnv{
		Server: server,
		Client: client,
		Clock:  clock.NewMock(time.Date(2024, 11, 1, 7, 0, 0, 0, time.UTC)),
		Logger: logger,
	}, nil
}

// StartCard creates and starts a card for cfg on the mock clock. A resync
// is triggered whenever the client reconnects.
func (e *TestEnv) StartCard(cfg *config.Card, readOnly bool) error {
	if e.Card != nil {
		return fmt.Errorf("card already started")
	}
	c := card.New(e.Client, cfg, e.Logger, readOnly)
	c.SetClock(e.Clock)
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start card: %w", err)
	}
	e.Client.SetReconnectHandler(c.Resync)
	e.Card = c
	return nil
}

// Cleanup stops all components in the correct order.
// Always call this in a defer after creating the TestEnv.
func (e *TestEnv) Cleanup() {
	if e.Card != nil {
		e.Card.Stop()
	}
	if e.Client != nil {
		e.Client.Disconnect()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Logger != nil {
		e.Logger.Sync()
	}
}
