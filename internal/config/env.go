package config

import (
	"errors"
	"os"
	"strconv"
)

// Runtime holds the process settings read from the environment (.env is
// loaded by the command before FromEnv is called)
type Runtime struct {
	HAURL      string
	HAToken    string
	ReadOnly   bool
	CardConfig string
	APIPort    int
	LogLevel   string
}

// ErrMissingConnection is returned when HA_URL or HA_TOKEN is not set
var ErrMissingConnection = errors.New("HA_URL and HA_TOKEN environment variables must be set")

// FromEnv reads HA_URL, HA_TOKEN, READ_ONLY, CARD_CONFIG, API_PORT and
// LOG_LEVEL
func FromEnv() Runtime {
	rt := Runtime{
		HAURL:      os.Getenv("HA_URL"),
		HAToken:    os.Getenv("HA_TOKEN"),
		ReadOnly:   os.Getenv("READ_ONLY") == "true",
		CardConfig: os.Getenv("CARD_CONFIG"),
		APIPort:    8080,
		LogLevel:   os.Getenv("LOG_LEVEL"),
	}
	if rt.CardConfig == "" {
		rt.CardConfig = "card.yaml"
	}
	if port, err := strconv.Atoi(os.Getenv("API_PORT")); err == nil && port > 0 {
		rt.APIPort = port
	}
	return rt
}

// RequireConnection returns ErrMissingConnection unless both HA settings
// are present
func (r Runtime) RequireConnection() error {
	if r.HAURL == "" || r.HAToken == "" {
		return ErrMissingConnection
	}
	return nil
}
