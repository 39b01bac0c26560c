package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"thermostatui/internal/ha"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Loader manages loading and reloading the card configuration file
type Loader struct {
	path     string
	logger   *zap.Logger
	mu       sync.RWMutex
	card     *Card
	modTime  time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewLoader creates a new configuration loader for the YAML file at path
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:     path,
		logger:   logger.Named("config"),
		stopChan: make(chan struct{}),
	}
}

// Parse decodes a card configuration from YAML on top of DefaultCard and
// validates it
func Parse(data []byte) (*Card, error) {
	card := DefaultCard()
	if err := yaml.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("failed to parse card config: %w", err)
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return &card, nil
}

// Load reads and parses the card configuration file. On failure the
// previously loaded card is kept.
func (l *Loader) Load() (*Card, error) {
	l.logger.Debug("Loading card config", zap.String("path", l.path))

	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat card config: %w", err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card config: %w", err)
	}

	card, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := ha.ValidateClimateEntity(card.Entity); err != nil {
		l.logger.Warn("Configured entity is not a climate entity", zap.Error(err))
	}

	l.mu.Lock()
	l.card = card
	l.modTime = info.ModTime()
	l.mu.Unlock()

	l.logger.Info("Card config loaded",
		zap.String("entity", card.Entity),
		zap.Duration("step_commit_delay", card.CommitDelay()),
		zap.String("language", card.Language))
	return card, nil
}

// Card returns the last successfully loaded configuration
func (l *Loader) Card() *Card {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.card
}

// changed reports whether the file on disk is newer than the loaded copy
func (l *Loader) changed() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !info.ModTime().Equal(l.modTime)
}

// StartAutoReload polls the file every interval and calls onChange with
// each successfully reloaded configuration
func (l *Loader) StartAutoReload(interval time.Duration, onChange func(*Card)) {
	l.logger.Info("Starting config auto-reload", zap.Duration("interval", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !l.changed() {
					continue
				}
				l.logger.Info("Card config changed on disk, reloading")
				card, err := l.Load()
				if err != nil {
					l.logger.Error("Failed to reload card config", zap.Error(err))
					continue
				}
				onChange(card)

			case <-l.stopChan:
				l.logger.Info("Stopping config auto-reload")
				return
			}
		}
	}()
}

// Stop stops the auto-reload goroutine
func (l *Loader) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}

// StubCard picks an entity for a fresh configuration: the first climate
// entity exposing call_for_heat (a Better Thermostat), else the first
// climate entity at all
func StubCard(states []*ha.State) (*Card, error) {
	var fallback string
	for _, s := range states {
		if s == nil || ha.EntityDomain(s.EntityID) != ha.DomainClimate {
			continue
		}
		if v, ok := s.Attr("call_for_heat"); ok && v != nil {
			card := DefaultCard()
			card.Entity = s.EntityID
			return &card, nil
		}
		if fallback == "" {
			fallback = s.EntityID
		}
	}
	if fallback == "" {
		return nil, fmt.Errorf("no climate entity found: %w", ErrMissingEntity)
	}
	card := DefaultCard()
	card.Entity = fallback
	return &card, nil
}

// Marshal renders the card as YAML
func (c *Card) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card config: %w", err)
	}
	return data, nil
}
