package config

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrMissingEntity is returned when a card configuration has no entity
var ErrMissingEntity = errors.New("card config: entity is required")

// DefaultEcoTemperature is used when eco_temperature is unset or zero
const DefaultEcoTemperature = 18.0

// DefaultStepCommitDelay is how long the stepper buttons wait for further
// presses before sending the new target
const DefaultStepCommitDelay = 1500 * time.Millisecond

// Card is the climate card configuration. It is immutable once handed to
// the card runtime; a reload produces a new value.
type Card struct {
	Entity                string        `yaml:"entity" json:"entity"`
	Name                  string        `yaml:"name,omitempty" json:"name,omitempty"`
	DisableMenu           bool          `yaml:"disable_menu,omitempty" json:"disable_menu,omitempty"`
	DisableButtons        bool          `yaml:"disable_buttons,omitempty" json:"disable_buttons,omitempty"`
	DisableWindow         bool          `yaml:"disable_window,omitempty" json:"disable_window,omitempty"`
	DisableSummer         bool          `yaml:"disable_summer,omitempty" json:"disable_summer,omitempty"`
	DisableHeat           bool          `yaml:"disable_heat,omitempty" json:"disable_heat,omitempty"`
	DisableEco            bool          `yaml:"disable_eco,omitempty" json:"disable_eco,omitempty"`
	DisableOff            bool          `yaml:"disable_off,omitempty" json:"disable_off,omitempty"`
	DisableBatteryWarning bool          `yaml:"disable_battery_warning,omitempty" json:"disable_battery_warning,omitempty"`
	EcoTemperature        float64       `yaml:"eco_temperature,omitempty" json:"eco_temperature,omitempty"`
	SetCurrentAsMain      bool          `yaml:"set_current_as_main,omitempty" json:"set_current_as_main,omitempty"`
	StepCommitDelay       Duration      `yaml:"step_commit_delay" json:"step_commit_delay"`
	Language              string        `yaml:"language,omitempty" json:"language,omitempty"`
	TemperatureUnit       string        `yaml:"temperature_unit,omitempty" json:"temperature_unit,omitempty"`
}

// DefaultCard returns a card with every optional field at its default.
// Loading unmarshals on top of it so absent keys keep these values.
func DefaultCard() Card {
	return Card{
		EcoTemperature:  DefaultEcoTemperature,
		StepCommitDelay: Duration(DefaultStepCommitDelay),
		Language:        "en",
		TemperatureUnit: "°C",
	}
}

// CommitDelay returns step_commit_delay as a time.Duration
func (c *Card) CommitDelay() time.Duration {
	return time.Duration(c.StepCommitDelay)
}

// EcoTarget returns the temperature sent when eco is selected without a
// saved target. Zero counts as unset.
func (c *Card) EcoTarget() float64 {
	if c.EcoTemperature == 0 {
		return DefaultEcoTemperature
	}
	return c.EcoTemperature
}

// Tag returns the parsed language, falling back to English
func (c *Card) Tag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// Validate checks the fields the card cannot run without
func (c *Card) Validate() error {
	if c.Entity == "" {
		return ErrMissingEntity
	}
	if c.StepCommitDelay < 0 {
		return fmt.Errorf("card config: step_commit_delay must not be negative, got %s", c.StepCommitDelay)
	}
	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			return fmt.Errorf("card config: invalid language %q: %w", c.Language, err)
		}
	}
	return nil
}

// Duration is a time.Duration read from YAML as either a duration string
// ("1.5s", "800ms") or a bare integer number of milliseconds, so that
// "step_commit_delay: 0" works
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if value.Tag == "!!int" {
		var ms int64
		if err := value.Decode(&ms); err != nil {
			return err
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in its string form
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
