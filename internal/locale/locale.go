// Package locale supplies translated labels and locale-aware number
// formatting to the render step.
package locale

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// Message keys the card asks for
const (
	KeyUnavailable  = "state.default.unavailable"
	KeyShowMoreInfo = "ui.panel.lovelace.cards.show_more_info"
	KeyLowBattery   = "card.low_battery"
	KeyError        = "card.error"
	KeyHeating      = "card.heating"
	KeyIdle         = "card.idle"
	KeyLoading      = "card.loading"
)

// Formatter is the localization collaborator used by render
type Formatter interface {
	// FormatNumber formats v with exactly one fraction digit
	FormatNumber(v float64) string
	// Localize returns the translation for key, or "" when there is none
	Localize(key string) string
}

// ModeKey is the Home Assistant translation key for a climate mode
func ModeKey(mode string) string {
	return "component.climate.state._." + mode
}

// ExtraStateKey is the card's own translation key for modes and states
// Home Assistant does not translate
func ExtraStateKey(state string) string {
	return "extra_states." + state
}

// ModeLabel resolves a mode's label through ModeKey and then ExtraStateKey,
// falling back to the raw tag
func ModeLabel(f Formatter, mode string) string {
	if s := f.Localize(ModeKey(mode)); s != "" {
		return s
	}
	if s := f.Localize(ExtraStateKey(mode)); s != "" {
		return s
	}
	return mode
}

// entries holds each key with its English and German text
var entries = []struct {
	key, en, de string
}{
	{KeyUnavailable, "Unavailable", "Nicht verfügbar"},
	{KeyShowMoreInfo, "Show more info", "Weitere Informationen anzeigen"},
	{KeyLowBattery, "Low battery", "Batterie schwach"},
	{KeyError, "Error", "Fehler"},
	{KeyHeating, "Heating", "Heizt"},
	{KeyIdle, "Idle", "Untätig"},
	{KeyLoading, "Loading", "Lädt"},
	{ModeKey("off"), "Off", "Aus"},
	{ModeKey("heat"), "Heat", "Heizen"},
	{ModeKey("cool"), "Cool", "Kühlen"},
	{ModeKey("heat_cool"), "Heat/Cool", "Heizen/Kühlen"},
	{ModeKey("auto"), "Auto", "Automatisch"},
	{ModeKey("dry"), "Dry", "Entfeuchten"},
	{ModeKey("fan_only"), "Fan only", "Nur Lüfter"},
	{ExtraStateKey("eco"), "Eco", "Eco"},
	{ExtraStateKey("summer"), "Summer", "Sommer"},
	{ExtraStateKey("window_open"), "Window open", "Fenster offen"},
	{ExtraStateKey("temperature"), "Temperature", "Temperatur"},
	{ExtraStateKey("humidity"), "Humidity", "Luftfeuchtigkeit"},
}

var (
	cat       = buildCatalog()
	supported = cat.Languages()
	matcher   = language.NewMatcher(supported)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, e := range entries {
		set(b, language.English, e.key, e.en)
		set(b, language.German, e.key, e.de)
	}
	return b
}

func set(b *catalog.Builder, tag language.Tag, key, msg string) {
	if err := b.SetString(tag, key, msg); err != nil {
		panic(fmt.Sprintf("locale: bad catalog entry %s/%s: %v", tag, key, err))
	}
}

// Localizer implements Formatter with the built-in catalog
type Localizer struct {
	tag      language.Tag
	messages *message.Printer
	numbers  *message.Printer
}

// New creates a Localizer for tag. Languages without a catalog fall back
// to English labels but keep their own number format.
func New(tag language.Tag) *Localizer {
	msgTag := language.English
	if _, idx, conf := matcher.Match(tag); conf != language.No {
		msgTag = supported[idx]
	}
	return &Localizer{
		tag:      tag,
		messages: message.NewPrinter(msgTag, message.Catalog(cat)),
		numbers:  message.NewPrinter(tag),
	}
}

// Tag returns the language the Localizer was created for
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// FormatNumber formats v with one fraction digit using the locale's
// separators
func (l *Localizer) FormatNumber(v float64) string {
	return l.numbers.Sprint(number.Decimal(v, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
}

// Localize returns the translation for key or "" when the catalog has none
func (l *Localizer) Localize(key string) string {
	s := l.messages.Sprintf(key)
	if s == key {
		return ""
	}
	return s
}
