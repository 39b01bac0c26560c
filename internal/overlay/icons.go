package overlay

// Icon is an opaque icon reference understood by the rendering front end
// (Material Design Icons names)
type Icon string

var modeIcons = map[string]Icon{
	"auto":        "mdi:calendar-sync",
	"heat_cool":   "mdi:autorenew",
	"heat":        "mdi:fire",
	"cool":        "mdi:snowflake",
	"off":         "mdi:power",
	"fan_only":    "mdi:fan",
	"dry":         "mdi:water-percent",
	"window_open": "mdi:window-open-variant",
	"eco":         "mdi:leaf",
	"summer":      "mdi:sun-thermometer",
	"temperature": "mdi:thermometer",
	"humidity":    "mdi:water-percent",
}

// Icons used outside the mode row
const (
	IconMoreInfo   Icon = "mdi:dots-vertical"
	IconLowBattery Icon = "mdi:battery-alert"
	IconError      Icon = "mdi:wifi-strength-off-outline"
	IconHeating    Icon = "mdi:heat-wave"
	IconMinus      Icon = "mdi:minus"
	IconPlus       Icon = "mdi:plus"
)

// IconFor returns the icon for a mode tag
func IconFor(mode string) (Icon, bool) {
	icon, ok := modeIcons[mode]
	return icon, ok
}
