package ha

import (
	"fmt"
	"strings"
	"time"
)

// ApplyClimateService returns the state an entity would have after the given
// climate or better_thermostat service call. It backs the in-memory and
// websocket mocks; the real integration is authoritative in production.
// The input state is not modified. ok is false when the call does not
// change climate state.
func ApplyClimateService(old *State, domain, service string, data map[string]interface{}) (next *State, ok bool) {
	if old == nil {
		return nil, false
	}

	attrs := make(map[string]interface{}, len(old.Attributes)+1)
	for k, v := range old.Attributes {
		attrs[k] = v
	}
	stateValue := old.State

	switch domain + "." + service {
	case DomainClimate + "." + ServiceSetTemperature:
		t, found := data["temperature"]
		if !found {
			return nil, false
		}
		attrs["temperature"] = t

	case DomainClimate + "." + ServiceSetHVACMode:
		mode, _ := data["hvac_mode"].(string)
		if mode == "" {
			return nil, false
		}
		stateValue = mode

	case DomainBetterThermostat + "." + ServiceSetTempTargetTemperature:
		t, found := data["temperature"]
		if !found {
			return nil, false
		}
		if saved, present := attrs["saved_temperature"]; !present || saved == nil {
			attrs["saved_temperature"] = attrs["temperature"]
		}
		attrs["temperature"] = t

	case DomainBetterThermostat + "." + ServiceRestoreSavedTargetTemperature:
		saved, present := attrs["saved_temperature"]
		if !present || saved == nil {
			return nil, false
		}
		attrs["temperature"] = saved
		attrs["saved_temperature"] = nil

	default:
		return nil, false
	}

	now := time.Now()
	next = &State{
		EntityID:    old.EntityID,
		State:       stateValue,
		Attributes:  attrs,
		LastChanged: old.LastChanged,
		LastUpdated: now,
	}
	if stateValue != old.State {
		next.LastChanged = now
	}
	return next, true
}

// EntityDomain returns the domain part of an entity id ("climate" for
// "climate.living_room")
func EntityDomain(entityID string) string {
	domain, _, ok := strings.Cut(entityID, ".")
	if !ok {
		return ""
	}
	return domain
}

// ValidateClimateEntity reports whether entityID names a climate entity
func ValidateClimateEntity(entityID string) error {
	if d := EntityDomain(entityID); d != DomainClimate {
		return fmt.Errorf("entity %q is not a climate entity (domain %q)", entityID, d)
	}
	return nil
}
