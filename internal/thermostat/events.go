package thermostat

import (
	"fmt"
	"time"
)

type EventKind string

const (
	EventEmergencyShutoff EventKind = "emergency_shutoff"
	EventRuntimeLimit     EventKind = "runtime_limit"
	EventStaleSensor      EventKind = "stale_sensor"
	EventInferredToggle   EventKind = "inferred_toggle"
)

// Event is a safety-relevant transition worth telling a human about.
type Event struct {
	Kind        EventKind
	At          time.Time
	TempF       float64
	FireplaceOn bool
}

func (ev Event) Title() string {
	switch ev.Kind {
	case EventEmergencyShutoff:
		return "Fireplace emergency shutoff"
	case EventRuntimeLimit:
		return "Fireplace runtime limit"
	case EventStaleSensor:
		return "Fireplace sensor stale"
	case EventInferredToggle:
		return "Fireplace remote use detected"
	default:
		return "Fireplace event"
	}
}

func (ev Event) Message() string {
	switch ev.Kind {
	case EventEmergencyShutoff:
		return fmt.Sprintf("Room reached %.1f°F, fireplace was shut off.", ev.TempF)
	case EventRuntimeLimit:
		return "Fireplace hit its maximum runtime and is cooling down."
	case EventStaleSensor:
		return fmt.Sprintf("No sensor data since %s, fireplace was shut off.", ev.At.Format(time.Kitchen))
	case EventInferredToggle:
		state := "off"
		if ev.FireplaceOn {
			state = "on"
		}
		return fmt.Sprintf("Temperature trend suggests the fireplace was turned %s by hand at %.1f°F. Automatic control is on hold.", state, ev.TempF)
	default:
		return string(ev.Kind)
	}
}

func (e *Engine) record(kind EventKind, now time.Time) {
	at := now
	if kind == EventStaleSensor && !e.sensorUpdatedAt.IsZero() {
		at = e.sensorUpdatedAt
	}
	e.events = append(e.events, Event{
		Kind:        kind,
		At:          at,
		TempF:       e.currentTempF,
		FireplaceOn: e.fireplaceOn,
	})
}
