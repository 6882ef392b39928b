package model

import "fmt"

type ActionKind int

const (
	ActionPowerOn ActionKind = iota
	ActionPowerOff
	ActionHeatOn
	ActionHeatOff
	ActionTempUp
	ActionTempDown
	ActionSetTemp
	ActionLightToggle
	ActionTimerToggle
	ActionDelay
)

var actionNames = map[ActionKind]string{
	ActionPowerOn:     "power_on",
	ActionPowerOff:    "power_off",
	ActionHeatOn:      "heat_on",
	ActionHeatOff:     "heat_off",
	ActionTempUp:      "temp_up",
	ActionTempDown:    "temp_down",
	ActionSetTemp:     "set_temp",
	ActionLightToggle: "light_toggle",
	ActionTimerToggle: "timer_toggle",
	ActionDelay:       "delay",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is one step of a batch handed from the engine to the IR encoder.
// Value carries the temperature for SetTemp and milliseconds for Delay.
type Action struct {
	Kind  ActionKind
	Value int
}

var (
	PowerOn     = Action{Kind: ActionPowerOn}
	PowerOff    = Action{Kind: ActionPowerOff}
	HeatOn      = Action{Kind: ActionHeatOn}
	HeatOff     = Action{Kind: ActionHeatOff}
	TempUp      = Action{Kind: ActionTempUp}
	TempDown    = Action{Kind: ActionTempDown}
	LightToggle = Action{Kind: ActionLightToggle}
	TimerToggle = Action{Kind: ActionTimerToggle}
)

func SetTemp(tempF int) Action {
	return Action{Kind: ActionSetTemp, Value: tempF}
}

func Delay(ms int) Action {
	return Action{Kind: ActionDelay, Value: ms}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSetTemp:
		return fmt.Sprintf("set_temp(%d)", a.Value)
	case ActionDelay:
		return fmt.Sprintf("delay(%dms)", a.Value)
	default:
		return a.Kind.String()
	}
}
