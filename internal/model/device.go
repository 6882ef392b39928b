package model

import "fmt"

const (
	MinDeviceTempF     = 60
	MaxDeviceTempF     = 80
	DefaultDeviceTempF = 70
	DeviceTempStepF    = 2

	LightLevels = 5
	MaxLight    = LightLevels - 1
	TimerLevels = 11
)

// DeviceState is what we believe the fireplace is currently set to. The
// fireplace gives no feedback, so it only changes when a signal is sent.
type DeviceState struct {
	TempF      int `json:"tempF"`
	LightLevel int `json:"lightLevel"`
	TimerLevel int `json:"timerLevel"`
}

func DefaultDeviceState() DeviceState {
	return DeviceState{TempF: DefaultDeviceTempF}
}

// NormalizeDeviceTemp clamps to the fireplace range and rounds odd values up.
func NormalizeDeviceTemp(tempF int) int {
	n := ClampInt(tempF, MinDeviceTempF, MaxDeviceTempF)
	if n%2 != 0 {
		n++
	}
	return n
}

// NextLight is the level after one press: off jumps to the brightest level,
// every other level dims by one.
func NextLight(level int) int {
	if level < 0 || level > MaxLight {
		panic(fmt.Sprintf("light level %d outside 0..%d", level, MaxLight))
	}
	if level == 0 {
		return MaxLight
	}
	return level - 1
}

func NextTimer(level int) int {
	if level < 0 || level >= TimerLevels {
		panic(fmt.Sprintf("timer level %d outside 0..%d", level, TimerLevels-1))
	}
	return (level + 1) % TimerLevels
}

// TimerString renders a timer level: 0 is off, 1 is thirty minutes, n is n-1 hours.
func TimerString(level int) string {
	switch level {
	case 0:
		return "OFF"
	case 1:
		return "0.5hr"
	default:
		return fmt.Sprintf("%dhr", level-1)
	}
}
