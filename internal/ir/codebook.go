package ir

import (
	"errors"
	"fmt"
	"sort"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

var (
	ErrUnmappedSignal  = errors.New("no IR code learned for signal")
	ErrUnreachableTemp = errors.New("fireplace temperature bound reached before target")
)

// Codebook maps signal names to raw pulse/space durations in microseconds,
// as captured from the fireplace remote.
type Codebook map[string][]int

const (
	SignalPowerOn  = "power_on"
	SignalPowerOff = "power_off"
	SignalHeatOn   = "heat_on"
	SignalHeatOff  = "heat_off"
)

// The remote sends a different code for each starting level, so every step
// is named after the level it starts from.

func TempUpSignal(fromF int) string {
	return fmt.Sprintf("temp_up_from_%d", fromF)
}

func TempDownSignal(fromF int) string {
	return fmt.Sprintf("temp_down_from_%d", fromF)
}

func LightSignal(from int) string {
	if from < 0 || from > model.MaxLight {
		panic(fmt.Sprintf("light level %d outside 0..%d", from, model.MaxLight))
	}
	if from == 0 {
		return "light_from_off"
	}
	return fmt.Sprintf("light_from_%d", from)
}

func TimerSignal(from int) string {
	switch {
	case from < 0 || from >= model.TimerLevels:
		panic(fmt.Sprintf("timer level %d outside 0..%d", from, model.TimerLevels-1))
	case from == 0:
		return "timer_from_off"
	case from == 1:
		return "timer_from_0_5"
	default:
		return fmt.Sprintf("timer_from_%d", from-1)
	}
}

// RequiredSignals lists every signal the encoder can ask for.
func RequiredSignals() []string {
	names := []string{SignalPowerOn, SignalPowerOff, SignalHeatOn, SignalHeatOff}
	for t := model.MinDeviceTempF; t < model.MaxDeviceTempF; t += model.DeviceTempStepF {
		names = append(names, TempUpSignal(t))
	}
	for t := model.MaxDeviceTempF; t > model.MinDeviceTempF; t -= model.DeviceTempStepF {
		names = append(names, TempDownSignal(t))
	}
	for l := 0; l <= model.MaxLight; l++ {
		names = append(names, LightSignal(l))
	}
	for l := 0; l < model.TimerLevels; l++ {
		names = append(names, TimerSignal(l))
	}
	return names
}

// Missing returns the required signals the codebook has no usable code for.
func (c Codebook) Missing() []string {
	var missing []string
	for _, name := range RequiredSignals() {
		if len(c[name]) == 0 {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func (c Codebook) lookup(name string) ([]int, error) {
	pulses, ok := c[name]
	if !ok || len(pulses) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnmappedSignal, name)
	}
	return pulses, nil
}
