package thermostat

import (
	"time"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

// Status is the full snapshot served to the web UI.
type Status struct {
	CurrentTemp            float64 `json:"currentTemp"`
	CurrentHumidity        float64 `json:"currentHumidity"`
	TargetTemp             float64 `json:"targetTemp"`
	Hysteresis             float64 `json:"hysteresis"`
	FireplaceOffset        int     `json:"fireplaceOffset"`
	FireplaceTemp          int     `json:"fireplaceTemp"`
	Mode                   string  `json:"mode"`
	State                  string  `json:"state"`
	FireplaceOn            bool    `json:"fireplaceOn"`
	SensorValid            bool    `json:"sensorValid"`
	LightLevel             int     `json:"lightLevel"`
	TimerState             int     `json:"timerState"`
	TimerString            string  `json:"timerString"`
	HoldActive             bool    `json:"holdActive"`
	HoldRemainingMs        int64   `json:"holdRemainingMs"`
	HoldRemainingMin       int64   `json:"holdRemainingMin"`
	InCooldown             bool    `json:"inCooldown"`
	CooldownRemainingMs    int64   `json:"cooldownRemainingMs"`
	CooldownRemainingMin   int64   `json:"cooldownRemainingMin"`
	RuntimeMs              int64   `json:"runtimeMs"`
	RuntimeMin             int64   `json:"runtimeMin"`
	ScheduleEnabled        bool    `json:"scheduleEnabled"`
	NextScheduleEventEpoch *int64  `json:"nextScheduleEventEpoch"`
	TimeSynced             bool    `json:"timeSynced"`
	Timezone               string  `json:"timezone"`
}

// StatePayload is the compact form broadcast over MQTT.
type StatePayload struct {
	Temp                 float64 `json:"temp"`
	Humidity             float64 `json:"humidity"`
	Target               float64 `json:"target"`
	Mode                 string  `json:"mode"`
	State                string  `json:"state"`
	Fireplace            bool    `json:"fireplace"`
	HoldActive           bool    `json:"holdActive"`
	HoldRemainingMin     int64   `json:"holdRemainingMin"`
	InCooldown           bool    `json:"inCooldown"`
	CooldownRemainingMin int64   `json:"cooldownRemainingMin"`
	RuntimeMin           int64   `json:"runtimeMin"`
}

// StatusContext carries what the engine does not own itself.
type StatusContext struct {
	Device          model.DeviceState
	ScheduleEnabled bool
	NextEventEpoch  *int64
	TimeSynced      bool
	Timezone        string
}

func (e *Engine) Status(now time.Time, sc StatusContext) Status {
	hold := e.HoldRemaining(now)
	cooldown := e.CooldownRemaining(now)
	runtime := e.Runtime(now)

	return Status{
		CurrentTemp:            e.currentTempF,
		CurrentHumidity:        e.currentHumidity,
		TargetTemp:             e.settings.TargetTempF,
		Hysteresis:             e.settings.HysteresisF,
		FireplaceOffset:        e.settings.FireplaceOffsetF,
		FireplaceTemp:          sc.Device.TempF,
		Mode:                   string(e.settings.Mode),
		State:                  string(e.state),
		FireplaceOn:            e.fireplaceOn,
		SensorValid:            e.SensorValid(now),
		LightLevel:             sc.Device.LightLevel,
		TimerState:             sc.Device.TimerLevel,
		TimerString:            model.TimerString(sc.Device.TimerLevel),
		HoldActive:             e.InHold(),
		HoldRemainingMs:        hold.Milliseconds(),
		HoldRemainingMin:       minutes(hold),
		InCooldown:             e.inCooldown,
		CooldownRemainingMs:    cooldown.Milliseconds(),
		CooldownRemainingMin:   minutes(cooldown),
		RuntimeMs:              runtime.Milliseconds(),
		RuntimeMin:             minutes(runtime),
		ScheduleEnabled:        sc.ScheduleEnabled,
		NextScheduleEventEpoch: sc.NextEventEpoch,
		TimeSynced:             sc.TimeSynced,
		Timezone:               sc.Timezone,
	}
}

func (e *Engine) StatePayload(now time.Time) StatePayload {
	return StatePayload{
		Temp:                 e.currentTempF,
		Humidity:             e.currentHumidity,
		Target:               e.settings.TargetTempF,
		Mode:                 string(e.settings.Mode),
		State:                string(e.state),
		Fireplace:            e.fireplaceOn,
		HoldActive:           e.InHold(),
		HoldRemainingMin:     minutes(e.HoldRemaining(now)),
		InCooldown:           e.inCooldown,
		CooldownRemainingMin: minutes(e.CooldownRemaining(now)),
		RuntimeMin:           minutes(e.Runtime(now)),
	}
}

func minutes(d time.Duration) int64 {
	return int64(d / time.Minute)
}
