package thermostat

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

// Delays inserted between the presses of the power-on sequence, in ms.
const (
	powerOnSettleMs = 500
	pressGapMs      = 200
)

type Config struct {
	MinCycle             time.Duration
	SensorStaleTimeout   time.Duration
	TrendSampleInterval  time.Duration
	TrendRisingF         float64
	TrendFallingF        float64
	TrendSamplesRequired int
	MaxRuntime           time.Duration
	CooldownDuration     time.Duration
	HoldDuration         time.Duration
	AbsoluteMaxTempF     float64
}

func DefaultConfig() Config {
	return Config{
		MinCycle:             5 * time.Minute,
		SensorStaleTimeout:   5 * time.Minute,
		TrendSampleInterval:  30 * time.Second,
		TrendRisingF:         0.3,
		TrendFallingF:        -0.2,
		TrendSamplesRequired: 3,
		MaxRuntime:           4 * time.Hour,
		CooldownDuration:     30 * time.Minute,
		HoldDuration:         30 * time.Minute,
		AbsoluteMaxTempF:     95,
	}
}

type hold struct {
	start    time.Time
	duration time.Duration
	reason   model.HoldReason
}

// Engine is the thermostat state machine. It is not safe for concurrent
// use; callers serialize access.
type Engine struct {
	cfg      Config
	settings model.Settings
	state    model.State

	currentTempF    float64
	currentHumidity float64
	sensorUpdatedAt time.Time

	fireplaceOn    bool
	heatingStart   time.Time
	requestedTempF int

	hold          *hold
	inCooldown    bool
	cooldownStart time.Time

	guard  cycleGuard
	trend  trendDetector
	events []Event
}

func NewEngine(cfg Config, settings model.Settings) *Engine {
	return &Engine{
		cfg:            cfg,
		settings:       settings.Sanitize(),
		state:          model.StateIdle,
		requestedTempF: model.DefaultDeviceTempF,
		guard:          cycleGuard{minCycle: cfg.MinCycle},
		trend:          newTrendDetector(cfg),
	}
}

func (e *Engine) Settings() model.Settings { return e.settings }
func (e *Engine) State() model.State       { return e.state }
func (e *Engine) FireplaceOn() bool        { return e.fireplaceOn }
func (e *Engine) CurrentTempF() float64    { return e.currentTempF }
func (e *Engine) CurrentHumidity() float64 { return e.currentHumidity }
func (e *Engine) RequestedTempF() int      { return e.requestedTempF }
func (e *Engine) InHold() bool             { return e.hold != nil }
func (e *Engine) InCooldown() bool         { return e.inCooldown }

// HoldReason is empty when no hold is active.
func (e *Engine) HoldReason() model.HoldReason {
	if e.hold == nil {
		return ""
	}
	return e.hold.reason
}

func (e *Engine) SensorUpdatedAt() time.Time { return e.sensorUpdatedAt }

func (e *Engine) UpdateSensorData(tempF, humidity float64, now time.Time) {
	e.currentTempF = tempF
	e.currentHumidity = humidity
	e.sensorUpdatedAt = now
}

func (e *Engine) SensorValid(now time.Time) bool {
	return !e.sensorUpdatedAt.IsZero() && now.Sub(e.sensorUpdatedAt) < e.cfg.SensorStaleTimeout
}

func (e *Engine) SetTargetTemp(tempF float64) bool {
	if math.IsNaN(tempF) || math.IsInf(tempF, 0) {
		return false
	}
	clamped := model.ClampFloat(tempF, model.MinTargetTempF, model.MaxTargetTempF)
	if nearlyEqual(e.settings.TargetTempF, clamped) {
		return false
	}
	e.settings.TargetTempF = clamped
	return true
}

func (e *Engine) SetHysteresis(hysteresisF float64) bool {
	if math.IsNaN(hysteresisF) || math.IsInf(hysteresisF, 0) {
		return false
	}
	clamped := model.ClampFloat(hysteresisF, model.MinHysteresisF, model.MaxHysteresisF)
	if nearlyEqual(e.settings.HysteresisF, clamped) {
		return false
	}
	e.settings.HysteresisF = clamped
	return true
}

func (e *Engine) SetFireplaceOffset(offsetF int) bool {
	if !model.ValidFireplaceOffset(offsetF) || e.settings.FireplaceOffsetF == offsetF {
		return false
	}
	e.settings.FireplaceOffsetF = offsetF
	return true
}

// SetMode switches between HEAT and OFF. Switching to OFF clears any hold
// and powers the fireplace off at once, ignoring the minimum cycle.
func (e *Engine) SetMode(mode model.Mode, now time.Time) (bool, []model.Action) {
	if !mode.Valid() || e.settings.Mode == mode {
		return false, nil
	}
	e.settings.Mode = mode

	var actions []model.Action
	if mode == model.ModeOff {
		e.hold = nil
		if e.fireplaceOn {
			actions = e.turnOff(now, actions)
			e.state = model.StateIdle
		}
	}
	log.Info().Str("mode", string(mode)).Msg("Thermostat mode changed")
	return true, actions
}

// ApplyScheduleAction is ignored while a hold is active.
func (e *Engine) ApplyScheduleAction(mode model.Mode, targetF float64, now time.Time) (bool, []model.Action) {
	if e.InHold() {
		return false, nil
	}
	changed, actions := e.SetMode(mode, now)
	if e.SetTargetTemp(targetF) {
		changed = true
	}
	return changed, actions
}

func (e *Engine) ManualOn(now time.Time) []model.Action {
	e.fireplaceOn = true
	e.heatingStart = now
	e.guard.mark(now)
	e.enterHold(e.cfg.HoldDuration, model.HoldManual, now)
	return []model.Action{model.PowerOn}
}

func (e *Engine) ManualOff(now time.Time) []model.Action {
	e.fireplaceOn = false
	e.heatingStart = time.Time{}
	e.guard.mark(now)
	e.enterHold(e.cfg.HoldDuration, model.HoldManual, now)
	return []model.Action{model.PowerOff}
}

func (e *Engine) ManualHeatOn(now time.Time) []model.Action {
	e.enterHold(e.cfg.HoldDuration, model.HoldManual, now)
	return []model.Action{model.HeatOn}
}

func (e *Engine) ManualHeatOff(now time.Time) []model.Action {
	e.enterHold(e.cfg.HoldDuration, model.HoldManual, now)
	return []model.Action{model.HeatOff}
}

func (e *Engine) ManualHeatUp() []model.Action {
	if e.requestedTempF >= model.MaxDeviceTempF {
		return nil
	}
	e.requestedTempF += model.DeviceTempStepF
	return []model.Action{model.TempUp}
}

func (e *Engine) ManualHeatDown() []model.Action {
	if e.requestedTempF <= model.MinDeviceTempF {
		return nil
	}
	e.requestedTempF -= model.DeviceTempStepF
	return []model.Action{model.TempDown}
}

func (e *Engine) ManualLightToggle() []model.Action {
	return []model.Action{model.LightToggle}
}

func (e *Engine) ManualTimerToggle() []model.Action {
	return []model.Action{model.TimerToggle}
}

// EnterHold suspends automatic control. A zero duration uses the configured default.
func (e *Engine) EnterHold(duration time.Duration, now time.Time) {
	if duration <= 0 {
		duration = e.cfg.HoldDuration
	}
	e.enterHold(duration, model.HoldUserRequested, now)
}

func (e *Engine) ExitHold() {
	e.hold = nil
}

func (e *Engine) ResetSafety() {
	e.inCooldown = false
	e.cooldownStart = time.Time{}
	e.heatingStart = time.Time{}
}

func (e *Engine) HoldRemaining(now time.Time) time.Duration {
	if e.hold == nil {
		return 0
	}
	return remaining(e.hold.duration, now.Sub(e.hold.start))
}

func (e *Engine) CooldownRemaining(now time.Time) time.Duration {
	if !e.inCooldown || e.cooldownStart.IsZero() {
		return 0
	}
	return remaining(e.cfg.CooldownDuration, now.Sub(e.cooldownStart))
}

func (e *Engine) Runtime(now time.Time) time.Duration {
	if !e.fireplaceOn || e.heatingStart.IsZero() {
		return 0
	}
	if d := now.Sub(e.heatingStart); d > 0 {
		return d
	}
	return 0
}

// Tick runs one evaluation and returns the actions to send, in order.
func (e *Engine) Tick(now time.Time) []model.Action {
	var actions []model.Action

	e.expireHold(now)
	e.completeCooldown(now)
	actions = e.checkRuntimeLimit(now, actions)
	e.detectExternalRemote(now)
	actions = e.evaluate(now, actions)

	return actions
}

// Events returns and clears the safety events recorded since the last call.
func (e *Engine) Events() []Event {
	out := e.events
	e.events = nil
	return out
}

func (e *Engine) enterHold(duration time.Duration, reason model.HoldReason, now time.Time) {
	e.hold = &hold{start: now, duration: duration, reason: reason}
}

func (e *Engine) expireHold(now time.Time) {
	if e.hold != nil && now.Sub(e.hold.start) >= e.hold.duration {
		log.Info().Str("reason", string(e.hold.reason)).Msg("Hold expired")
		e.hold = nil
	}
}

func (e *Engine) completeCooldown(now time.Time) {
	if e.CooldownRemaining(now) == 0 {
		if e.inCooldown {
			log.Info().Msg("Cooldown complete")
		}
		e.inCooldown = false
		e.cooldownStart = time.Time{}
	}
}

func (e *Engine) checkRuntimeLimit(now time.Time, actions []model.Action) []model.Action {
	if !e.fireplaceOn || e.heatingStart.IsZero() || e.Runtime(now) < e.cfg.MaxRuntime {
		return actions
	}

	log.Warn().Dur("runtime", e.Runtime(now)).Msg("Maximum runtime reached, entering cooldown")
	e.record(EventRuntimeLimit, now)

	e.fireplaceOn = false
	e.inCooldown = true
	e.cooldownStart = now
	e.heatingStart = time.Time{}
	e.guard.mark(now)
	e.state = model.StateCooldown
	return append(actions, model.PowerOff)
}

func (e *Engine) detectExternalRemote(now time.Time) {
	if !e.SensorValid(now) {
		return
	}
	dir, fired := e.trend.observe(e.currentTempF, now)
	if !fired {
		return
	}

	switch {
	case dir == trendRising && !e.fireplaceOn:
		e.fireplaceOn = true
		e.heatingStart = now
	case dir == trendFalling && e.fireplaceOn:
		e.fireplaceOn = false
		e.heatingStart = time.Time{}
	default:
		return
	}

	log.Info().
		Str("trend", dir.String()).
		Bool("fireplace_on", e.fireplaceOn).
		Float64("temp_f", e.currentTempF).
		Msg("Inferred fireplace toggled by remote")
	e.record(EventInferredToggle, now)
	e.enterHold(e.cfg.HoldDuration, model.HoldExternalRemote, now)
	e.trend.reset()
}

func (e *Engine) evaluate(now time.Time, actions []model.Action) []model.Action {
	if e.fireplaceOn && e.currentTempF >= e.cfg.AbsoluteMaxTempF {
		log.Error().Float64("temp_f", e.currentTempF).Msg("Temperature ceiling reached, emergency shutoff")
		e.record(EventEmergencyShutoff, now)
		actions = e.turnOff(now, actions)
		e.state = model.StateIdle
		return actions
	}

	if e.settings.Mode == model.ModeOff {
		actions = e.turnOff(now, actions)
		e.state = model.StateIdle
		return actions
	}

	if e.inCooldown {
		e.state = model.StateCooldown
		return actions
	}

	if e.hold != nil {
		e.state = model.StateHold
		return actions
	}

	if !e.SensorValid(now) {
		if e.fireplaceOn {
			log.Warn().Time("last_update", e.sensorUpdatedAt).Msg("Sensor data stale, turning fireplace off")
			e.record(EventStaleSensor, now)
			actions = e.turnOff(now, actions)
		}
		e.state = model.StateIdle
		return actions
	}

	lower := e.settings.TargetTempF - e.settings.HysteresisF
	upper := e.settings.TargetTempF + e.settings.HysteresisF

	log.Debug().
		Float64("temp_f", e.currentTempF).
		Float64("lower", lower).
		Float64("upper", upper).
		Bool("fireplace_on", e.fireplaceOn).
		Msg("Evaluating hysteresis band")

	switch {
	case !e.fireplaceOn && e.currentTempF < lower:
		if e.guard.canChange(now) {
			actions = e.turnOn(now, actions)
		} else {
			e.state = model.StateSatisfied
		}
	case !e.fireplaceOn:
		e.state = model.StateSatisfied
	case e.currentTempF > upper:
		if e.guard.canChange(now) {
			actions = e.turnOff(now, actions)
		} else {
			e.state = model.StateHeating
		}
	default:
		e.state = model.StateHeating
	}
	return actions
}

// turnOn powers the fireplace up, selects the flame temperature and walks
// the light from its power-on level back to off.
func (e *Engine) turnOn(now time.Time, actions []model.Action) []model.Action {
	if e.fireplaceOn {
		return actions
	}

	desired := model.NormalizeDeviceTemp(int(e.settings.TargetTempF) + e.settings.FireplaceOffsetF)
	e.requestedTempF = desired

	actions = append(actions,
		model.PowerOn,
		model.Delay(powerOnSettleMs),
		model.HeatOn,
		model.Delay(pressGapMs),
		model.SetTemp(desired),
		model.Delay(pressGapMs),
	)
	for i := 0; i < model.MaxLight; i++ {
		actions = append(actions, model.LightToggle)
		if i < model.MaxLight-1 {
			actions = append(actions, model.Delay(pressGapMs))
		}
	}

	e.fireplaceOn = true
	e.heatingStart = now
	e.guard.mark(now)
	e.state = model.StateHeating

	log.Info().
		Float64("temp_f", e.currentTempF).
		Float64("target_f", e.settings.TargetTempF).
		Int("fireplace_temp_f", desired).
		Msg("Fireplace ON")
	return actions
}

func (e *Engine) turnOff(now time.Time, actions []model.Action) []model.Action {
	if !e.fireplaceOn {
		return actions
	}

	e.fireplaceOn = false
	e.heatingStart = time.Time{}
	e.guard.mark(now)
	e.state = model.StateSatisfied

	log.Info().
		Float64("temp_f", e.currentTempF).
		Float64("target_f", e.settings.TargetTempF).
		Msg("Fireplace OFF")
	return append(actions, model.PowerOff)
}

func remaining(total, elapsed time.Duration) time.Duration {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= total {
		return 0
	}
	return total - elapsed
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}
