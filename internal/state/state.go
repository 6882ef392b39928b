package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/db"
	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

// A wall clock before this year has not been set by NTP yet.
const minSyncedYear = 2024

// Command is an operator button press forwarded to the fireplace.
type Command string

const (
	CmdPowerOn     Command = "on"
	CmdPowerOff    Command = "off"
	CmdHeatOn      Command = "heat_on"
	CmdHeatOff     Command = "heat_off"
	CmdHeatUp      Command = "heat_up"
	CmdHeatDown    Command = "heat_down"
	CmdLightToggle Command = "light_toggle"
	CmdTimerToggle Command = "timer_toggle"
)

// DeviceSource reports the fireplace's last known device-side state.
type DeviceSource interface {
	Device() model.DeviceState
}

// Controller serializes every access to the engine, schedule and timezone.
// Methods that change persisted values call onChange after releasing the lock.
type Controller struct {
	mu       sync.Mutex
	engine   *thermostat.Engine
	schedule schedule.Schedule
	timezone string
	loc      *time.Location
	synced   bool

	device   DeviceSource
	onChange func()
}

func New(engine *thermostat.Engine, sched schedule.Schedule, timezone string, device DeviceSource) *Controller {
	sched.Normalize()
	c := &Controller{
		engine:   engine,
		schedule: sched,
		device:   device,
		onChange: func() {},
	}
	if err := c.setTimezone(timezone); err != nil {
		// Keep the stored name; schedule time stays unavailable until it is fixed.
		log.Warn().Err(err).Str("timezone", timezone).Msg("Stored timezone is invalid, schedule disabled until a valid zone is set")
		c.timezone = timezone
	}
	return c
}

// OnChange registers the callback fired after a persisted value changes.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	fn()
}

func (c *Controller) UpdateTemperature(tempF float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.UpdateSensorData(tempF, c.engine.CurrentHumidity(), now)
}

func (c *Controller) UpdateHumidity(humidity float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.UpdateSensorData(c.engine.CurrentTempF(), humidity, now)
}

func (c *Controller) SetTarget(tempF float64) bool {
	c.mu.Lock()
	ok := c.engine.SetTargetTemp(tempF)
	c.mu.Unlock()
	if ok {
		c.changed()
	}
	return ok
}

func (c *Controller) SetHysteresis(hysteresisF float64) bool {
	c.mu.Lock()
	ok := c.engine.SetHysteresis(hysteresisF)
	c.mu.Unlock()
	if ok {
		c.changed()
	}
	return ok
}

func (c *Controller) SetFireplaceOffset(offsetF int) bool {
	c.mu.Lock()
	ok := c.engine.SetFireplaceOffset(offsetF)
	c.mu.Unlock()
	if ok {
		c.changed()
	}
	return ok
}

func (c *Controller) SetMode(mode model.Mode, now time.Time) (bool, []model.Action) {
	c.mu.Lock()
	ok, actions := c.engine.SetMode(mode, now)
	c.mu.Unlock()
	if ok {
		c.changed()
	}
	return ok, actions
}

// Manual runs an operator button press. Unknown commands return an error.
func (c *Controller) Manual(cmd Command, now time.Time) ([]model.Action, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case CmdPowerOn:
		return c.engine.ManualOn(now), nil
	case CmdPowerOff:
		return c.engine.ManualOff(now), nil
	case CmdHeatOn:
		return c.engine.ManualHeatOn(now), nil
	case CmdHeatOff:
		return c.engine.ManualHeatOff(now), nil
	case CmdHeatUp:
		return c.engine.ManualHeatUp(), nil
	case CmdHeatDown:
		return c.engine.ManualHeatDown(), nil
	case CmdLightToggle:
		return c.engine.ManualLightToggle(), nil
	case CmdTimerToggle:
		return c.engine.ManualTimerToggle(), nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *Controller) EnterHold(d time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.EnterHold(d, now)
}

func (c *Controller) ExitHold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.ExitHold()
}

func (c *Controller) ResetSafety() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.ResetSafety()
}

func (c *Controller) FireplaceOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.FireplaceOn()
}

func (c *Controller) Schedule() schedule.Schedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.schedule
	out.Entries = append([]schedule.Entry(nil), c.schedule.Entries...)
	return out
}

// SetSchedule normalizes and installs sched, returning what was kept.
func (c *Controller) SetSchedule(sched schedule.Schedule) schedule.Schedule {
	sched.Normalize()
	c.mu.Lock()
	c.schedule = sched
	c.mu.Unlock()
	c.changed()
	return c.Schedule()
}

func (c *Controller) Timezone() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timezone
}

// SetTimezone accepts an IANA zone name such as "America/Denver".
func (c *Controller) SetTimezone(name string) error {
	c.mu.Lock()
	err := c.setTimezone(name)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.changed()
	return nil
}

func (c *Controller) setTimezone(name string) error {
	if name == "" {
		return fmt.Errorf("timezone is empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	c.timezone = name
	c.loc = loc
	return nil
}

// Local converts now into the configured timezone. ok is false when the
// zone could not be resolved.
func (c *Controller) Local(now time.Time) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loc == nil {
		return now, false
	}
	return now.In(c.loc), true
}

func (c *Controller) TimeSynced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// Tick applies the schedule program in effect, then runs one engine
// evaluation. Schedule actions come first in the returned batch.
func (c *Controller) Tick(now time.Time) []model.Action {
	c.mu.Lock()

	c.synced = false
	var local time.Time
	if c.loc != nil {
		local = now.In(c.loc)
		c.synced = local.Year() >= minSyncedYear
	}

	var actions []model.Action
	scheduleChanged := false
	if c.synced {
		if program, ok := c.schedule.CurrentAction(local); ok {
			var scheduled []model.Action
			scheduleChanged, scheduled = c.engine.ApplyScheduleAction(program.Mode, program.TargetTempF, now)
			actions = append(actions, scheduled...)
			if scheduleChanged {
				log.Info().
					Str("mode", string(program.Mode)).
					Float64("target", program.TargetTempF).
					Msg("Applied schedule program")
			}
		}
	}
	actions = append(actions, c.engine.Tick(now)...)
	c.mu.Unlock()

	if scheduleChanged {
		c.changed()
	}
	return actions
}

func (c *Controller) Events() []thermostat.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Events()
}

func (c *Controller) Status(now time.Time) thermostat.Status {
	var device model.DeviceState
	if c.device != nil {
		device = c.device.Device()
	} else {
		device = model.DefaultDeviceState()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sc := thermostat.StatusContext{
		Device:          device,
		ScheduleEnabled: c.schedule.Enabled,
		TimeSynced:      c.synced,
		Timezone:        c.timezone,
	}
	if c.synced && c.loc != nil {
		if epoch, ok := c.schedule.NextEventEpoch(now.In(c.loc)); ok {
			sc.NextEventEpoch = &epoch
		}
	}
	return c.engine.Status(now, sc)
}

func (c *Controller) StatePayload(now time.Time) thermostat.StatePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.StatePayload(now)
}

// Snapshot captures everything that survives a restart.
func (c *Controller) Snapshot() db.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	sched := c.schedule
	sched.Entries = append([]schedule.Entry(nil), c.schedule.Entries...)
	return db.Snapshot{
		Settings: c.engine.Settings(),
		Schedule: sched,
		Timezone: c.timezone,
	}
}
