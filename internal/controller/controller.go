package controller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/datadog"
	"github.com/thatsimonsguy/fireplace-controller/internal/persist"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

// Notifier interface for sending notifications
type Notifier interface {
	Send(title, message string) error
}

// Publisher pushes the periodic state broadcasts.
type Publisher interface {
	PublishState(payload thermostat.StatePayload) error
	PublishSchedule(sched schedule.Schedule) error
}

type Loop struct {
	State     *state.Controller
	Executor  *Executor
	Saver     *persist.Saver
	Notifier  Notifier
	Publisher Publisher

	TickInterval    time.Duration
	PublishInterval time.Duration

	now         func() time.Time
	lastPublish time.Time
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l.now == nil {
		l.now = time.Now
	}

	log.Info().
		Dur("tick", l.TickInterval).
		Dur("publish", l.PublishInterval).
		Msg("Starting thermostat control loop")

	ticker := time.NewTicker(l.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Thermostat control loop stopped")
			return
		case <-ticker.C:
			l.Step(l.now())
		}
	}
}

// Step runs one pass: schedule and engine tick, action execution, safety
// notifications, persistence and the periodic broadcasts.
func (l *Loop) Step(now time.Time) {
	actions := l.State.Tick(now)
	l.Executor.Run(actions)

	for _, ev := range l.State.Events() {
		log.Warn().Str("event", string(ev.Kind)).Float64("temp_f", ev.TempF).Msg(ev.Title())
		datadog.Count("safety.events", 1, "kind:"+string(ev.Kind))
		if l.Notifier == nil {
			continue
		}
		if err := l.Notifier.Send(ev.Title(), ev.Message()); err != nil {
			log.Error().Err(err).Str("event", string(ev.Kind)).Msg("Failed to send safety notification")
		}
	}

	if l.Saver != nil {
		l.Saver.FlushIfDue()
	}

	if l.lastPublish.IsZero() || now.Sub(l.lastPublish) >= l.PublishInterval {
		l.lastPublish = now
		l.publish(now)
	}
}

func (l *Loop) publish(now time.Time) {
	payload := l.State.StatePayload(now)

	if l.Publisher != nil {
		if err := l.Publisher.PublishState(payload); err != nil {
			log.Warn().Err(err).Msg("Controller state publish failed")
		}
		if err := l.Publisher.PublishSchedule(l.State.Schedule()); err != nil {
			log.Warn().Err(err).Msg("Schedule state publish failed")
		}
	}

	datadog.Gauge("room.temp_f", payload.Temp)
	datadog.Gauge("room.humidity", payload.Humidity)
	datadog.Gauge("thermostat.target_f", payload.Target)
	datadog.BoolGauge("fireplace.on", payload.Fireplace)
	datadog.BoolGauge("thermostat.hold", payload.HoldActive)
	datadog.BoolGauge("thermostat.cooldown", payload.InCooldown)
	datadog.Gauge("fireplace.runtime_min", float64(payload.RuntimeMin))
	datadog.Gauge("thermostat.state", 1, "state:"+payload.State)

	diag := l.Executor.Diagnostics()
	datadog.Gauge("ir.sent_frames", float64(diag.SentFrames))
	datadog.Gauge("ir.failed_actions", float64(diag.FailedActions))
}
