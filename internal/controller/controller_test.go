package controller

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

type recordingTransmitter struct {
	signals []string
	failOn  string
}

func (r *recordingTransmitter) Transmit(signal string, _ []int) error {
	if signal == r.failOn {
		return errors.New("lirc write failed")
	}
	r.signals = append(r.signals, signal)
	return nil
}

func (r *recordingTransmitter) Enabled() bool { return true }

type MockNotifier struct {
	calls []string
}

func (m *MockNotifier) Send(title, message string) error {
	m.calls = append(m.calls, title)
	return nil
}

type fakePublisher struct {
	states    []thermostat.StatePayload
	schedules []schedule.Schedule
}

func (f *fakePublisher) PublishState(p thermostat.StatePayload) error {
	f.states = append(f.states, p)
	return nil
}

func (f *fakePublisher) PublishSchedule(s schedule.Schedule) error {
	f.schedules = append(f.schedules, s)
	return nil
}

func fullCodebook() ir.Codebook {
	cb := ir.Codebook{}
	for _, name := range ir.RequiredSignals() {
		cb[name] = []int{9000, 4500, 560}
	}
	return cb
}

func newExecutor(tx ir.Transmitter) (*Executor, *time.Duration) {
	opts := ir.Options{CarrierKHz: 36, RepeatCount: 1}
	x := NewExecutor(ir.NewEncoder(opts, fullCodebook(), tx))
	var slept time.Duration
	x.sleep = func(d time.Duration) { slept += d }
	return x, &slept
}

var start = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func newLoop(t *testing.T) (*Loop, *recordingTransmitter, *MockNotifier, *fakePublisher, *time.Duration) {
	t.Helper()
	tx := &recordingTransmitter{}
	x, slept := newExecutor(tx)

	settings := model.DefaultSettings()
	settings.Mode = model.ModeHeat
	settings.TargetTempF = 72
	engine := thermostat.NewEngine(thermostat.DefaultConfig(), settings)

	notifier := &MockNotifier{}
	publisher := &fakePublisher{}
	loop := &Loop{
		State:           state.New(engine, schedule.Schedule{}, "UTC", x),
		Executor:        x,
		Notifier:        notifier,
		Publisher:       publisher,
		TickInterval:    time.Second,
		PublishInterval: 10 * time.Second,
	}
	return loop, tx, notifier, publisher, slept
}

func TestExecutorRunsTurnOnSequence(t *testing.T) {
	loop, tx, _, _, slept := newLoop(t)

	loop.State.UpdateTemperature(65, start)
	loop.Step(start)

	assert.Equal(t, []string{
		"power_on",
		"heat_on",
		"temp_up_from_70",
		"temp_up_from_72",
		"temp_up_from_74",
		"light_from_4",
		"light_from_3",
		"light_from_2",
		"light_from_1",
	}, tx.signals)
	assert.Equal(t, 1500*time.Millisecond, *slept)

	device := loop.Executor.Device()
	assert.Equal(t, 76, device.TempF)
	assert.Equal(t, 0, device.LightLevel)

	status := loop.State.Status(start)
	assert.True(t, status.FireplaceOn)
	assert.Equal(t, 76, status.FireplaceTemp)
	assert.Equal(t, string(model.StateHeating), status.State)
}

func TestExecutorContinuesAfterFailure(t *testing.T) {
	tx := &recordingTransmitter{failOn: "heat_on"}
	x, _ := newExecutor(tx)

	failed := x.Run([]model.Action{model.PowerOn, model.HeatOn, model.LightToggle})
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"power_on", "light_from_4"}, tx.signals)

	diag := x.Diagnostics()
	assert.Equal(t, uint64(1), diag.FailedActions)
	assert.Equal(t, uint64(2), diag.SentFrames)
	assert.Equal(t, 3, diag.RuntimeLightLevel)
	assert.Equal(t, "", diag.LastError, "last action succeeded")
}

func TestExecutorEmptyBatch(t *testing.T) {
	tx := &recordingTransmitter{}
	x, slept := newExecutor(tx)
	assert.Equal(t, 0, x.Run(nil))
	assert.Empty(t, tx.signals)
	assert.Zero(t, *slept)
	assert.Equal(t, model.DefaultDeviceState(), x.Device())
}

func TestStepNotifiesSafetyEvents(t *testing.T) {
	loop, tx, notifier, _, _ := newLoop(t)

	loop.State.UpdateTemperature(65, start)
	loop.Step(start)
	require.True(t, loop.State.FireplaceOn())

	later := start.Add(time.Second)
	loop.State.UpdateTemperature(96, later)
	loop.Step(later)

	assert.False(t, loop.State.FireplaceOn())
	assert.Equal(t, "power_off", tx.signals[len(tx.signals)-1])
	assert.Equal(t, []string{"Fireplace emergency shutoff"}, notifier.calls)
}

func TestStepPublishesOnInterval(t *testing.T) {
	loop, _, _, publisher, _ := newLoop(t)
	loop.State.UpdateTemperature(71, start)

	loop.Step(start)
	loop.Step(start.Add(time.Second))
	loop.Step(start.Add(5 * time.Second))
	assert.Len(t, publisher.states, 1)
	assert.Len(t, publisher.schedules, 1)

	loop.Step(start.Add(10 * time.Second))
	require.Len(t, publisher.states, 2)
	assert.Equal(t, 71.0, publisher.states[1].Temp)
	assert.Equal(t, 72.0, publisher.states[1].Target)
	assert.Equal(t, string(model.ModeHeat), publisher.states[1].Mode)
}
