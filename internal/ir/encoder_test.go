package ir

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

type fakeTransmitter struct {
	sent    []string
	failOn  map[string]error
	enabled bool
}

func (f *fakeTransmitter) Transmit(signal string, _ []int) error {
	if err := f.failOn[signal]; err != nil {
		return err
	}
	f.sent = append(f.sent, signal)
	return nil
}

func (f *fakeTransmitter) Enabled() bool { return f.enabled }

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func fullCodebook() Codebook {
	cb := Codebook{}
	for _, name := range RequiredSignals() {
		cb[name] = []int{9000, 4500, 560, 560}
	}
	return cb
}

func newTestEncoder(cb Codebook, opts Options) (*Encoder, *fakeTransmitter, *fakeClock) {
	tx := &fakeTransmitter{enabled: true, failOn: map[string]error{}}
	clock := &fakeClock{now: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)}
	e := NewEncoder(opts, cb, tx)
	e.now = clock.Now
	e.sleep = clock.Sleep
	return e, tx, clock
}

func singleShot() Options {
	return Options{CarrierKHz: 36, RepeatCount: 1}
}

func TestPowerOnWakesAtFullLight(t *testing.T) {
	e, tx, _ := newTestEncoder(fullCodebook(), singleShot())

	require.NoError(t, e.Execute(model.PowerOn))
	assert.Equal(t, []string{SignalPowerOn}, tx.sent)
	assert.Equal(t, model.MaxLight, e.Device().LightLevel)
}

func TestLightToggleUsesPerLevelSignals(t *testing.T) {
	e, tx, _ := newTestEncoder(fullCodebook(), singleShot())

	var levels []int
	for i := 0; i < 6; i++ {
		require.NoError(t, e.Execute(model.LightToggle))
		levels = append(levels, e.Device().LightLevel)
	}

	assert.Equal(t, []int{4, 3, 2, 1, 0, 4}, levels)
	assert.Equal(t, []string{
		"light_from_off", "light_from_4", "light_from_3", "light_from_2", "light_from_1", "light_from_off",
	}, tx.sent)
}

func TestTimerToggleWraps(t *testing.T) {
	e, tx, _ := newTestEncoder(fullCodebook(), singleShot())

	for i := 0; i < model.TimerLevels; i++ {
		require.NoError(t, e.Execute(model.TimerToggle))
	}
	assert.Equal(t, 0, e.Device().TimerLevel)
	assert.Equal(t, "timer_from_off", tx.sent[0])
	assert.Equal(t, "timer_from_0_5", tx.sent[1])
	assert.Equal(t, "timer_from_9", tx.sent[10])
}

func TestTempStepsStopSilentlyAtBounds(t *testing.T) {
	e, tx, _ := newTestEncoder(fullCodebook(), singleShot())

	for i := 0; i < 7; i++ {
		require.NoError(t, e.Execute(model.TempUp))
	}
	assert.Equal(t, 80, e.Device().TempF)
	assert.Len(t, tx.sent, 5)
	assert.Equal(t, "temp_up_from_78", tx.sent[4])

	tx.sent = nil
	require.NoError(t, e.Execute(model.TempDown))
	assert.Equal(t, []string{"temp_down_from_80"}, tx.sent)
}

func TestSetTempConverges(t *testing.T) {
	e, tx, _ := newTestEncoder(fullCodebook(), singleShot())

	require.NoError(t, e.Execute(model.SetTemp(75)))
	assert.Equal(t, 76, e.Device().TempF)
	assert.Equal(t, []string{"temp_up_from_70", "temp_up_from_72", "temp_up_from_74"}, tx.sent)

	tx.sent = nil
	require.NoError(t, e.Execute(model.SetTemp(40)))
	assert.Equal(t, 60, e.Device().TempF)
	assert.Len(t, tx.sent, 8)

	tx.sent = nil
	require.NoError(t, e.Execute(model.SetTemp(60)))
	assert.Empty(t, tx.sent)
}

func TestUnmappedSignalIsCountedAndBatchContinues(t *testing.T) {
	cb := fullCodebook()
	delete(cb, "light_from_off")
	e, tx, _ := newTestEncoder(cb, singleShot())

	err := e.Execute(model.LightToggle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmappedSignal))
	assert.Equal(t, 0, e.Device().LightLevel)

	diag := e.Diagnostics()
	assert.Equal(t, uint64(1), diag.FailedActions)
	assert.Contains(t, diag.LastError, "light_from_off")

	require.NoError(t, e.Execute(model.PowerOff))
	assert.Equal(t, []string{SignalPowerOff}, tx.sent)
	assert.Empty(t, e.Diagnostics().LastError)
	assert.Equal(t, uint64(1), e.Diagnostics().FailedActions)
}

func TestTransmitFailureLeavesDeviceStateAlone(t *testing.T) {
	e, tx, _ := newTestEncoder(fullCodebook(), singleShot())
	tx.failOn["temp_up_from_70"] = errors.New("lirc busy")

	err := e.Execute(model.SetTemp(74))
	require.Error(t, err)
	assert.Equal(t, 70, e.Device().TempF)
	assert.Contains(t, e.Diagnostics().LastError, "lirc busy")
}

func TestRepeatsAndRateLimit(t *testing.T) {
	opts := Options{CarrierKHz: 36, RepeatCount: 3, RepeatGap: 50 * time.Millisecond, MinSendInterval: 300 * time.Millisecond}
	e, tx, clock := newTestEncoder(fullCodebook(), opts)

	require.NoError(t, e.Execute(model.HeatOn))
	assert.Len(t, tx.sent, 3)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, clock.slept)

	clock.slept = nil
	clock.now = clock.now.Add(100 * time.Millisecond)
	require.NoError(t, e.Execute(model.HeatOff))
	require.NotEmpty(t, clock.slept)
	assert.Equal(t, 200*time.Millisecond, clock.slept[0])

	diag := e.Diagnostics()
	assert.Len(t, tx.sent, 6)
	assert.Equal(t, uint64(2), diag.SentFrames, "repeats count as one frame")
	assert.Equal(t, int64(300), diag.MinSendIntervalMs)
	assert.Equal(t, clock.now.UnixMilli(), diag.LastSendMs)
	assert.True(t, diag.Enabled)
}

func TestDelayIsNoop(t *testing.T) {
	e, tx, clock := newTestEncoder(fullCodebook(), singleShot())
	require.NoError(t, e.Execute(model.Delay(500)))
	assert.Empty(t, tx.sent)
	assert.Empty(t, clock.slept)
}

func TestSignalNamesPanicOutsideRing(t *testing.T) {
	assert.Panics(t, func() { LightSignal(5) })
	assert.Panics(t, func() { TimerSignal(-1) })
}

func TestCodebookMissing(t *testing.T) {
	assert.Empty(t, fullCodebook().Missing())

	cb := fullCodebook()
	delete(cb, SignalHeatOn)
	cb["timer_from_3"] = nil
	assert.Equal(t, []string{SignalHeatOn, "timer_from_3"}, cb.Missing())
	assert.Len(t, RequiredSignals(), 4+10+10+5+11)
}

func TestDisabledTransmitter(t *testing.T) {
	e := NewEncoder(DefaultOptions(), fullCodebook(), DisabledTransmitter{})
	e.sleep = func(time.Duration) {}
	require.NoError(t, e.Execute(model.PowerOn))
	assert.False(t, e.Diagnostics().Enabled)
}
