package ir

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

// Transmitter puts one raw frame on the air.
type Transmitter interface {
	Transmit(signal string, pulses []int) error
	Enabled() bool
}

type Options struct {
	CarrierKHz      int
	RepeatCount     int
	RepeatGap       time.Duration
	MinSendInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		CarrierKHz:      36,
		RepeatCount:     3,
		RepeatGap:       50 * time.Millisecond,
		MinSendInterval: 300 * time.Millisecond,
	}
}

type Diagnostics struct {
	Enabled           bool   `json:"enabled"`
	CarrierKHz        int    `json:"carrierKHz"`
	RepeatCount       int    `json:"repeatCount"`
	RepeatGapMs       int64  `json:"repeatGapMs"`
	MinSendIntervalMs int64  `json:"minSendIntervalMs"`
	LastSendMs        int64  `json:"lastSendMs"`
	SentFrames        uint64 `json:"sentFrames"`
	FailedActions     uint64 `json:"failedActions"`
	LastError         string `json:"lastError"`
	RuntimeTempF      int    `json:"runtimeTempF"`
	RuntimeLightLevel int    `json:"runtimeLightLevel"`
	RuntimeTimerState int    `json:"runtimeTimerState"`
}

// Encoder turns engine actions into remote-control frames and tracks what
// the fireplace has been told. It is not safe for concurrent use.
type Encoder struct {
	opts     Options
	codebook Codebook
	tx       Transmitter

	device        model.DeviceState
	lastSend      time.Time
	sentFrames    uint64
	failedActions uint64
	lastError     string

	now   func() time.Time
	sleep func(time.Duration)
}

func NewEncoder(opts Options, codebook Codebook, tx Transmitter) *Encoder {
	if opts.RepeatCount < 1 {
		opts.RepeatCount = 1
	}
	return &Encoder{
		opts:     opts,
		codebook: codebook,
		tx:       tx,
		device:   model.DefaultDeviceState(),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (e *Encoder) Device() model.DeviceState {
	return e.device
}

// Execute sends the frames for one action. Delay actions are the caller's
// business and do nothing here.
func (e *Encoder) Execute(a model.Action) error {
	if a.Kind == model.ActionDelay {
		return nil
	}

	if err := e.execute(a); err != nil {
		e.failedActions++
		e.lastError = err.Error()
		log.Warn().Err(err).Str("action", a.String()).Msg("IR action failed")
		return err
	}
	e.lastError = ""
	return nil
}

func (e *Encoder) execute(a model.Action) error {
	switch a.Kind {
	case model.ActionPowerOn:
		if err := e.send(SignalPowerOn); err != nil {
			return err
		}
		// The fireplace always wakes with the light at full brightness.
		e.device.LightLevel = model.MaxLight
		return nil
	case model.ActionPowerOff:
		return e.send(SignalPowerOff)
	case model.ActionHeatOn:
		return e.send(SignalHeatOn)
	case model.ActionHeatOff:
		return e.send(SignalHeatOff)
	case model.ActionTempUp:
		_, err := e.stepUp()
		return err
	case model.ActionTempDown:
		_, err := e.stepDown()
		return err
	case model.ActionSetTemp:
		return e.setTemp(a.Value)
	case model.ActionLightToggle:
		if err := e.send(LightSignal(e.device.LightLevel)); err != nil {
			return err
		}
		e.device.LightLevel = model.NextLight(e.device.LightLevel)
		return nil
	case model.ActionTimerToggle:
		if err := e.send(TimerSignal(e.device.TimerLevel)); err != nil {
			return err
		}
		e.device.TimerLevel = model.NextTimer(e.device.TimerLevel)
		return nil
	default:
		return fmt.Errorf("unknown action %s", a)
	}
}

// stepUp reports false without sending when already at the top of the range.
func (e *Encoder) stepUp() (bool, error) {
	if e.device.TempF >= model.MaxDeviceTempF {
		log.Info().Int("temp_f", e.device.TempF).Msg("Fireplace already at maximum temperature")
		return false, nil
	}
	if err := e.send(TempUpSignal(e.device.TempF)); err != nil {
		return false, err
	}
	e.device.TempF += model.DeviceTempStepF
	return true, nil
}

func (e *Encoder) stepDown() (bool, error) {
	if e.device.TempF <= model.MinDeviceTempF {
		log.Info().Int("temp_f", e.device.TempF).Msg("Fireplace already at minimum temperature")
		return false, nil
	}
	if err := e.send(TempDownSignal(e.device.TempF)); err != nil {
		return false, err
	}
	e.device.TempF -= model.DeviceTempStepF
	return true, nil
}

func (e *Encoder) setTemp(requested int) error {
	target := model.NormalizeDeviceTemp(requested)
	for e.device.TempF != target {
		step := e.stepDown
		if target > e.device.TempF {
			step = e.stepUp
		}
		stepped, err := step()
		if err != nil {
			return err
		}
		if !stepped {
			return fmt.Errorf("%w: at %d°F, wanted %d°F", ErrUnreachableTemp, e.device.TempF, target)
		}
	}
	return nil
}

// send transmits one signal RepeatCount times, waiting out the global
// minimum interval first.
func (e *Encoder) send(signal string) error {
	pulses, err := e.codebook.lookup(signal)
	if err != nil {
		return err
	}

	if !e.lastSend.IsZero() {
		if wait := e.opts.MinSendInterval - e.now().Sub(e.lastSend); wait > 0 {
			e.sleep(wait)
		}
	}

	for i := 0; i < e.opts.RepeatCount; i++ {
		if i > 0 {
			e.sleep(e.opts.RepeatGap)
		}
		if err := e.tx.Transmit(signal, pulses); err != nil {
			e.lastSend = e.now()
			return fmt.Errorf("transmit %s: %w", signal, err)
		}
	}
	e.sentFrames++
	e.lastSend = e.now()

	log.Debug().Str("signal", signal).Int("repeats", e.opts.RepeatCount).Msg("IR signal sent")
	return nil
}

func (e *Encoder) Diagnostics() Diagnostics {
	var lastSendMs int64
	if !e.lastSend.IsZero() {
		lastSendMs = e.lastSend.UnixMilli()
	}
	return Diagnostics{
		Enabled:           e.tx.Enabled(),
		CarrierKHz:        e.opts.CarrierKHz,
		RepeatCount:       e.opts.RepeatCount,
		RepeatGapMs:       e.opts.RepeatGap.Milliseconds(),
		MinSendIntervalMs: e.opts.MinSendInterval.Milliseconds(),
		LastSendMs:        lastSendMs,
		SentFrames:        e.sentFrames,
		FailedActions:     e.failedActions,
		LastError:         e.lastError,
		RuntimeTempF:      e.device.TempF,
		RuntimeLightLevel: e.device.LightLevel,
		RuntimeTimerState: e.device.TimerLevel,
	}
}

// DisabledTransmitter drops every frame. Used in safe mode and when no IR
// device is configured.
type DisabledTransmitter struct{}

func (DisabledTransmitter) Transmit(signal string, _ []int) error {
	log.Info().Str("signal", signal).Msg("IR transmitter disabled, dropping frame")
	return nil
}

func (DisabledTransmitter) Enabled() bool { return false }
