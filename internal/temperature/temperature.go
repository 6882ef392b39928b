package temperature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotNumber  = errors.New("reading is not a number")
	ErrNotFinite  = errors.New("reading is not finite")
	ErrOutOfRange = errors.New("reading out of range")
	ErrAnomalous  = errors.New("reading jumped too far from last accepted value")
)

const (
	MinHumidity = 0.0
	MaxHumidity = 100.0
)

type Reading struct {
	Temperature float64
	Timestamp   time.Time
	Valid       bool
}

// Notifier interface for sending notifications
type Notifier interface {
	Send(title, message string) error
}

type Config struct {
	MinValidF    float64
	MaxValidF    float64
	MaxDeltaF    float64
	MaxAnomalies int
}

// Filter validates incoming sensor values and rejects single-sample spikes.
// After MaxAnomalies consecutive rejections the new level is taken as the
// real temperature.
type Filter struct {
	mu           sync.Mutex
	cfg          Config
	lastGood     Reading
	anomalyCount int
	notifier     Notifier
}

// NewFilter builds a filter. notifier may be nil.
func NewFilter(cfg Config, notifier Notifier) *Filter {
	if cfg.MaxAnomalies < 1 {
		cfg.MaxAnomalies = 1
	}
	return &Filter{cfg: cfg, notifier: notifier}
}

// ParseValue reads a plain decimal payload such as "71.4".
func ParseValue(payload string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, payload)
	}
	return v, nil
}

func checkRange(v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotFinite
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: %.1f not in [%.1f, %.1f]", ErrOutOfRange, v, lo, hi)
	}
	return nil
}

func ValidateHumidity(v float64) error {
	return checkRange(v, MinHumidity, MaxHumidity)
}

func (f *Filter) ValidateTemperature(v float64) error {
	return checkRange(v, f.cfg.MinValidF, f.cfg.MaxValidF)
}

// Accept returns nil when tempF should be passed on to the engine.
func (f *Filter) Accept(tempF float64, now time.Time) error {
	if err := f.ValidateTemperature(tempF); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	reading := Reading{Temperature: tempF, Timestamp: now, Valid: true}

	if !f.lastGood.Valid || f.cfg.MaxDeltaF <= 0 {
		f.lastGood = reading
		return nil
	}

	delta := math.Abs(tempF - f.lastGood.Temperature)
	if delta <= f.cfg.MaxDeltaF {
		f.anomalyCount = 0
		f.lastGood = reading
		return nil
	}

	f.anomalyCount++
	if f.anomalyCount < f.cfg.MaxAnomalies {
		log.Warn().
			Float64("temp", tempF).
			Float64("last_good", f.lastGood.Temperature).
			Int("anomalies", f.anomalyCount).
			Msg("Temperature reading rejected as anomalous")
		return fmt.Errorf("%w: %.1fF vs %.1fF", ErrAnomalous, tempF, f.lastGood.Temperature)
	}

	previous := f.lastGood.Temperature
	f.anomalyCount = 0
	f.lastGood = reading
	log.Info().
		Float64("temp", tempF).
		Float64("previous", previous).
		Msg("Stable new baseline detected, accepting temperature")
	f.notify(tempF, previous)
	return nil
}

func (f *Filter) notify(tempF, previous float64) {
	if f.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Room sensor settled at %.1f°F (last good: %.1f°F)", tempF, previous)
	if err := f.notifier.Send("Fireplace Sensor Baseline Reset", msg); err != nil {
		log.Error().Err(err).Msg("Failed to send sensor baseline notification")
	}
}

func (f *Filter) LastGood() Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastGood
}

func (f *Filter) AnomalyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.anomalyCount
}
