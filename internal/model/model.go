package model

import (
	"math"
	"strings"
)

type Mode string

const (
	ModeOff  Mode = "OFF"
	ModeHeat Mode = "HEAT"
)

// ParseMode accepts "heat" or "off" in any case.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeHeat:
		return ModeHeat, true
	case ModeOff:
		return ModeOff, true
	default:
		return "", false
	}
}

func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeHeat
}

type State string

const (
	StateIdle      State = "IDLE"
	StateHeating   State = "HEATING"
	StateSatisfied State = "SATISFIED"
	StateHold      State = "HOLD"
	StateCooldown  State = "COOLDOWN"
)

type HoldReason string

const (
	HoldManual         HoldReason = "manual"
	HoldExternalRemote HoldReason = "external_remote"
	HoldUserRequested  HoldReason = "user_requested"
)

const (
	MinTargetTempF = 60.0
	MaxTargetTempF = 84.0

	MinHysteresisF = 0.5
	MaxHysteresisF = 5.0

	MinFireplaceOffsetF = 2
	MaxFireplaceOffsetF = 10

	DefaultTargetTempF      = 70.0
	DefaultHysteresisF      = 2.0
	DefaultFireplaceOffsetF = 4
)

// Settings is the operator-controlled part of the thermostat that survives restarts.
type Settings struct {
	TargetTempF      float64 `json:"targetTempF"`
	HysteresisF      float64 `json:"hysteresisF"`
	Mode             Mode    `json:"mode"`
	FireplaceOffsetF int     `json:"fireplaceOffsetF"`
}

func DefaultSettings() Settings {
	return Settings{
		TargetTempF:      DefaultTargetTempF,
		HysteresisF:      DefaultHysteresisF,
		Mode:             ModeOff,
		FireplaceOffsetF: DefaultFireplaceOffsetF,
	}
}

// Sanitize clamps every field into its legal range. Odd offsets round down.
func (s Settings) Sanitize() Settings {
	out := s
	out.TargetTempF = ClampFloat(finiteOr(s.TargetTempF, DefaultTargetTempF), MinTargetTempF, MaxTargetTempF)
	out.HysteresisF = ClampFloat(finiteOr(s.HysteresisF, DefaultHysteresisF), MinHysteresisF, MaxHysteresisF)
	if !out.Mode.Valid() {
		out.Mode = ModeOff
	}

	offset := ClampInt(s.FireplaceOffsetF, MinFireplaceOffsetF, MaxFireplaceOffsetF)
	if offset%2 != 0 {
		offset--
	}
	if offset < MinFireplaceOffsetF {
		offset = MinFireplaceOffsetF
	}
	out.FireplaceOffsetF = offset
	return out
}

// ValidFireplaceOffset reports whether offset is even and within range.
func ValidFireplaceOffset(offset int) bool {
	return offset >= MinFireplaceOffsetF && offset <= MaxFireplaceOffsetF && offset%2 == 0
}

func ClampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
