package thermostat

import "time"

type trendDirection int

const (
	trendFalling trendDirection = -1
	trendFlat    trendDirection = 0
	trendRising  trendDirection = 1
)

func (d trendDirection) String() string {
	switch d {
	case trendRising:
		return "rising"
	case trendFalling:
		return "falling"
	default:
		return "flat"
	}
}

// trendDetector watches the room temperature for a sustained rise or fall
// that the engine did not cause, which means somebody used the handheld
// remote.
type trendDetector struct {
	sampleInterval time.Duration
	risingF        float64
	fallingF       float64
	required       int

	previous   float64
	hasSample  bool
	lastSample time.Time
	direction  trendDirection
	streak     int
}

func newTrendDetector(cfg Config) trendDetector {
	return trendDetector{
		sampleInterval: cfg.TrendSampleInterval,
		risingF:        cfg.TrendRisingF,
		fallingF:       cfg.TrendFallingF,
		required:       cfg.TrendSamplesRequired,
	}
}

// observe records a sample if the sampling interval has passed. It returns
// the current direction and true once the streak is long enough.
func (t *trendDetector) observe(tempF float64, now time.Time) (trendDirection, bool) {
	if !t.lastSample.IsZero() && now.Sub(t.lastSample) < t.sampleInterval {
		return trendFlat, false
	}
	t.lastSample = now

	if !t.hasSample {
		t.previous = tempF
		t.hasSample = true
		return trendFlat, false
	}

	delta := tempF - t.previous
	t.previous = tempF

	dir := trendFlat
	switch {
	case delta > t.risingF:
		dir = trendRising
	case delta < t.fallingF:
		dir = trendFalling
	}

	if dir == t.direction && dir != trendFlat {
		t.streak++
	} else {
		t.direction = dir
		t.streak = 0
		if dir != trendFlat {
			t.streak = 1
		}
	}

	if t.streak < t.required {
		return trendFlat, false
	}
	return t.direction, true
}

// reset clears the streak after the engine acted on an inference.
func (t *trendDetector) reset() {
	t.streak = 0
}
