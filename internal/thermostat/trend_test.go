package thermostat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrendDetector(t *testing.T) {
	tests := []struct {
		name      string
		temps     []float64
		fireAt    int
		direction trendDirection
	}{
		{"steady rise fires on third rising sample", []float64{70, 70.5, 71, 71.5}, 3, trendRising},
		{"steady fall fires on third falling sample", []float64{75, 74.7, 74.4, 74.1}, 3, trendFalling},
		{"flat never fires", []float64{70, 70.1, 70.2, 70.3, 70.4}, -1, trendFlat},
		{"direction change restarts streak", []float64{70, 70.5, 71, 70.5, 71, 71.5, 72}, 6, trendRising},
		{"flat sample breaks streak", []float64{70, 70.5, 71, 71, 71.5, 72}, -1, trendFlat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := newTrendDetector(DefaultConfig())
			firedAt := -1
			var dir trendDirection
			for i, temp := range tc.temps {
				got, fired := d.observe(temp, t0.Add(time.Duration(i)*30*time.Second))
				if fired && firedAt < 0 {
					firedAt = i
					dir = got
				}
			}
			assert.Equal(t, tc.fireAt, firedAt)
			assert.Equal(t, tc.direction, dir)
		})
	}
}

func TestTrendDetectorRespectsSampleInterval(t *testing.T) {
	d := newTrendDetector(DefaultConfig())
	d.observe(70, t0)

	// Too soon, ignored entirely.
	for i := 1; i < 10; i++ {
		_, fired := d.observe(70+float64(i), t0.Add(time.Duration(i)*time.Second))
		assert.False(t, fired)
	}
	assert.Equal(t, 0, d.streak)
	assert.Equal(t, 70.0, d.previous)
}

func TestTrendDetectorReset(t *testing.T) {
	d := newTrendDetector(DefaultConfig())
	for i, temp := range []float64{70, 70.5, 71, 71.5} {
		d.observe(temp, t0.Add(time.Duration(i)*30*time.Second))
	}
	assert.Equal(t, 3, d.streak)
	d.reset()
	_, fired := d.observe(72, t0.Add(2*time.Minute))
	assert.False(t, fired)
	assert.Equal(t, 1, d.streak)
}

func TestCycleGuard(t *testing.T) {
	g := cycleGuard{minCycle: 5 * time.Minute}
	assert.True(t, g.canChange(t0), "first transition is always allowed")

	g.mark(t0)
	assert.False(t, g.canChange(t0.Add(2*time.Minute)))
	assert.True(t, g.canChange(t0.Add(5*time.Minute)))
}
