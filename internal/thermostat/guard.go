package thermostat

import "time"

// cycleGuard enforces a minimum interval between on/off transitions.
type cycleGuard struct {
	minCycle   time.Duration
	lastChange time.Time
}

func (g *cycleGuard) canChange(now time.Time) bool {
	return g.lastChange.IsZero() || now.Sub(g.lastChange) >= g.minCycle
}

func (g *cycleGuard) mark(now time.Time) {
	g.lastChange = now
}
