package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

const (
	MinutesPerDay = 24 * 60
	DaysPerWeek   = 7
)

// Weekday counts from Monday, unlike time.Weekday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [DaysPerWeek]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % DaysPerWeek)
}

func ParseWeekday(s string) (Weekday, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range dayNames {
		if name == upper {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return dayNames[d]
}

// back returns the weekday n days earlier.
func (d Weekday) back(n int) Weekday {
	return Weekday(((int(d)-n)%DaysPerWeek + DaysPerWeek) % DaysPerWeek)
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("weekday: %w", err)
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Entry struct {
	Day          Weekday    `json:"day"`
	StartMinutes int        `json:"startMinutes"`
	Mode         model.Mode `json:"mode"`
	TargetTempF  float64    `json:"targetTemp"`
}

func (e Entry) Valid() bool {
	if !e.Day.Valid() || !e.Mode.Valid() {
		return false
	}
	if e.StartMinutes < 0 || e.StartMinutes >= MinutesPerDay {
		return false
	}
	if math.IsNaN(e.TargetTempF) || math.IsInf(e.TargetTempF, 0) {
		return false
	}
	return e.TargetTempF >= model.MinTargetTempF && e.TargetTempF <= model.MaxTargetTempF
}

// Action is the program an entry asks the engine to run.
type Action struct {
	Mode        model.Mode
	TargetTempF float64
}

type Schedule struct {
	Enabled bool    `json:"enabled"`
	Entries []Entry `json:"entries"`
}

// Normalize drops invalid entries and sorts the rest by day and start
// minute. When two entries share a day and start minute, the one later in
// the input wins.
func (s *Schedule) Normalize() {
	kept := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Valid() {
			kept = append(kept, e)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Day != kept[j].Day {
			return kept[i].Day < kept[j].Day
		}
		return kept[i].StartMinutes < kept[j].StartMinutes
	})

	deduped := kept[:0]
	for _, e := range kept {
		if n := len(deduped); n > 0 && deduped[n-1].Day == e.Day && deduped[n-1].StartMinutes == e.StartMinutes {
			deduped[n-1] = e
			continue
		}
		deduped = append(deduped, e)
	}
	s.Entries = deduped
}

func (s Schedule) active() bool {
	return s.Enabled && len(s.Entries) > 0
}

// CurrentAction returns the program in effect at now. The most recent entry
// carries forward across days and across the week boundary.
func (s Schedule) CurrentAction(now time.Time) (Action, bool) {
	if !s.active() {
		return Action{}, false
	}

	today := WeekdayOf(now)
	nowMinute := minuteOfDay(now)

	var best *Entry
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.Day == today && e.StartMinutes <= nowMinute {
			if best == nil || e.StartMinutes >= best.StartMinutes {
				best = e
			}
		}
	}
	if best != nil {
		return best.action(), true
	}

	for back := 1; back <= DaysPerWeek; back++ {
		day := today.back(back)
		var latest *Entry
		for i := range s.Entries {
			e := &s.Entries[i]
			if e.Day == day && (latest == nil || e.StartMinutes >= latest.StartMinutes) {
				latest = e
			}
		}
		if latest != nil {
			return latest.action(), true
		}
	}
	return Action{}, false
}

// NextEventEpoch returns the unix time of the first entry that starts
// strictly after now, looking one week ahead.
func (s Schedule) NextEventEpoch(now time.Time) (int64, bool) {
	if !s.active() {
		return 0, false
	}

	today := WeekdayOf(now)
	nowMinute := minuteOfDay(now)
	y, m, d := now.Date()
	loc := now.Location()

	var next time.Time
	for offset := 0; offset <= DaysPerWeek; offset++ {
		day := Weekday((int(today) + offset) % DaysPerWeek)
		for _, e := range s.Entries {
			if e.Day != day {
				continue
			}
			if offset == 0 && e.StartMinutes <= nowMinute {
				continue
			}
			candidate := time.Date(y, m, d+offset, e.StartMinutes/60, e.StartMinutes%60, 0, 0, loc)
			if !candidate.After(now) {
				continue
			}
			if next.IsZero() || candidate.Before(next) {
				next = candidate
			}
		}
	}
	if next.IsZero() {
		return 0, false
	}
	return next.Unix(), true
}

func (e Entry) action() Action {
	return Action{Mode: e.Mode, TargetTempF: e.TargetTempF}
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
