package db

import (
	"database/sql"
	"fmt"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
)

func GetSettings(db *sql.DB) (model.Settings, error) {
	var s model.Settings
	var mode string
	err := db.QueryRow(`SELECT target_temp_f, hysteresis_f, mode, fireplace_offset_f FROM settings WHERE id = 1`).
		Scan(&s.TargetTempF, &s.HysteresisF, &mode, &s.FireplaceOffsetF)
	if err != nil {
		return model.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	s.Mode = model.Mode(mode)
	return s.Sanitize(), nil
}

// GetSchedule returns the stored schedule, normalized.
func GetSchedule(db *sql.DB) (schedule.Schedule, error) {
	var sched schedule.Schedule
	if err := db.QueryRow(`SELECT enabled FROM schedule WHERE id = 1`).Scan(&sched.Enabled); err != nil {
		return schedule.Schedule{}, fmt.Errorf("query schedule: %w", err)
	}

	rows, err := db.Query(`SELECT day, start_minutes, mode, target_temp_f FROM schedule_entries ORDER BY id`)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("query schedule entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day, mode string
		var e schedule.Entry
		if err := rows.Scan(&day, &e.StartMinutes, &mode, &e.TargetTempF); err != nil {
			return schedule.Schedule{}, fmt.Errorf("scan schedule entry: %w", err)
		}
		wd, err := schedule.ParseWeekday(day)
		if err != nil {
			continue
		}
		e.Day = wd
		e.Mode = model.Mode(mode)
		sched.Entries = append(sched.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return schedule.Schedule{}, fmt.Errorf("iterate schedule entries: %w", err)
	}

	sched.Normalize()
	return sched, nil
}

func GetTimezone(db *sql.DB) (string, error) {
	var tz string
	if err := db.QueryRow(`SELECT timezone FROM system WHERE id = 1`).Scan(&tz); err != nil {
		return "", fmt.Errorf("query timezone: %w", err)
	}
	return tz, nil
}
