package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// Snapshot is everything the controller persists between restarts.
type Snapshot struct {
	Settings model.Settings
	Schedule schedule.Schedule
	Timezone string
}

// SaveSnapshot writes settings, schedule and timezone in one transaction.
func SaveSnapshot(db *sql.DB, snap Snapshot) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := SaveSettingsWithTx(tx, snap.Settings); err != nil {
		RollbackTransaction(tx)
		return err
	}
	if err := SaveScheduleWithTx(tx, snap.Schedule); err != nil {
		RollbackTransaction(tx)
		return err
	}
	if err := SetTimezoneWithTx(tx, snap.Timezone); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

// LoadSnapshot reads back what SaveSnapshot wrote.
func LoadSnapshot(db *sql.DB) (Snapshot, error) {
	settings, err := GetSettings(db)
	if err != nil {
		return Snapshot{}, err
	}
	sched, err := GetSchedule(db)
	if err != nil {
		return Snapshot{}, err
	}
	tz, err := GetTimezone(db)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Settings: settings, Schedule: sched, Timezone: tz}, nil
}

func SaveSettings(db *sql.DB, s model.Settings) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := SaveSettingsWithTx(tx, s); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func SaveSettingsWithTx(tx *sql.Tx, s model.Settings) error {
	s = s.Sanitize()
	_, err := tx.Exec(`UPDATE settings SET target_temp_f = ?, hysteresis_f = ?, mode = ?, fireplace_offset_f = ? WHERE id = 1`,
		s.TargetTempF, s.HysteresisF, string(s.Mode), s.FireplaceOffsetF)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func SaveSchedule(db *sql.DB, sched schedule.Schedule) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := SaveScheduleWithTx(tx, sched); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

// SaveScheduleWithTx replaces every stored entry with the normalized entries of sched.
func SaveScheduleWithTx(tx *sql.Tx, sched schedule.Schedule) error {
	sched.Normalize()

	if _, err := tx.Exec(`UPDATE schedule SET enabled = ? WHERE id = 1`, sched.Enabled); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM schedule_entries`); err != nil {
		return fmt.Errorf("clear schedule entries: %w", err)
	}
	for _, e := range sched.Entries {
		_, err := tx.Exec(`INSERT INTO schedule_entries (day, start_minutes, mode, target_temp_f) VALUES (?, ?, ?, ?)`,
			e.Day.String(), e.StartMinutes, string(e.Mode), e.TargetTempF)
		if err != nil {
			return fmt.Errorf("insert schedule entry %s %d: %w", e.Day, e.StartMinutes, err)
		}
	}
	return nil
}

func SetTimezone(db *sql.DB, tz string) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := SetTimezoneWithTx(tx, tz); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func SetTimezoneWithTx(tx *sql.Tx, tz string) error {
	_, err := tx.Exec(`UPDATE system SET timezone = ?, updated_at = ? WHERE id = 1`, tz, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update timezone: %w", err)
	}
	return nil
}
