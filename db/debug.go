package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

func openCLI(dbPath string) (*sql.DB, error) {
	dbConn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return dbConn, nil
}

// updateSettingsCLI loads the stored settings, applies fn and writes them back.
func updateSettingsCLI(dbPath string, fn func(s *model.Settings)) error {
	dbConn, err := openCLI(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	s, err := GetSettings(dbConn)
	if err != nil {
		return err
	}
	fn(&s)

	tx, err := StartTransaction(dbConn)
	if err != nil {
		return err
	}
	if err := SaveSettingsWithTx(tx, s); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func SetModeCLI(dbPath, mode string) error {
	m, ok := model.ParseMode(mode)
	if !ok {
		return fmt.Errorf("invalid mode %q", mode)
	}
	return updateSettingsCLI(dbPath, func(s *model.Settings) { s.Mode = m })
}

func SetTargetCLI(dbPath string, target float64) error {
	return updateSettingsCLI(dbPath, func(s *model.Settings) {
		s.TargetTempF = model.ClampFloat(target, model.MinTargetTempF, model.MaxTargetTempF)
	})
}

func SetOffsetCLI(dbPath string, offset int) error {
	if !model.ValidFireplaceOffset(offset) {
		return fmt.Errorf("invalid fireplace offset %d", offset)
	}
	return updateSettingsCLI(dbPath, func(s *model.Settings) { s.FireplaceOffsetF = offset })
}

func SetScheduleEnabledCLI(dbPath string, enabled bool) error {
	dbConn, err := openCLI(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	sched, err := GetSchedule(dbConn)
	if err != nil {
		return err
	}
	sched.Enabled = enabled
	return SaveSchedule(dbConn, sched)
}

func SetTimezoneCLI(dbPath, tz string) error {
	dbConn, err := openCLI(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	return SetTimezone(dbConn, tz)
}

// DumpCLI renders the stored settings, timezone and schedule for a terminal.
func DumpCLI(dbPath string) (string, error) {
	dbConn, err := openCLI(dbPath)
	if err != nil {
		return "", err
	}
	defer dbConn.Close()

	snap, err := LoadSnapshot(dbConn)
	if err != nil {
		return "", err
	}
	return FormatSnapshot(snap), nil
}

func FormatSnapshot(snap Snapshot) string {
	var b strings.Builder
	s := snap.Settings
	fmt.Fprintf(&b, "mode=%s target=%.1fF hysteresis=%.1fF offset=%dF\n", s.Mode, s.TargetTempF, s.HysteresisF, s.FireplaceOffsetF)
	fmt.Fprintf(&b, "timezone=%s\n", snap.Timezone)
	fmt.Fprintf(&b, "schedule enabled=%t entries=%d\n", snap.Schedule.Enabled, len(snap.Schedule.Entries))
	for _, e := range snap.Schedule.Entries {
		fmt.Fprintf(&b, "  %s %02d:%02d %s %.1fF\n", e.Day, e.StartMinutes/60, e.StartMinutes%60, e.Mode, e.TargetTempF)
	}
	return b.String()
}
