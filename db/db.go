package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

const DefaultTimezone = "America/Los_Angeles"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK(id=1),
	target_temp_f REAL NOT NULL,
	hysteresis_f REAL NOT NULL,
	mode TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule (
	id INTEGER PRIMARY KEY CHECK(id=1),
	enabled BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS schedule_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	day TEXT NOT NULL,
	start_minutes INTEGER NOT NULL,
	mode TEXT NOT NULL,
	target_temp_f REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS system (
	id INTEGER PRIMARY KEY CHECK(id=1),
	timezone TEXT NOT NULL
);
`

// Columns added after the first release. Each is applied only if missing.
var columnMigrations = []struct {
	table  string
	column string
	ddl    string
}{
	{"settings", "fireplace_offset_f", "ALTER TABLE settings ADD COLUMN fireplace_offset_f INTEGER NOT NULL DEFAULT 4"},
	{"system", "updated_at", "ALTER TABLE system ADD COLUMN updated_at TEXT"},
}

// Open opens the sqlite database at path and brings its schema up to date.
func Open(path string) (*sql.DB, error) {
	dbConn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := ApplyMigrations(dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	for _, m := range columnMigrations {
		exists, err := columnExists(db, m.table, m.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.Exec(m.ddl); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", m.table, m.column, err)
		}
		log.Info().Str("table", m.table).Str("column", m.column).Msg("Applied column migration")
	}

	return seedDefaults(db)
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultValue *string
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, fmt.Errorf("failed to scan %s columns: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// seedDefaults inserts the singleton rows on a fresh database.
func seedDefaults(db *sql.DB) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	defer RollbackTransaction(tx)

	d := model.DefaultSettings()
	if _, err := tx.Exec(`INSERT OR IGNORE INTO settings (id, target_temp_f, hysteresis_f, mode, fireplace_offset_f) VALUES (1, ?, ?, ?, ?)`,
		d.TargetTempF, d.HysteresisF, string(d.Mode), d.FireplaceOffsetF); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO schedule (id, enabled) VALUES (1, FALSE)`); err != nil {
		return fmt.Errorf("failed to seed schedule: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO system (id, timezone) VALUES (1, ?)`, DefaultTimezone); err != nil {
		return fmt.Errorf("failed to seed system: %w", err)
	}

	return CommitTransaction(tx)
}
