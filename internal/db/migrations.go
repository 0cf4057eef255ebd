package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id              TEXT     PRIMARY KEY,
		name            TEXT     NOT NULL,
		city            TEXT     NOT NULL DEFAULT '',
		classification  TEXT     NOT NULL CHECK (classification IN ('active_customer', 'prospect', 'inactive')),
		frequency       TEXT     NOT NULL DEFAULT 'none',
		created_at      DATETIME NOT NULL,
		last_contact_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id     TEXT    NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		scheduled_date TEXT    NOT NULL,
		scheduled_time TEXT    NOT NULL DEFAULT '',
		category       TEXT    NOT NULL,
		status         TEXT    NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
		notes          TEXT    NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_account ON visits(account_id, scheduled_date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_slot ON visits(account_id, scheduled_date, scheduled_time, category)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT    NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		text       TEXT    NOT NULL,
		author     TEXT    NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent, checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"accounts", "phone", "TEXT NOT NULL DEFAULT ''"},
		{"accounts", "email", "TEXT NOT NULL DEFAULT ''"},
		{"visits", "completed_at", "DATETIME"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := hasColumn(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func hasColumn(db *sql.DB, table, column string) (found bool, err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}
