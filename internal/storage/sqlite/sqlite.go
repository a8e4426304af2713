// Package sqlite implements the station and price stores on a single SQLite
// file for single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps sql.DB opened with the pure-Go sqlite driver.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{DB: db}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL,
			url         TEXT    NOT NULL DEFAULT '',
			address     TEXT    NOT NULL DEFAULT '',
			color       INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL DEFAULT (unixepoch())
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS stations_name_idx ON stations (name COLLATE NOCASE)`,
		`CREATE TABLE IF NOT EXISTS prices (
			station_id    INTEGER NOT NULL REFERENCES stations (id) ON DELETE CASCADE,
			fuel_id       INTEGER NOT NULL,
			timestamp_ms  INTEGER NOT NULL,
			price         REAL    NOT NULL,
			PRIMARY KEY (station_id, fuel_id, timestamp_ms)
		)`,
		`CREATE INDEX IF NOT EXISTS prices_fuel_time_idx ON prices (fuel_id, timestamp_ms)`,
	}
	for _, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isDuplicateKeyError(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyError(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
