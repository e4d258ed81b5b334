package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/sma-activity-portal/pkg/config"
)

const profileSchema = `
CREATE TABLE IF NOT EXISTS profile_entries (
	profile_id TEXT NOT NULL,
	entry_key  TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (profile_id, entry_key)
);`

// NewSQLite opens the on-disk profile database and makes sure the
// key/value table exists. A single connection keeps ":memory:" databases
// coherent and serialises writers the way a browser profile does.
func NewSQLite(cfg config.StorageConfig) (*sqlx.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = ":memory:"
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the profile schema.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(profileSchema); err != nil {
		return fmt.Errorf("create profile schema: %w", err)
	}
	return nil
}
