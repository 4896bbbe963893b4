package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the workspace SQLite database that snapshots users and messages.
type DB struct {
	*sql.DB
	path string
}

// Open connects to the database at path with WAL journaling, a busy
// timeout and foreign keys enabled.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}
