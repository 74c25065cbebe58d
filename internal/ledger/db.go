// Package ledger records every outbound send attempt in SQLite so failures
// and late acknowledgements can be inspected after the fact.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the ledger's SQLite connection.
type DB struct {
	*sql.DB
}

// Open connects to dsn. A plain path gets WAL and a busy timeout; a "file:"
// URI (including the shared in-memory default) is used verbatim. The pool is
// pinned to one connection so an in-memory database outlives idle periods.
func Open(dsn string) (*DB, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	return &DB{db}, nil
}
