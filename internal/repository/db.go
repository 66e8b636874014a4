// Package repository persists the DAS classification table in SQLite so
// publication ingests survive restarts and feed diffs over time.
package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and
// ensures the schema exists. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// WAL for concurrent read performance while an ingest writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS das_zip_entries (
			zip TEXT NOT NULL,
			tier TEXT NOT NULL,
			effective_date TEXT NOT NULL,
			PRIMARY KEY (zip, tier, effective_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_das_zip_entries_zip ON das_zip_entries(zip)`,
		`CREATE INDEX IF NOT EXISTS idx_das_zip_entries_tier ON das_zip_entries(tier)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}
