// Package sqlite opens the single-file service database that backs the
// pending payment store and the order ledger.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pending_payments (
		payment_token     TEXT PRIMARY KEY,
		owner_id          INTEGER NOT NULL,
		items_json        TEXT NOT NULL,
		total             TEXT NOT NULL,
		client_json       TEXT NOT NULL DEFAULT '{}',
		comment           TEXT NOT NULL DEFAULT '',
		created_at        TEXT NOT NULL,
		expires_at        INTEGER NOT NULL,
		gateway_reference TEXT,
		claimed_at        INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_expires ON pending_payments(expires_at)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id     TEXT PRIMARY KEY,
		owner_id     INTEGER NOT NULL,
		items_json   TEXT NOT NULL,
		total_price  TEXT NOT NULL,
		status       TEXT NOT NULL,
		pos_order_id TEXT NOT NULL UNIQUE,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; conditional updates rely on serialized access.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
