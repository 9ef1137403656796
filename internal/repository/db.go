package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

// Money columns hold decimal strings; timestamps hold fixed-width UTC text so
// that lexical order is chronological.
func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			recipient_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			external_reference TEXT NOT NULL DEFAULT '',
			processing_fee TEXT NOT NULL DEFAULT '0',
			fee_amount TEXT NOT NULL DEFAULT '0',
			net_amount TEXT NOT NULL DEFAULT '0',
			manual_adjustment TEXT NOT NULL DEFAULT '0',
			adjustment_reason TEXT NOT NULL DEFAULT '',
			adjustment_admin_id TEXT NOT NULL DEFAULT '',
			adjustment_at TEXT,
			dispute_status TEXT NOT NULL DEFAULT '',
			dispute_resolution TEXT NOT NULL DEFAULT '',
			dispute_reason TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			admin_id TEXT NOT NULL DEFAULT '',
			admin_notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT,
			failed_at TEXT,
			cancelled_at TEXT,
			disputed_at TEXT,
			resolved_at TEXT,
			admin_action_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_dispute_status ON transactions(dispute_status)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_external_ref ON transactions(external_reference)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
