package store

import (
	"fmt"
)

// migrate runs all pending migrations
func (s *Store) migrate() error {
	createMigrationsTableSQL := `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	s.logger.Debug("current journal schema version", "version", currentVersion)

	migrations := []struct {
		version int
		sql     string
	}{
		{
			version: 1,
			sql: `
				CREATE TABLE poll_attempts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					subscription_id TEXT NOT NULL,
					label TEXT NOT NULL,
					attempt INTEGER NOT NULL,
					started_at DATETIME NOT NULL,
					duration_ms INTEGER DEFAULT 0,
					outcome TEXT NOT NULL,
					status_code INTEGER DEFAULT 0,
					error_message TEXT DEFAULT '',
					next_delay_ms INTEGER DEFAULT 0
				);

				CREATE INDEX idx_poll_attempts_label ON poll_attempts(label, id);

				CREATE TABLE report_downloads (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transfer_id TEXT NOT NULL,
					filename TEXT NOT NULL,
					size INTEGER DEFAULT 0,
					destination TEXT NOT NULL,
					downloaded_at DATETIME NOT NULL
				);
			`,
		},
		{
			version: 2,
			sql: `
				CREATE TABLE actions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					action TEXT NOT NULL,
					transfer_id TEXT DEFAULT '',
					status_code INTEGER DEFAULT 0,
					error_message TEXT DEFAULT '',
					performed_at DATETIME NOT NULL
				);
			`,
		},
	}

	for _, mig := range migrations {
		if mig.version > currentVersion {
			s.logger.Info("running journal migration", "version", mig.version)

			if err := s.runMigration(mig.version, mig.sql); err != nil {
				return fmt.Errorf("failed to run migration %d: %w", mig.version, err)
			}
		}
	}

	return nil
}

// runMigration executes a migration and records it
func (s *Store) runMigration(version int, sql string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	return nil
}
