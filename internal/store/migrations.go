package store

import (
	"fmt"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	if err := s.runBootstrapDDL(); err != nil {
		return err
	}

	if err := s.seedMeta(); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	// Schema evolution: attachment/location columns for media and cell
	// location lines found in some exports. Uses ALTER TABLE, which can't
	// live inside CREATE TABLE IF NOT EXISTS; column existence is checked
	// first so the migration is idempotent.
	if err := s.migrateMessageColumn("attachment"); err != nil {
		return fmt.Errorf("migrating attachment column: %w", err)
	}
	if err := s.migrateMessageColumn("location"); err != nil {
		return fmt.Errorf("migrating location column: %w", err)
	}

	return nil
}

func (s *SQLiteStore) runBootstrapDDL() error {
	statements := []string{
		// Contacts resolved from imported records. phone_number is NOT
		// unique at the schema level: rows written before a normalize
		// pass may hold raw numbers; the merge pass converges the table.
		`CREATE TABLE IF NOT EXISTS contacts (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			phone_number TEXT NOT NULL,
			name         TEXT,
			type         TEXT NOT NULL DEFAULT 'INDIVIDUAL',
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone_number)`,

		// Imported messages. raw_line keeps the verbatim reassembled
		// source record for traceability.
		`CREATE TABLE IF NOT EXISTS messages (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			message_type TEXT NOT NULL,
			direction    TEXT NOT NULL DEFAULT 'UNKNOWN',
			sender_id    INTEGER REFERENCES contacts(id),
			receiver_id  INTEGER REFERENCES contacts(id),
			timestamp    DATETIME NOT NULL,
			content      TEXT,
			raw_line     TEXT,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id)`,
		// Covers the duplicate check key
		`CREATE INDEX IF NOT EXISTS idx_messages_dedup ON messages(message_type, direction, timestamp)`,

		// FTS5 full-text search index over message content
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			content,
			content=messages,
			content_rowid=id,
			tokenize='porter unicode61'
		)`,

		// FTS sync triggers
		`CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
			INSERT INTO messages_fts(rowid, content)
			VALUES (new.id, COALESCE(new.content, ''));
		END`,

		`CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, content)
			VALUES('delete', old.id, COALESCE(old.content, ''));
		END`,

		`CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, content)
			VALUES('delete', old.id, COALESCE(old.content, ''));
			INSERT INTO messages_fts(rowid, content)
			VALUES (new.id, COALESCE(new.content, ''));
		END`,

		// Import audit log, one row per completed (non dry-run) import
		`CREATE TABLE IF NOT EXISTS import_runs (
			id                 TEXT PRIMARY KEY,
			source_file        TEXT,
			started_at         DATETIME,
			finished_at        DATETIME,
			total_lines        INTEGER DEFAULT 0,
			records            INTEGER DEFAULT 0,
			contacts_created   INTEGER DEFAULT 0,
			messages_created   INTEGER DEFAULT 0,
			errors             INTEGER DEFAULT 0,
			skipped_lines      INTEGER DEFAULT 0,
			duplicates_skipped INTEGER DEFAULT 0,
			dry_run            INTEGER DEFAULT 0
		)`,

		// Schema metadata
		`CREATE TABLE IF NOT EXISTS meta (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning bootstrap transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL failed: %w\nstatement: %s", err, stmt)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) seedMeta() error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', '1')
		 ON CONFLICT(key) DO NOTHING`,
	)
	return err
}

// migrateMessageColumn adds a nullable TEXT column to messages if missing.
func (s *SQLiteStore) migrateMessageColumn(name string) error {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('messages') WHERE name = ?", name,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking %s column: %w", name, err)
	}
	if count > 0 {
		return nil
	}

	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE messages ADD COLUMN %s TEXT", name))
	return err
}
