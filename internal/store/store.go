// Package store provides the SQLite + FTS5 storage layer for commlog.
//
// All data lives in a single SQLite database file:
// - Contacts resolved from imported records
// - Messages with verbatim source text kept for traceability
// - FTS5 full-text search index over message content
// - An audit log of import runs
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.commlog/commlog.db"

// MessageType identifies the kind of communication record.
type MessageType string

const (
	TypeSMS      MessageType = "SMS"
	TypeCall     MessageType = "CALL"
	TypeInstant  MessageType = "INSTANT"
	TypeCalendar MessageType = "CALENDAR"
)

// Direction records who originated a message relative to the device owner.
type Direction string

const (
	DirectionFrom    Direction = "FROM"
	DirectionTo      Direction = "TO"
	DirectionUnknown Direction = "UNKNOWN"
)

// ContactType distinguishes individual contacts from group chats.
type ContactType string

const (
	ContactIndividual ContactType = "INDIVIDUAL"
	ContactGroup      ContactType = "GROUP"
)

// Contact is a resolved communication peer.
// PhoneNumber is the identity key; after a merge/normalize pass it is
// unique across the table in canonical international form.
type Contact struct {
	ID          int64
	PhoneNumber string
	Name        string
	Type        ContactType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one imported communication record.
// Only SenderID, ReceiverID and Direction are mutated after insert.
type Message struct {
	ID          int64
	MessageType MessageType
	Direction   Direction
	SenderID    *int64
	ReceiverID  *int64
	Timestamp   time.Time
	Content     string
	Attachment  string
	Location    string
	RawLine     string
	CreatedAt   time.Time
}

// ContactSummary is a contact with derived message counts.
type ContactSummary struct {
	Contact
	Sent     int64
	Received int64
}

// SearchHit is a full-text match plus a bounded window of chronologically
// surrounding messages from the combined timeline.
type SearchHit struct {
	Message Message
	Snippet string
	Context []*Message
}

// AttributionUpdate describes a manual correction to a message.
// Nil fields are left untouched; ClearSender/ClearReceiver null the
// reference out explicitly.
type AttributionUpdate struct {
	Direction     *Direction
	SenderID      *int64
	ReceiverID    *int64
	ClearSender   bool
	ClearReceiver bool
}

// ImportRun is one entry in the import audit log.
type ImportRun struct {
	ID                string
	SourceFile        string
	StartedAt         time.Time
	FinishedAt        time.Time
	TotalLines        int64
	Records           int64
	ContactsCreated   int64
	MessagesCreated   int64
	Errors            int64
	SkippedLines      int64
	DuplicatesSkipped int64
	DryRun            bool
}

// StoreStats holds observability statistics about the store.
type StoreStats struct {
	ContactCount int64
	MessageCount int64
	RunCount     int64
	DBSizeBytes  int64
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the persistence interface consumed by the import pipeline,
// the correction passes, and the downstream query/mutation surface.
type Store interface {
	// Contacts
	CreateContact(ctx context.Context, c *Contact) (int64, error)
	GetContact(ctx context.Context, id int64) (*Contact, error)
	FindContactByPhone(ctx context.Context, phoneNumber string) (*Contact, error)
	SetContactNameIfEmpty(ctx context.Context, id int64, name string) error
	UpdateContactPhone(ctx context.Context, id int64, phoneNumber string) error
	ListContacts(ctx context.Context) ([]*ContactSummary, error)
	AllContacts(ctx context.Context) ([]*Contact, error)
	MergeContacts(ctx context.Context, keeperID, otherID int64) error

	// Messages
	AddMessage(ctx context.Context, m *Message) (int64, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	MessagesForContact(ctx context.Context, contactID int64) ([]*Message, error)
	MessageExists(ctx context.Context, t MessageType, d Direction, ts time.Time, content string) (bool, error)
	UpdateMessageAttribution(ctx context.Context, id int64, u AttributionUpdate) error

	// Correction pass queries
	MessagesMissingReceiver(ctx context.Context) ([]*Message, error)
	MessagesFromWithContent(ctx context.Context) ([]*Message, error)
	NearestEarlierSender(ctx context.Context, before time.Time) (*int64, error)

	// Search
	SearchMessages(ctx context.Context, query string, limit, window int) ([]*SearchHit, error)

	// Import audit log
	RecordImportRun(ctx context.Context, r *ImportRun) error
	RecentImportRuns(ctx context.Context, limit int) ([]*ImportRun, error)

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite + FTS5.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	// Create parent directory for non-memory databases
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// GetDB exposes the underlying handle for callers that need raw access
// (tests, ad-hoc maintenance).
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only — never auto-vacuum.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats returns store-wide counts and the database file size.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	st := &StoreStats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&st.ContactCount); err != nil {
		return nil, fmt.Errorf("counting contacts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&st.MessageCount); err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM import_runs").Scan(&st.RunCount); err != nil {
		return nil, fmt.Errorf("counting import runs: %w", err)
	}

	if s.dbPath != ":memory:" {
		if fi, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = fi.Size()
		}
	}

	return st, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
