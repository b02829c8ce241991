package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hallamw/commlog/internal/phone"
)

// CreateContact inserts a new contact and returns its ID.
// The phone number is stored as given; callers that want canonical
// identity normalize before calling (the resolver always does).
func (s *SQLiteStore) CreateContact(ctx context.Context, c *Contact) (int64, error) {
	if c.PhoneNumber == "" {
		return 0, fmt.Errorf("contact phone number cannot be empty")
	}
	if c.Type == "" {
		c.Type = ContactIndividual
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (phone_number, name, type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.PhoneNumber, nullIfEmpty(c.Name), string(c.Type), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return id, nil
}

// GetContact retrieves a contact by ID. Returns nil if not found.
func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone_number, name, type, created_at, updated_at
		 FROM contacts WHERE id = ?`, id,
	)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact %d: %w", id, err)
	}
	return c, nil
}

// FindContactByPhone looks a contact up by exact stored phone number.
// Callers pass the canonical form; rows holding raw numbers are only
// reachable through AllContacts until a normalize pass converges them.
func (s *SQLiteStore) FindContactByPhone(ctx context.Context, phoneNumber string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone_number, name, type, created_at, updated_at
		 FROM contacts WHERE phone_number = ? ORDER BY id LIMIT 1`, phoneNumber,
	)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding contact by phone %q: %w", phoneNumber, err)
	}
	return c, nil
}

// SetContactNameIfEmpty backfills a contact's name, first-wins: a name
// already present is never overwritten.
func (s *SQLiteStore) SetContactNameIfEmpty(ctx context.Context, id int64, name string) error {
	if name == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, updated_at = ?
		 WHERE id = ? AND (name IS NULL OR name = '')`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("backfilling name for contact %d: %w", id, err)
	}
	return nil
}

// UpdateContactPhone rewrites a contact's stored phone number.
func (s *SQLiteStore) UpdateContactPhone(ctx context.Context, id int64, phoneNumber string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET phone_number = ?, updated_at = ? WHERE id = ?",
		phoneNumber, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating phone for contact %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contact %d not found", id)
	}
	return nil
}

// ListContacts returns all contacts with derived sent/received message
// counts, ordered by name then phone number.
func (s *SQLiteStore) ListContacts(ctx context.Context) ([]*ContactSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.phone_number, c.name, c.type, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM messages WHERE sender_id = c.id),
		        (SELECT COUNT(*) FROM messages WHERE receiver_id = c.id)
		 FROM contacts c
		 ORDER BY COALESCE(c.name, '') = '', c.name, c.phone_number`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var out []*ContactSummary
	for rows.Next() {
		cs := &ContactSummary{}
		var name sql.NullString
		if err := rows.Scan(&cs.ID, &cs.PhoneNumber, &name, &cs.Type,
			&cs.CreatedAt, &cs.UpdatedAt, &cs.Sent, &cs.Received); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		cs.Name = name.String
		out = append(out, cs)
	}
	return out, rows.Err()
}

// AllContacts returns every contact, ordered by ID. Used by the
// merge/normalize pass, which needs raw numbers too.
func (s *SQLiteStore) AllContacts(ctx context.Context) ([]*Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phone_number, name, type, created_at, updated_at
		 FROM contacts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing all contacts: %w", err)
	}
	defer rows.Close()

	var out []*Contact
	for rows.Next() {
		c := &Contact{}
		var name sql.NullString
		if err := rows.Scan(&c.ID, &c.PhoneNumber, &name, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		c.Name = name.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// MergeContacts absorbs otherID into keeperID: every message sent or
// received by the other contact is reassigned to the keeper, the keeper's
// number is canonicalized, its name backfilled from the absorbed contact
// if empty, and the absorbed row deleted. Runs in one transaction.
func (s *SQLiteStore) MergeContacts(ctx context.Context, keeperID, otherID int64) error {
	if keeperID == otherID {
		return fmt.Errorf("cannot merge contact %d into itself", keeperID)
	}

	keeper, err := s.GetContact(ctx, keeperID)
	if err != nil {
		return err
	}
	if keeper == nil {
		return fmt.Errorf("keeper contact %d not found", keeperID)
	}
	other, err := s.GetContact(ctx, otherID)
	if err != nil {
		return err
	}
	if other == nil {
		return fmt.Errorf("contact %d not found", otherID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		"UPDATE messages SET sender_id = ? WHERE sender_id = ?", keeperID, otherID); err != nil {
		return fmt.Errorf("reassigning sent messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE messages SET receiver_id = ? WHERE receiver_id = ?", keeperID, otherID); err != nil {
		return fmt.Errorf("reassigning received messages: %w", err)
	}

	canonical := phone.Normalize(keeper.PhoneNumber)
	if _, err := tx.ExecContext(ctx,
		"UPDATE contacts SET phone_number = ?, updated_at = ? WHERE id = ?",
		canonical, now, keeperID); err != nil {
		return fmt.Errorf("canonicalizing keeper number: %w", err)
	}

	if keeper.Name == "" && other.Name != "" {
		if _, err := tx.ExecContext(ctx,
			"UPDATE contacts SET name = ?, updated_at = ? WHERE id = ?",
			other.Name, now, keeperID); err != nil {
			return fmt.Errorf("backfilling keeper name: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", otherID); err != nil {
		return fmt.Errorf("deleting absorbed contact %d: %w", otherID, err)
	}

	return tx.Commit()
}

func scanContact(row *sql.Row) (*Contact, error) {
	c := &Contact{}
	var name sql.NullString
	if err := row.Scan(&c.ID, &c.PhoneNumber, &name, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Name = name.String
	return c, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
