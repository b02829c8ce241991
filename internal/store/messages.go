package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const messageColumns = `id, message_type, direction, sender_id, receiver_id,
	timestamp, content, attachment, location, raw_line, created_at`

// AddMessage inserts a new message and returns its ID.
// All timestamps are stored in UTC.
func (s *SQLiteStore) AddMessage(ctx context.Context, m *Message) (int64, error) {
	if m.MessageType == "" {
		return 0, fmt.Errorf("message type cannot be empty")
	}
	if m.Direction == "" {
		m.Direction = DirectionUnknown
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_type, direction, sender_id, receiver_id,
			timestamp, content, attachment, location, raw_line, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.MessageType), string(m.Direction),
		nullableID(m.SenderID), nullableID(m.ReceiverID),
		m.Timestamp.UTC(), nullIfEmpty(m.Content),
		nullIfEmpty(m.Attachment), nullIfEmpty(m.Location),
		nullIfEmpty(m.RawLine), now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	m.ID = id
	m.CreatedAt = now
	return id, nil
}

// GetMessage retrieves a message by ID. Returns nil if not found.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id,
	)
	m, err := scanMessageRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %d: %w", id, err)
	}
	return m, nil
}

// MessagesForContact returns the full history for a contact (sent or
// received), ascending by timestamp.
func (s *SQLiteStore) MessagesForContact(ctx context.Context, contactID int64) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		 WHERE sender_id = ? OR receiver_id = ?
		 ORDER BY timestamp, id`,
		contactID, contactID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages for contact %d: %w", contactID, err)
	}
	return collectMessages(rows)
}

// MessageExists reports whether a message with the duplicate-check key
// (type, direction, timestamp, content) is already stored. The key
// deliberately ignores sender/receiver identity.
func (s *SQLiteStore) MessageExists(ctx context.Context, t MessageType, d Direction, ts time.Time, content string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE message_type = ? AND direction = ? AND timestamp = ?
		   AND COALESCE(content, '') = ?`,
		string(t), string(d), ts.UTC(), content,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking duplicate: %w", err)
	}
	return n > 0, nil
}

// UpdateMessageAttribution applies a manual correction to a message's
// direction, sender, or receiver. Unset fields are left untouched.
func (s *SQLiteStore) UpdateMessageAttribution(ctx context.Context, id int64, u AttributionUpdate) error {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)

	if u.Direction != nil {
		sets = append(sets, "direction = ?")
		args = append(args, string(*u.Direction))
	}
	switch {
	case u.ClearSender:
		sets = append(sets, "sender_id = NULL")
	case u.SenderID != nil:
		sets = append(sets, "sender_id = ?")
		args = append(args, *u.SenderID)
	}
	switch {
	case u.ClearReceiver:
		sets = append(sets, "receiver_id = NULL")
	case u.ReceiverID != nil:
		sets = append(sets, "receiver_id = ?")
		args = append(args, *u.ReceiverID)
	}

	if len(sets) == 0 {
		return fmt.Errorf("no attribution fields to update")
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx,
		"UPDATE messages SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return fmt.Errorf("updating message %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("message %d not found", id)
	}
	return nil
}

// MessagesMissingReceiver returns TO messages with no receiver, ascending
// by timestamp. Input set for the receiver backfill pass.
func (s *SQLiteStore) MessagesMissingReceiver(ctx context.Context) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		 WHERE direction = ? AND receiver_id IS NULL
		 ORDER BY timestamp, id`,
		string(DirectionTo),
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages missing receiver: %w", err)
	}
	return collectMessages(rows)
}

// MessagesFromWithContent returns FROM messages that carry content,
// ascending by timestamp. Input set for self-reply reclassification.
func (s *SQLiteStore) MessagesFromWithContent(ctx context.Context) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		 WHERE direction = ? AND content IS NOT NULL AND content != ''
		 ORDER BY timestamp, id`,
		string(DirectionFrom),
	)
	if err != nil {
		return nil, fmt.Errorf("listing FROM messages: %w", err)
	}
	return collectMessages(rows)
}

// NearestEarlierSender returns the sender of the nearest message strictly
// earlier than the given timestamp, across the whole timeline. Returns nil
// when no earlier message has a sender.
func (s *SQLiteStore) NearestEarlierSender(ctx context.Context, before time.Time) (*int64, error) {
	var senderID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sender_id FROM messages
		 WHERE timestamp < ? AND sender_id IS NOT NULL
		 ORDER BY timestamp DESC, id DESC LIMIT 1`,
		before.UTC(),
	).Scan(&senderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding nearest earlier sender: %w", err)
	}
	return &senderID, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanMessageRow(row scannable) (*Message, error) {
	m := &Message{}
	var sender, receiver sql.NullInt64
	var content, attachment, location, rawLine sql.NullString

	if err := row.Scan(&m.ID, &m.MessageType, &m.Direction, &sender, &receiver,
		&m.Timestamp, &content, &attachment, &location, &rawLine, &m.CreatedAt); err != nil {
		return nil, err
	}

	if sender.Valid {
		m.SenderID = &sender.Int64
	}
	if receiver.Valid {
		m.ReceiverID = &receiver.Int64
	}
	m.Content = content.String
	m.Attachment = attachment.String
	m.Location = location.String
	m.RawLine = rawLine.String
	return m, nil
}

func collectMessages(rows *sql.Rows) ([]*Message, error) {
	defer rows.Close()
	var out []*Message
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
