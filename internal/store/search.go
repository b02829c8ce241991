package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DefaultSearchWindow is how many surrounding messages are returned on
// each side of a full-text match.
const DefaultSearchWindow = 3

// SearchMessages runs an FTS5 query over message content and returns each
// match together with a window of chronologically surrounding messages
// from the combined timeline (window rows before, window rows after).
func (s *SQLiteStore) SearchMessages(ctx context.Context, query string, limit, window int) ([]*SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 10
	}
	if window < 0 {
		window = DefaultSearchWindow
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.message_type, m.direction, m.sender_id, m.receiver_id,
		        m.timestamp, m.content, m.attachment, m.location, m.raw_line, m.created_at,
		        snippet(messages_fts, 0, '[', ']', '…', 10)
		 FROM messages_fts f
		 JOIN messages m ON m.id = f.rowid
		 WHERE messages_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		ftsQuote(query), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	type matched struct {
		msg     *Message
		snippet string
	}
	var matches []matched
	for rows.Next() {
		m, snippet, err := scanSearchRow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		matches = append(matches, matched{msg: m, snippet: snippet})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	hits := make([]*SearchHit, 0, len(matches))
	for _, mt := range matches {
		contextMsgs, err := s.surroundingMessages(ctx, mt.msg, window)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &SearchHit{
			Message: *mt.msg,
			Snippet: mt.snippet,
			Context: contextMsgs,
		})
	}
	return hits, nil
}

// surroundingMessages returns up to n messages on each side of m in
// timeline order, the earlier ones first, m itself excluded.
func (s *SQLiteStore) surroundingMessages(ctx context.Context, m *Message, n int) ([]*Message, error) {
	if n == 0 {
		return nil, nil
	}

	before, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		 WHERE (timestamp < ? OR (timestamp = ? AND id < ?))
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		m.Timestamp.UTC(), m.Timestamp.UTC(), m.ID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching preceding messages: %w", err)
	}
	prev, err := collectMessages(before)
	if err != nil {
		return nil, err
	}

	after, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		 WHERE (timestamp > ? OR (timestamp = ? AND id > ?))
		 ORDER BY timestamp, id LIMIT ?`,
		m.Timestamp.UTC(), m.Timestamp.UTC(), m.ID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching following messages: %w", err)
	}
	next, err := collectMessages(after)
	if err != nil {
		return nil, err
	}

	// prev came back newest-first; reverse into timeline order
	out := make([]*Message, 0, len(prev)+len(next))
	for i := len(prev) - 1; i >= 0; i-- {
		out = append(out, prev[i])
	}
	out = append(out, next...)
	return out, nil
}

func scanSearchRow(row scannable) (*Message, string, error) {
	m := &Message{}
	var sender, receiver sql.NullInt64
	var content, attachment, location, rawLine sql.NullString
	var snippet string

	if err := row.Scan(&m.ID, &m.MessageType, &m.Direction, &sender, &receiver,
		&m.Timestamp, &content, &attachment, &location, &rawLine, &m.CreatedAt,
		&snippet); err != nil {
		return nil, "", err
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
	return m, snippet, nil
}

// ftsQuote wraps each term in double quotes so user input with FTS5
// operator characters cannot break the MATCH expression.
func ftsQuote(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, ``)+`"`)
	}
	return strings.Join(quoted, " ")
}
