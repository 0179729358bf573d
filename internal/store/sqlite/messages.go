package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shapescale/dialbox/internal/domain"
)

// UpsertMessage inserts a message and maintains the contact summary in the
// same transaction. Redelivery of an already-stored message ID is a
// successful no-op and leaves the summary untouched.
func (s *DB) UpsertMessage(ctx context.Context, msg *domain.Message) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, contact, direction, body, timestamp, is_read)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		msg.ID, msg.Contact, string(msg.Direction), msg.Body,
		msg.Timestamp.UTC().Format(time.RFC3339), msg.Read,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert message: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if inserted == 0 {
		// Duplicate delivery. Nothing changed, so nothing to commit.
		return false, nil
	}

	unreadDelta := 0
	if !msg.Read {
		unreadDelta = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contact_summary (contact, last_message_at, unread_count, message_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(contact) DO UPDATE SET
			last_message_at = MAX(last_message_at, excluded.last_message_at),
			unread_count    = unread_count + excluded.unread_count,
			message_count   = message_count + 1`,
		msg.Contact, msg.Timestamp.UTC().Format(time.RFC3339), unreadDelta,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update contact summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit message upsert: %w", err)
	}
	return true, nil
}

// MarkRead flags all unread messages for a contact as read and zeroes the
// contact's unread count in one transaction. Idempotent.
func (s *DB) MarkRead(ctx context.Context, contact string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE WHERE contact = ? AND is_read = FALSE`, contact)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE contact_summary SET unread_count = 0 WHERE contact = ?`, contact); err != nil {
		return 0, fmt.Errorf("failed to reset unread count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mark-read: %w", err)
	}
	return int(updated), nil
}

// GetThread returns all messages for a contact ordered by timestamp
// ascending. An unknown contact yields an empty result.
func (s *DB) GetThread(ctx context.Context, contact string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contact, direction, body, timestamp, is_read
		FROM messages
		WHERE contact = ?
		ORDER BY timestamp ASC, id ASC`, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread for %s: %w", contact, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]domain.Message, error) {
	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var direction, tsStr string

		if err := rows.Scan(&m.ID, &m.Contact, &direction, &m.Body, &tsStr, &m.Read); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Direction = domain.Direction(direction)

		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message timestamp: %w", err)
		}
		m.Timestamp = ts

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
