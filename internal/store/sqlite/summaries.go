package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shapescale/dialbox/internal/domain"
)

// ListConversations returns contact summaries ordered by most recent message
// first.
func (s *DB) ListConversations(ctx context.Context) ([]domain.ContactSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contact, last_message_at, unread_count, message_count
		FROM contact_summary
		ORDER BY last_message_at DESC, contact ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	summaries := []domain.ContactSummary{}
	for rows.Next() {
		var cs domain.ContactSummary
		var lastStr string

		if err := rows.Scan(&cs.Contact, &lastStr, &cs.UnreadCount, &cs.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}

		last, err := time.Parse(time.RFC3339, lastStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse summary timestamp: %w", err)
		}
		cs.LastMessage = last

		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}
	return summaries, nil
}
