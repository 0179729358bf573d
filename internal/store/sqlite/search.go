package sqlite

import (
	"context"
	"fmt"

	"github.com/shapescale/dialbox/internal/domain"
)

// Search performs a full-text match against message bodies using FTS5 and
// returns results in relevance order. Empty-bodied messages never match.
func (s *DB) Search(ctx context.Context, query string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.contact, m.direction, m.body, m.timestamp, m.is_read
		FROM messages m
		JOIN messages_fts fts ON fts.rowid = m.rowid
		WHERE messages_fts MATCH ? AND m.body <> ''
		ORDER BY rank`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}
