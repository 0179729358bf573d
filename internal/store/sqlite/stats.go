package sqlite

import (
	"context"
	"fmt"

	"github.com/shapescale/dialbox/internal/domain"
)

// Stats returns store-wide counts. Unread is computed from the message table
// itself, the authoritative source, rather than the summary cache.
func (s *DB) Stats(ctx context.Context) (*domain.Stats, error) {
	var st domain.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(DISTINCT contact),
			COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0)
		FROM messages`).Scan(&st.Messages, &st.Contacts, &st.Unread)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &st, nil
}
