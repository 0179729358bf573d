package store

import (
	"context"

	"github.com/shapescale/dialbox/internal/domain"
)

// Store defines the persistence interface for the SMS mailbox. Two
// implementations exist: the indexed SQLite store and the legacy JSON-file
// store. Migration replays the legacy store through the indexed one.
type Store interface {
	// UpsertMessage inserts a message keyed by its vendor ID. Redelivery of
	// an already-stored ID is a successful no-op; created reports whether a
	// new row was written. The message row, its search index entry, and the
	// contact summary are updated atomically.
	UpsertMessage(ctx context.Context, msg *domain.Message) (created bool, err error)

	// MarkRead flags every unread message for the contact as read and resets
	// the contact's unread count. Idempotent; returns the number of messages
	// transitioned.
	MarkRead(ctx context.Context, contact string) (int, error)

	// ListConversations returns per-contact summaries ordered by most recent
	// message first. An empty store yields an empty slice.
	ListConversations(ctx context.Context) ([]domain.ContactSummary, error)

	// GetThread returns all messages for a contact in ascending timestamp
	// order. An unknown contact yields an empty slice, not an error.
	GetThread(ctx context.Context, contact string) ([]domain.Message, error)

	// Search returns messages whose body matches the query, in the index's
	// relevance order. Messages with empty bodies never match.
	Search(ctx context.Context, query string) ([]domain.Message, error)

	// Stats returns store-wide aggregate counts.
	Stats(ctx context.Context) (*domain.Stats, error)

	Close() error
}
