package cli

import (
	"time"

	"github.com/shapescale/dialbox/internal/domain"
)

// ---------------------------------------------------------------------------
// Conversation JSON types (conversations)
// ---------------------------------------------------------------------------

type jsonConversation struct {
	Contact      string `json:"contact"`
	LastMessage  string `json:"last_message"`
	UnreadCount  int    `json:"unread_count"`
	MessageCount int    `json:"message_count"`
}

func toJSONConversations(summaries []domain.ContactSummary) []jsonConversation {
	out := make([]jsonConversation, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, jsonConversation{
			Contact:      s.Contact,
			LastMessage:  s.LastMessage.UTC().Format(time.RFC3339),
			UnreadCount:  s.UnreadCount,
			MessageCount: s.MessageCount,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Message JSON type (thread, search)
// ---------------------------------------------------------------------------

type jsonMessage struct {
	ID        string `json:"id"`
	Contact   string `json:"contact"`
	Direction string `json:"direction"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
	IsRead    bool   `json:"is_read"`
}

func toJSONMessages(msgs []domain.Message) []jsonMessage {
	out := make([]jsonMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, jsonMessage{
			ID:        m.ID,
			Contact:   m.Contact,
			Direction: string(m.Direction),
			Body:      m.Body,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
			IsRead:    m.Read,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Stats JSON type (stats)
// ---------------------------------------------------------------------------

type jsonStats struct {
	Messages int `json:"messages"`
	Contacts int `json:"contacts"`
	Unread   int `json:"unread"`
}

func toJSONStats(s *domain.Stats) jsonStats {
	return jsonStats{
		Messages: s.Messages,
		Contacts: s.Contacts,
		Unread:   s.Unread,
	}
}

// ---------------------------------------------------------------------------
// Action JSON types (mark-read, migrate, secret)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK      bool   `json:"ok"`
	Action  string `json:"action"`
	Contact string `json:"contact,omitempty"`
	Name    string `json:"name,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type jsonMigration struct {
	OK      bool `json:"ok"`
	Total   int  `json:"total"`
	Created int  `json:"created"`
	Skipped int  `json:"skipped"`
}
