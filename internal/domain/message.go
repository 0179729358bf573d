package domain

import "time"

// Direction indicates whether a message was received or sent by the account.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Message is a single inbound or outbound SMS. ID is the vendor-assigned
// message identifier and is the deduplication key: the same ID is never
// stored twice. Contact is always the counterpart number, regardless of
// direction.
type Message struct {
	ID        string
	Contact   string
	Direction Direction
	Body      string
	Timestamp time.Time
	Read      bool
}

// ContactSummary is the denormalized per-contact aggregate maintained by the
// store. UnreadCount always equals the number of unread messages for the
// contact; it is updated in the same transaction as the message write.
type ContactSummary struct {
	Contact      string
	LastMessage  time.Time
	UnreadCount  int
	MessageCount int
}

// Stats holds store-wide aggregate counts.
type Stats struct {
	Messages int
	Contacts int
	Unread   int
}

// Notification is the normalized result of ingesting one webhook event.
// IsNew is false when the event was a redelivery of an already-stored
// message; downstream consumers use it to suppress duplicate alerts.
type Notification struct {
	Contact   string
	Body      string
	Direction Direction
	IsNew     bool
}
