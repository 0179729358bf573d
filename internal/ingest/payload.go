// Package ingest turns raw Dialpad webhook payloads into mailbox writes.
// It validates and normalizes vendor events, classifies inbound
// notifications, and screens sensitive messages before anything is forwarded
// downstream.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidationError reports a malformed or incomplete webhook payload. These
// are rejected before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

// FlexString accepts a JSON string, number, or array of either, keeping the
// first element. Dialpad sends to_number both as a string and as a list.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			*f = ""
			return nil
		}
		return f.UnmarshalJSON(items[0])
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
		return nil
	}
}

func (f FlexString) String() string { return string(f) }

// FlexTime accepts an epoch timestamp (seconds or milliseconds) or an
// RFC 3339 / ISO 8601 string.
type FlexTime struct {
	time.Time
}

func (f *FlexTime) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		f.Time = time.Time{}
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return f.parseString(s)
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f.Time = epochToTime(n)
	return nil
}

func (f *FlexTime) parseString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	// Numeric strings are epoch values.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		f.Time = epochToTime(n)
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// epochToTime treats values past the year ~33658 threshold as milliseconds.
func epochToTime(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// PayloadContact is the optional contact block Dialpad attaches to events.
type PayloadContact struct {
	Name string `json:"name"`
}

// Payload is a raw Dialpad webhook event. Only the SMS fields are required;
// the call fields exist so missed calls riding the SMS webhook path can be
// classified instead of stored as blank messages.
type Payload struct {
	ID             FlexString      `json:"id"`
	MsgID          FlexString      `json:"message_id"`
	Direction      string          `json:"direction"`
	FromNumber     FlexString      `json:"from_number"`
	ToNumber       FlexString      `json:"to_number"`
	Text           string          `json:"text"`
	TextContent    string          `json:"text_content"`
	ConversationID FlexString      `json:"conversation_id"`
	Contact        *PayloadContact `json:"contact"`

	CreatedDate    FlexTime `json:"created_date"`
	EventTimestamp FlexTime `json:"event_timestamp"`
	Timestamp      FlexTime `json:"timestamp"`

	EventType        string `json:"event_type"`
	Event            string `json:"event"`
	Type             string `json:"type"`
	SubscriptionType string `json:"subscription_type"`
	Topic            string `json:"topic"`

	CallID        FlexString `json:"call_id"`
	CallState     string     `json:"call_state"`
	CallDirection string     `json:"call_direction"`
	CallMissed    *bool      `json:"call_missed"`
	MissedCall    *bool      `json:"missed_call"`
	IsMissedCall  *bool      `json:"is_missed_call"`
	CallDuration  *float64   `json:"call_duration"`
	Duration      *float64   `json:"duration"`
}

// MessageID returns the vendor message identifier, preferring message_id
// over the bare id field.
func (p *Payload) MessageID() string {
	if p.MsgID != "" {
		return p.MsgID.String()
	}
	return p.ID.String()
}

// Body returns the message text, falling back to text_content when text is
// blank. A withheld body yields "".
func (p *Payload) Body() string {
	if !isBlank(p.Text) {
		return p.Text
	}
	if !isBlank(p.TextContent) {
		return p.TextContent
	}
	return ""
}

// EventTime resolves the event timestamp across the fields Dialpad has used
// over time: created_date, then event_timestamp, then timestamp.
func (p *Payload) EventTime() time.Time {
	for _, t := range []time.Time{p.CreatedDate.Time, p.EventTimestamp.Time, p.Timestamp.Time} {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// ContactName returns the vendor-resolved contact name, if any.
func (p *Payload) ContactName() string {
	if p.Contact == nil {
		return ""
	}
	return p.Contact.Name
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
