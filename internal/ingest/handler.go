package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/shapescale/dialbox/internal/domain"
	"github.com/shapescale/dialbox/internal/store"
)

// Handler applies one webhook event to the message store and produces a
// normalized notification for downstream delivery. It performs no network
// calls of its own.
type Handler struct {
	store store.Store
	lines domain.LineNames
}

// NewHandler returns a Handler writing to st. lines holds the account's own
// receiving-line numbers, used to pick the counterpart as the contact.
func NewHandler(st store.Store, lines domain.LineNames) *Handler {
	return &Handler{store: st, lines: lines}
}

// Validate checks the payload for the minimum required fields. It returns a
// *ValidationError describing the first problem found.
func Validate(p *Payload) error {
	if p.MessageID() == "" {
		return &ValidationError{Field: "message_id", Reason: "is required"}
	}

	dir := domain.Direction(strings.ToLower(p.Direction))
	if !dir.Valid() {
		return &ValidationError{Field: "direction", Reason: fmt.Sprintf("must be inbound or outbound, got %q", p.Direction)}
	}

	if p.EventTime().IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "is required"}
	}

	if counterpart(p, nil) == "" {
		return &ValidationError{Field: "from_number/to_number", Reason: "counterpart number is required"}
	}
	return nil
}

// Normalize validates p and maps it to the store's Message shape. The
// contact is the counterpart number, the one that is not ours, regardless of
// direction. Inbound messages start unread; outbound start read.
func (h *Handler) Normalize(p *Payload) (*domain.Message, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	dir := domain.Direction(strings.ToLower(p.Direction))
	return &domain.Message{
		ID:        p.MessageID(),
		Contact:   counterpart(p, h.lines),
		Direction: dir,
		Body:      p.Body(),
		Timestamp: p.EventTime().UTC(),
		Read:      dir == domain.DirectionOutbound,
	}, nil
}

// Ingest validates, normalizes, and stores one event. The returned
// notification's IsNew is false on redelivery, letting consumers suppress
// duplicate alerts. Duplicate delivery is not an error.
func (h *Handler) Ingest(ctx context.Context, p *Payload) (*domain.Notification, error) {
	msg, err := h.Normalize(p)
	if err != nil {
		return nil, err
	}

	created, err := h.store.UpsertMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to store message %s: %w", msg.ID, err)
	}

	return &domain.Notification{
		Contact:   msg.Contact,
		Body:      msg.Body,
		Direction: msg.Direction,
		IsNew:     created,
	}, nil
}

// counterpart picks the contact number for the event. The direction decides
// the default (sender for inbound, recipient for outbound); when that number
// is one of our own lines the other side is used instead.
func counterpart(p *Payload, lines domain.LineNames) string {
	from := strings.TrimSpace(p.FromNumber.String())
	to := strings.TrimSpace(p.ToNumber.String())

	primary, secondary := from, to
	if strings.EqualFold(p.Direction, string(domain.DirectionOutbound)) {
		primary, secondary = to, from
	}

	if primary == "" {
		return secondary
	}
	if len(lines) > 0 {
		if _, ours := lines[domain.NormalizePhone(primary)]; ours && secondary != "" {
			return secondary
		}
	}
	return primary
}
