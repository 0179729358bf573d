package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shapescale/dialbox/internal/domain"
	"github.com/shapescale/dialbox/internal/store/sqlite"
)

func newTestHandler(t *testing.T, lines domain.LineNames) *Handler {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHandler(db, lines)
}

func inboundPayload() *Payload {
	return &Payload{
		ID:         "1001",
		Direction:  "inbound",
		FromNumber: "+14155551234",
		ToNumber:   "+14150001111",
		Text:       "demo",
		Timestamp:  FlexTime{time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Payload)
		field  string
	}{
		{"missing id", func(p *Payload) { p.ID = ""; p.MsgID = "" }, "message_id"},
		{"bad direction", func(p *Payload) { p.Direction = "sideways" }, "direction"},
		{"missing direction", func(p *Payload) { p.Direction = "" }, "direction"},
		{"missing timestamp", func(p *Payload) { p.Timestamp = FlexTime{} }, "timestamp"},
		{"missing numbers", func(p *Payload) { p.FromNumber = ""; p.ToNumber = "" }, "from_number/to_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := inboundPayload()
			tt.mutate(p)

			err := Validate(p)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}

	if err := Validate(inboundPayload()); err != nil {
		t.Errorf("Validate(valid payload) error: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	h := newTestHandler(t, nil)

	t.Run("inbound contact is sender", func(t *testing.T) {
		msg, err := h.Normalize(inboundPayload())
		if err != nil {
			t.Fatalf("Normalize() error: %v", err)
		}
		if msg.Contact != "+14155551234" {
			t.Errorf("Contact = %q, want sender", msg.Contact)
		}
		if msg.Read {
			t.Error("inbound message normalized as read")
		}
		if msg.Direction != domain.DirectionInbound {
			t.Errorf("Direction = %q", msg.Direction)
		}
	})

	t.Run("outbound contact is recipient", func(t *testing.T) {
		p := inboundPayload()
		p.Direction = "outbound"
		p.FromNumber = "+14150001111"
		p.ToNumber = "+14155551234"

		msg, err := h.Normalize(p)
		if err != nil {
			t.Fatalf("Normalize() error: %v", err)
		}
		if msg.Contact != "+14155551234" {
			t.Errorf("Contact = %q, want recipient", msg.Contact)
		}
		if !msg.Read {
			t.Error("outbound message normalized as unread")
		}
	})

	t.Run("own line never becomes the contact", func(t *testing.T) {
		lines := domain.NewLineNames(map[string]string{"+14150001111": "Work"})
		h := newTestHandler(t, lines)

		// Direction says inbound but from_number is our own line; the
		// counterpart on the other side wins.
		p := inboundPayload()
		p.FromNumber = "+14150001111"
		p.ToNumber = "+14155551234"

		msg, err := h.Normalize(p)
		if err != nil {
			t.Fatalf("Normalize() error: %v", err)
		}
		if msg.Contact != "+14155551234" {
			t.Errorf("Contact = %q, want counterpart", msg.Contact)
		}
	})

	t.Run("withheld body stored empty", func(t *testing.T) {
		p := inboundPayload()
		p.Text = ""
		p.TextContent = ""

		msg, err := h.Normalize(p)
		if err != nil {
			t.Fatalf("Normalize() error: %v", err)
		}
		if msg.Body != "" {
			t.Errorf("Body = %q, want empty", msg.Body)
		}
	})
}

func TestIngest_Idempotent(t *testing.T) {
	h := newTestHandler(t, nil)
	ctx := context.Background()

	n, err := h.Ingest(ctx, inboundPayload())
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if !n.IsNew {
		t.Error("first Ingest() IsNew = false, want true")
	}
	if n.Contact != "+14155551234" {
		t.Errorf("Contact = %q", n.Contact)
	}
	if n.Body != "demo" {
		t.Errorf("Body = %q", n.Body)
	}
	if n.Direction != domain.DirectionInbound {
		t.Errorf("Direction = %q", n.Direction)
	}

	// Redelivery: stored exactly once, notification flags it as seen.
	n, err = h.Ingest(ctx, inboundPayload())
	if err != nil {
		t.Fatalf("second Ingest() error: %v", err)
	}
	if n.IsNew {
		t.Error("second Ingest() IsNew = true, want false")
	}

	st, err := h.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Messages != 1 {
		t.Errorf("Messages = %d, want 1", st.Messages)
	}
}

func TestIngest_RejectsMalformedBeforeStorage(t *testing.T) {
	h := newTestHandler(t, nil)
	ctx := context.Background()

	p := inboundPayload()
	p.Direction = "unknown"

	if _, err := h.Ingest(ctx, p); err == nil {
		t.Fatal("Ingest(malformed) = nil error, want *ValidationError")
	}

	st, err := h.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Messages != 0 {
		t.Errorf("Messages = %d, want 0 (malformed payload must not reach storage)", st.Messages)
	}
}
